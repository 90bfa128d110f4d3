package client

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/rkuma140394/vox-Gaurd-detect/internal/domain/detection"
)

// Render writes a plain-text view of the session.
func Render(w io.Writer, snap Snapshot) {
	var b strings.Builder

	fmt.Fprintf(&b, "VoxGuard  [%s]\n", snap.View)
	fmt.Fprintf(&b, "Language: %s\n", snap.Language)

	switch snap.View {
	case ViewRecording:
		fmt.Fprintf(&b, "Recording... %s\n", FormatTime(snap.RecordingSeconds))
	case ViewAnalyzing:
		b.WriteString("Deep spectral forensic analysis in progress...\n")
	}

	if snap.File != nil {
		fmt.Fprintf(&b, "Sample: %s (%s, %s)\n", snap.File.Name, snap.File.MimeType, FormatSize(snap.File.Size))
	} else if snap.View == ViewChooseInput {
		b.WriteString("Choose an audio file or record a sample.\n")
	}

	if r := snap.Result; r != nil {
		b.WriteString("\nFinal verdict: ")
		b.WriteString(strings.Replace(string(r.Classification), "_", " ", 1))
		b.WriteString("\n")
		fmt.Fprintf(&b, "Confidence: %d%%\n", ConfidencePercent(r))
		fmt.Fprintf(&b, "Language: %s\n", r.Language)
		if r.Explanation != "" {
			fmt.Fprintf(&b, "Explanation: %s\n", r.Explanation)
		}
	}

	if snap.Error != "" {
		fmt.Fprintf(&b, "\nError: %s\n", snap.Error)
	}

	io.WriteString(w, b.String())
}

// ConfidencePercent rounds the score to a whole percentage.
func ConfidencePercent(r *detection.AnalysisResult) int {
	return int(math.Round(r.ConfidenceScore * 100))
}

// FormatTime renders seconds as m:ss.
func FormatTime(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func FormatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
