package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rkuma140394/vox-Gaurd-detect/internal/domain/detection"
)

type reply struct {
	Classification  string   `json:"classification"`
	Confidence      *float64 `json:"confidence"`
	ConfidenceScore *float64 `json:"confidenceScore"`
	Explanation     string   `json:"explanation"`
}

// ParseVerdict decodes the model's JSON text. Extra fields are dropped; the
// confidence may arrive as "confidence" or "confidenceScore". Classification
// and explanation are kept exactly as the model wrote them.
func ParseVerdict(text string) (detection.Verdict, error) {
	body := stripFences(text)
	if body == "" {
		return detection.Verdict{}, fmt.Errorf("%w: empty reply", detection.ErrMalformedOutput)
	}

	var r reply
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return detection.Verdict{}, fmt.Errorf("%w: %v", detection.ErrMalformedOutput, err)
	}

	conf := r.Confidence
	if conf == nil {
		conf = r.ConfidenceScore
	}
	if conf == nil {
		return detection.Verdict{}, fmt.Errorf("%w: missing confidence", detection.ErrMalformedOutput)
	}

	return detection.Verdict{
		Classification: detection.Classification(r.Classification),
		Confidence:     *conf,
		Explanation:    r.Explanation,
	}, nil
}

// stripFences removes a ```json ... ``` wrapper some models add despite
// being asked not to.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
