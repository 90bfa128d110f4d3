package capture

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const audioFormatPCM = 1

// PCM is interleaved integer audio as captured from the microphone.
type PCM struct {
	Samples     []int
	SampleRate  int
	NumChannels int
	BitDepth    int
}

var ErrEmptyRecording = errors.New("recording is empty")

// EncodeWAV writes p as a PCM WAV file and returns its bytes.
// The encoder needs a seekable writer, so it goes through a temp file.
func EncodeWAV(p PCM) ([]byte, error) {
	if len(p.Samples) == 0 {
		return nil, ErrEmptyRecording
	}
	if p.SampleRate <= 0 || p.NumChannels <= 0 || p.BitDepth <= 0 {
		return nil, fmt.Errorf("capture: invalid pcm format %d Hz, %d ch, %d bit", p.SampleRate, p.NumChannels, p.BitDepth)
	}

	f, err := os.CreateTemp("", "voxguard-*.wav")
	if err != nil {
		return nil, fmt.Errorf("capture: creating temp wav failed: %w", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	e := wav.NewEncoder(f, p.SampleRate, p.BitDepth, p.NumChannels, audioFormatPCM)
	if err := e.Write(&audio.IntBuffer{
		Data: p.Samples,
		Format: &audio.Format{
			NumChannels: p.NumChannels,
			SampleRate:  p.SampleRate,
		},
		SourceBitDepth: p.BitDepth,
	}); err != nil {
		return nil, fmt.Errorf("capture: writing wav failed: %w", err)
	}
	if err := e.Close(); err != nil {
		return nil, fmt.Errorf("capture: closing wav encoder failed: %w", err)
	}

	return os.ReadFile(f.Name())
}
