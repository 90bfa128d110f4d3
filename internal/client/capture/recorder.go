package capture

import (
	"context"
	"errors"
)

// ErrMicrophoneUnavailable means no capture device could be opened.
var ErrMicrophoneUnavailable = errors.New("microphone not available")

// Recorder captures audio from an input device.
type Recorder interface {
	// Start opens the device and begins capturing until Stop or ctx is done.
	Start(ctx context.Context) error
	// Stop ends the capture and releases the device, even on error.
	Stop() (PCM, error)
}

// MicOptions configures the default input stream.
type MicOptions struct {
	SampleRate   int
	NumChannels  int
	BufferLength int
}

func DefaultMicOptions() MicOptions {
	return MicOptions{SampleRate: 16000, NumChannels: 1, BufferLength: 1024}
}
