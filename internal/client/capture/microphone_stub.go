//go:build !portaudio

package capture

// NewMicrophone reports the device as unavailable in builds without the
// portaudio tag.
func NewMicrophone(MicOptions) (Recorder, error) {
	return nil, ErrMicrophoneUnavailable
}
