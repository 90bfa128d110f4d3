//go:build portaudio

package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Microphone records the default input device through portaudio.
type Microphone struct {
	o MicOptions
	b []int32
	s *portaudio.Stream

	mu      sync.Mutex
	samples []int
	err     error
	done    chan struct{}
	cancel  context.CancelFunc
}

// NewMicrophone initializes portaudio. The device is opened on Start.
func NewMicrophone(o MicOptions) (Recorder, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMicrophoneUnavailable, err)
	}
	return &Microphone{o: o, b: make([]int32, o.BufferLength*o.NumChannels)}, nil
}

func (m *Microphone) Start(ctx context.Context) (err error) {
	if m.s, err = portaudio.OpenDefaultStream(m.o.NumChannels, 0, float64(m.o.SampleRate), m.o.BufferLength, m.b); err != nil {
		portaudio.Terminate()
		return fmt.Errorf("%w: opening default stream failed: %v", ErrMicrophoneUnavailable, err)
	}
	if err = m.s.Start(); err != nil {
		m.s.Close()
		portaudio.Terminate()
		return fmt.Errorf("%w: starting stream failed: %v", ErrMicrophoneUnavailable, err)
	}

	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	go m.read(ctx)
	return nil
}

func (m *Microphone) read(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := m.s.Read(); err != nil {
			m.mu.Lock()
			m.err = fmt.Errorf("capture: reading from stream failed: %w", err)
			m.mu.Unlock()
			return
		}
		m.mu.Lock()
		for _, v := range m.b {
			// 32-bit capture stored as 16-bit PCM
			m.samples = append(m.samples, int(v>>16))
		}
		m.mu.Unlock()
	}
}

func (m *Microphone) Stop() (PCM, error) {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}

	var errs []error
	if m.s != nil {
		if err := m.s.Stop(); err != nil {
			errs = append(errs, err)
		}
		if err := m.s.Close(); err != nil {
			errs = append(errs, err)
		}
		m.s = nil
	}
	if err := portaudio.Terminate(); err != nil {
		errs = append(errs, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return PCM{}, m.err
	}
	if len(errs) > 0 {
		return PCM{}, fmt.Errorf("capture: releasing microphone failed: %v", errs)
	}
	return PCM{
		Samples:     m.samples,
		SampleRate:  m.o.SampleRate,
		NumChannels: m.o.NumChannels,
		BitDepth:    16,
	}, nil
}
