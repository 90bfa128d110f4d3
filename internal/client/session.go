package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rkuma140394/vox-Gaurd-detect/internal/client/capture"
	"github.com/rkuma140394/vox-Gaurd-detect/internal/domain/detection"
)

// User-facing messages.
const (
	MsgInvalidFileType   = "Invalid file type. Please upload an audio file."
	MsgMicUnavailable    = "Microphone access denied or not available."
	MsgAPIKeyRequired    = "A valid x-api-key is required for authentication."
	MsgNoSample          = "Please upload or record an audio sample first."
	MsgRecordingFailed   = "Recording failed. Please try again."
	MsgConnectionFailed  = "Connection to analysis endpoint failed."
	MsgAnalysisFailedKey = "Analysis failed. Check your API Key."
)

// View is the screen a session is on.
type View string

const (
	ViewChooseInput View = "choose-input"
	ViewRecording   View = "recording"
	ViewReady       View = "ready"
	ViewAnalyzing   View = "analyzing"
	ViewResult      View = "result"
)

// Analyzer sends a sample to the gateway.
type Analyzer interface {
	Analyze(ctx context.Context, apiKey string, language detection.Language, sample *capture.AudioSample) (detection.AnalysisResult, error)
}

// Session holds the state of one user's interaction. Methods are safe for
// concurrent use; the recording timer ticks from its own goroutine.
type Session struct {
	mu sync.Mutex

	Language         detection.Language
	APIKey           string
	File             *capture.AudioSample
	Recording        bool
	RecordingSeconds int
	Analyzing        bool
	Result           *detection.AnalysisResult
	Error            string

	analyzer    Analyzer
	newRecorder func() (capture.Recorder, error)
	now         func() time.Time
	tick        time.Duration
	log         zerolog.Logger

	recorder  capture.Recorder
	stopTimer chan struct{}
	timerDone chan struct{}

	// generation changes on Reset; an analysis started under an older one
	// is dropped when it returns.
	generation uint64
}

type Option func(*Session)

// WithRecorder sets how the microphone is opened.
func WithRecorder(f func() (capture.Recorder, error)) Option {
	return func(s *Session) { s.newRecorder = f }
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// NewSession starts on the choose-input view with English selected.
func NewSession(analyzer Analyzer, apiKey string, opts ...Option) *Session {
	s := &Session{
		Language: detection.LanguageEnglish,
		APIKey:   apiKey,
		analyzer: analyzer,
		newRecorder: func() (capture.Recorder, error) {
			return capture.NewMicrophone(capture.DefaultMicOptions())
		},
		now:  time.Now,
		tick: time.Second,
		log:  zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetLanguage picks the analysis language.
func (s *Session) SetLanguage(lang string) error {
	l, err := detection.ParseLanguage(lang)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.Language = l
	s.mu.Unlock()
	return nil
}

// SelectFile loads a file from disk. A non-audio file sets Error and leaves
// File unchanged.
func (s *Session) SelectFile(path string) error {
	sample, err := capture.LoadFile(path)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if errors.Is(err, capture.ErrNotAudio) {
			s.Error = MsgInvalidFileType
		} else {
			s.Error = err.Error()
		}
		return err
	}
	s.File = sample
	s.Error = ""
	s.Result = nil
	s.log.Debug().Str("file", sample.Name).Str("mime", sample.MimeType).Int64("size", sample.Size).Msg("file selected")
	return nil
}

// StartRecording opens the microphone and starts the once-a-second timer.
func (s *Session) StartRecording(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Recording {
		return nil
	}
	s.Error = ""
	s.Result = nil

	rec, err := s.newRecorder()
	if err == nil {
		err = rec.Start(ctx)
	}
	if err != nil {
		s.Error = MsgMicUnavailable
		s.log.Warn().Err(err).Msg("microphone unavailable")
		return err
	}

	s.recorder = rec
	s.Recording = true
	s.RecordingSeconds = 0
	s.stopTimer = make(chan struct{})
	s.timerDone = make(chan struct{})
	go s.runTimer(s.stopTimer, s.timerDone)
	return nil
}

func (s *Session) runTimer(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(s.tick)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			s.Tick()
		}
	}
}

// Tick advances the recording timer by one second.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Recording {
		s.RecordingSeconds++
	}
}

// StopRecording releases the microphone and turns the capture into a WAV sample.
func (s *Session) StopRecording() error {
	s.mu.Lock()
	if !s.Recording {
		s.mu.Unlock()
		return nil
	}
	rec := s.recorder
	s.recorder = nil
	s.Recording = false
	stop, done := s.stopTimer, s.timerDone
	s.stopTimer, s.timerDone = nil, nil
	s.mu.Unlock()

	close(stop)
	<-done

	pcm, err := rec.Stop()
	var sample *capture.AudioSample
	if err == nil {
		var data []byte
		if data, err = capture.EncodeWAV(pcm); err == nil {
			name := fmt.Sprintf("recorded-sample-%d.wav", s.now().UnixMilli())
			sample, err = capture.FromBytes(name, data)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.Error = MsgRecordingFailed
		s.log.Warn().Err(err).Msg("recording failed")
		return err
	}
	s.File = sample
	return nil
}

// CanAnalyze reports whether the analyze action is enabled.
func (s *Session) CanAnalyze() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canAnalyze()
}

func (s *Session) canAnalyze() bool {
	return s.APIKey != "" && s.File != nil && !s.Analyzing
}

// Analyze submits the current file. Analyzing is cleared on every path.
func (s *Session) Analyze(ctx context.Context) error {
	s.mu.Lock()
	if s.Analyzing {
		s.mu.Unlock()
		return nil
	}
	if s.File == nil {
		s.Error = MsgNoSample
		s.mu.Unlock()
		return errors.New(MsgNoSample)
	}
	if s.APIKey == "" {
		s.Error = MsgAPIKeyRequired
		s.mu.Unlock()
		return errors.New(MsgAPIKeyRequired)
	}
	s.Analyzing = true
	s.Error = ""
	key, lang, file := s.APIKey, s.Language, s.File
	gen := s.generation
	s.mu.Unlock()

	res, err := s.analyzer.Analyze(ctx, key, lang, file)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		s.log.Debug().Err(err).Msg("discarding analysis of a reset sample")
		return nil
	}
	s.Analyzing = false
	if err != nil {
		var apiErr *APIError
		switch {
		case errors.As(err, &apiErr) && apiErr.Message != "":
			s.Error = apiErr.Message
		case errors.Is(err, ErrConnection):
			s.Error = MsgConnectionFailed
		default:
			s.Error = MsgAnalysisFailedKey
		}
		s.log.Debug().Err(err).Msg("analysis failed")
		return err
	}
	s.Result = &res
	return nil
}

// Reset discards the sample and result and returns to choose-input. An
// analysis still in flight has its outcome dropped.
func (s *Session) Reset() {
	s.mu.Lock()
	s.generation++
	rec := s.recorder
	stop, done := s.stopTimer, s.timerDone
	s.recorder, s.stopTimer, s.timerDone = nil, nil, nil
	s.File = nil
	s.Result = nil
	s.Error = ""
	s.Recording = false
	s.RecordingSeconds = 0
	s.Analyzing = false
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	if rec != nil {
		if _, err := rec.Stop(); err != nil {
			s.log.Warn().Err(err).Msg("releasing microphone failed")
		}
	}
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

func (s *Session) view() View {
	switch {
	case s.Recording:
		return ViewRecording
	case s.Analyzing:
		return ViewAnalyzing
	case s.Result != nil:
		return ViewResult
	case s.File != nil:
		return ViewReady
	default:
		return ViewChooseInput
	}
}

// Snapshot is a copy of the session state for rendering.
type Snapshot struct {
	View             View
	Language         detection.Language
	File             *capture.AudioSample
	RecordingSeconds int
	Result           *detection.AnalysisResult
	Error            string
	CanAnalyze       bool
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		View:             s.view(),
		Language:         s.Language,
		File:             s.File,
		RecordingSeconds: s.RecordingSeconds,
		Result:           s.Result,
		Error:            s.Error,
		CanAnalyze:       s.canAnalyze(),
	}
}
