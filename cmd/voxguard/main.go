package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/rkuma140394/vox-Gaurd-detect/internal/client"
)

var (
	gateway  = flag.String("gateway", client.DefaultGateway, "VoxGuard gateway base URL")
	apiKey   = flag.String("key", "", "x-api-key for the gateway (default $VOXGUARD_API_KEY)")
	language = flag.String("language", "English", "sample language: English, Tamil, Hindi, Malayalam or Telugu")
	file     = flag.String("file", "", "audio file to analyze")
	record   = flag.Duration("record", 0, "record from the microphone for this long instead of reading a file")
	verbose  = flag.Bool("v", false, "debug logging")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger().Level(level)

	key := *apiKey
	if key == "" {
		key = os.Getenv("VOXGUARD_API_KEY")
	}
	if *file == "" && *record <= 0 {
		fmt.Fprintln(os.Stderr, "voxguard: one of -file or -record is required")
		flag.Usage()
		os.Exit(2)
	}

	s := client.NewSession(client.NewAPIClient(*gateway), key, client.WithLogger(log))
	if err := s.SetLanguage(*language); err != nil {
		fmt.Fprintf(os.Stderr, "voxguard: %v\n", err)
		os.Exit(2)
	}

	if *file != "" {
		_ = s.SelectFile(*file)
	} else if err := recordSample(s, *record); err != nil {
		log.Debug().Err(err).Msg("recording failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !s.CanAnalyze() {
		if s.Snapshot().Error == "" && key == "" {
			// surfaces the missing-key message
			_ = s.Analyze(ctx)
		}
		client.Render(os.Stdout, s.Snapshot())
		os.Exit(1)
	}

	client.Render(os.Stdout, s.Snapshot())
	fmt.Println()

	err := s.Analyze(ctx)
	client.Render(os.Stdout, s.Snapshot())
	s.Reset()
	if err != nil {
		os.Exit(1)
	}
}

// recordSample records for d, or until interrupted, printing the timer.
func recordSample(s *client.Session, d time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.StartRecording(ctx); err != nil {
		return err
	}

	deadline := time.NewTimer(d)
	defer deadline.Stop()
	progress := time.NewTicker(time.Second)
	defer progress.Stop()

	for {
		select {
		case <-ctx.Done():
			return s.StopRecording()
		case <-deadline.C:
			fmt.Fprintln(os.Stderr)
			return s.StopRecording()
		case <-progress.C:
			fmt.Fprintf(os.Stderr, "\rRecording... %s", client.FormatTime(s.Snapshot().RecordingSeconds))
		}
	}
}
