package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marlowe/dicta/internal/audio"
	"github.com/marlowe/dicta/internal/config"
	"github.com/marlowe/dicta/internal/input"
	"github.com/marlowe/dicta/internal/metrics"
	"github.com/marlowe/dicta/internal/output"
	"github.com/marlowe/dicta/internal/recorder"
	"github.com/marlowe/dicta/internal/share"
	"github.com/marlowe/dicta/internal/stream"
	"github.com/marlowe/dicta/internal/transcribe"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configFile     = flag.String("config", "", "Path to configuration file (default: ~/.dictarc or /etc/dicta/config.yaml)")
	audioDevice    = flag.String("device", "", "Audio input device name (use --list-devices to see available devices)")
	listDevices    = flag.Bool("list-devices", false, "List all available audio input devices")
	backend        = flag.String("backend", "", "Streaming backend: remote or local")
	modelPath      = flag.String("model-path", "", "Local recognition model directory (local backend)")
	language       = flag.String("language", "", "Transcription language code")
	listLanguages  = flag.Bool("list-languages", false, "List supported transcription languages")
	transcribeFile = flag.String("transcribe", "", "Transcribe an audio/video file instead of recording")
	noteFormat     = flag.String("format", "text", "Note export format: text, json, markdown")
	noteFile       = flag.String("output", "", "Note output file (default: stdout)")
	wavFile        = flag.String("wav", "", "Write the recording artifact to this WAV file")
	useHotkeys     = flag.Bool("hotkeys", false, "Register global hotkeys for record and pause toggles")
	metricsAddr    = flag.String("metrics", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	showVersion    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("dicta v%s\n", Version)
		fmt.Printf("  Commit: %s\n", GitCommit)
		fmt.Printf("  Built:  %s\n", BuildTime)
		os.Exit(0)
	}

	if *listDevices {
		if err := printDevices(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *listLanguages {
		for _, code := range transcribe.SupportedLanguages() {
			fmt.Println(code)
		}
		return
	}

	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}
	applyFlags(cfg)

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// applyFlags overrides configuration with any explicitly set flags
func applyFlags(cfg *config.Config) {
	flagsSet := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		flagsSet[f.Name] = true
	})

	if flagsSet["device"] {
		cfg.Audio.Device = *audioDevice
	}
	if flagsSet["backend"] {
		cfg.Stream.Backend = *backend
	}
	if flagsSet["model-path"] {
		cfg.Stream.ModelPath = *modelPath
	}
	if flagsSet["language"] {
		cfg.Language = *language
	}
	if flagsSet["metrics"] {
		cfg.Metrics.Addr = *metricsAddr
	}
}

func printDevices() error {
	devices, err := audio.ListDevices()
	if err != nil {
		return fmt.Errorf("failed to enumerate devices: %w", err)
	}
	for _, d := range devices {
		fmt.Println(d)
	}
	return nil
}

func run(cfg *config.Config) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	var met *metrics.Metrics
	if cfg.Metrics.Addr != "" {
		met = metrics.NewMetrics()
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				logger.Error("metrics listener failed", slog.String("error", err.Error()))
			}
		}()
	}

	rec, console, err := buildRecorder(cfg, logger, met)
	if err != nil {
		return err
	}

	// One-shot file transcription short-circuits the interactive session
	if *transcribeFile != "" {
		return transcribeOne(rec, console, cfg, *transcribeFile)
	}

	// A file shared from another application takes priority over recording
	if cfg.Share.StorePath != "" {
		handled, err := drainSharedFile(rec, console, cfg)
		if err != nil {
			console.Error(err.Error())
		}
		if handled {
			return nil
		}
	}

	return interactive(rec, console, cfg)
}

func buildRecorder(cfg *config.Config, logger *slog.Logger, met *metrics.Metrics) (*recorder.Recorder, *output.Console, error) {
	console := output.NewConsole(output.ConsoleConfig{})

	var dialer stream.Dialer
	switch cfg.Stream.Backend {
	case "remote":
		d, err := stream.NewRemoteDialer(stream.RemoteConfig{
			Endpoint: cfg.Stream.Endpoint,
			APIKey:   config.APIKey(),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("remote backend unavailable: %w (set DICTA_API_KEY)", err)
		}
		dialer = d
	case "local":
		if cfg.Stream.ModelPath == "" {
			return nil, nil, fmt.Errorf("local backend requires a model path")
		}
		dialer = stream.NewLocalDialer(cfg.Stream.ModelPath)
	default:
		return nil, nil, fmt.Errorf("unknown stream backend: %s", cfg.Stream.Backend)
	}

	captureCfg := audio.DefaultCaptureConfig()
	captureCfg.DeviceID = cfg.Audio.Device
	if cfg.Audio.SampleRate > 0 {
		captureCfg.SampleRate = cfg.Audio.SampleRate
	}
	if cfg.Audio.ChunkFrames > 0 {
		captureCfg.ChunkFrames = cfg.Audio.ChunkFrames
	}

	var client *transcribe.Client
	if key := config.APIKey(); key != "" {
		c, err := transcribe.NewClient(transcribe.Config{
			Endpoint: cfg.Transcribe.Endpoint,
			APIKey:   key,
			Model:    cfg.Transcribe.Model,
			Timeout:  time.Duration(cfg.Transcribe.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create transcription client: %w", err)
		}
		client = c
	}

	events := recorder.Events{
		OnStateChange: func(state recorder.State) {
			console.ShowState(state.String())
		},
		OnElapsed: func(seconds int) {
			console.ShowElapsed(seconds)
		},
		OnLiveText: func(live string) {
			console.ShowLive(live)
		},
		OnVisualFrame: func(frame []float32) {
			console.ShowLevel(audio.Level(frame), audio.Peak(frame))
		},
		OnSettled: func(settled string) {
			console.ShowSettled(settled)
		},
		OnError: func(err error) {
			console.Error(err.Error())
		},
	}

	opts := recorder.Options{
		CaptureConfig: captureCfg,
		Streams:       stream.NewManager(dialer, logger, met),
		StreamModel:   cfg.Stream.Model,
		Language:      cfg.Language,
		Logger:        logger,
		Metrics:       met,
	}
	if client != nil {
		opts.Transcriber = client
	}

	return recorder.New(opts, events), console, nil
}

// interactive runs the dictation loop: Enter toggles recording, "p" toggles
// pause, "q" quits.
func interactive(rec *recorder.Recorder, console *output.Console, cfg *config.Config) error {
	console.Info("Enter: start/stop recording, p: pause/resume, q: quit")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	toggleRecord := func() {
		if rec.State() == recorder.StateIdle {
			if err := rec.Start(ctx); err != nil {
				console.Error(err.Error())
			}
			return
		}
		if err := rec.Stop(); err != nil {
			console.Error(err.Error())
		}
		finishNote(rec, console, cfg)
	}
	togglePause := func() {
		var err error
		if rec.State() == recorder.StatePaused {
			err = rec.Resume()
		} else {
			err = rec.Pause()
		}
		if err != nil {
			console.Error(err.Error())
		}
	}

	if *useHotkeys {
		listener := input.NewListener(input.Actions{
			OnRecordToggle: toggleRecord,
			OnPauseToggle:  togglePause,
		})
		if err := listener.Start(ctx, input.DefaultBindings()); err != nil {
			return fmt.Errorf("failed to register hotkeys: %w", err)
		}
		defer listener.Stop()
	}

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		close(lines)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-sig:
			if err := rec.Stop(); err != nil {
				console.Error(err.Error())
			}
			finishNote(rec, console, cfg)
			return nil
		case line, ok := <-lines:
			if !ok {
				return rec.Stop()
			}
			switch line {
			case "q", "quit":
				if err := rec.Stop(); err != nil {
					console.Error(err.Error())
				}
				finishNote(rec, console, cfg)
				return nil
			case "p", "pause":
				togglePause()
			default:
				toggleRecord()
			}
		}
	}
}

// finishNote exports the settled note and writes the WAV artifact, if any
func finishNote(rec *recorder.Recorder, console *output.Console, cfg *config.Config) {
	text := rec.Note().View()
	if text == "" {
		return
	}

	note := output.Note{
		Text:       text,
		Language:   cfg.Language,
		RecordedAt: time.Now(),
	}

	if *wavFile != "" {
		if artifact := rec.Artifact(); artifact != nil {
			if secs, err := audio.WAVDuration(artifact); err == nil {
				note.DurationSecs = int(secs)
			}
			if err := os.WriteFile(*wavFile, artifact, 0644); err != nil {
				console.Error(fmt.Sprintf("failed to write artifact: %v", err))
			} else {
				note.ArtifactPath = *wavFile
			}
		}
	}

	if err := exportNote(note); err != nil {
		console.Error(fmt.Sprintf("failed to export note: %v", err))
	}
}

func transcribeOne(rec *recorder.Recorder, console *output.Console, cfg *config.Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if err := rec.TranscribeFile(context.Background(), filepath.Base(path), "", data); err != nil {
		return err
	}

	return exportNote(output.Note{
		Text:       rec.Note().View(),
		Language:   cfg.Language,
		RecordedAt: time.Now(),
	})
}

// drainSharedFile consumes a file handed off by another application. It
// reports whether a shared file was present and handled.
func drainSharedFile(rec *recorder.Recorder, console *output.Console, cfg *config.Config) (bool, error) {
	store, err := share.Open(cfg.Share.StorePath)
	if err != nil {
		return false, fmt.Errorf("failed to open handoff store: %w", err)
	}
	defer store.Close()

	shared, err := store.Take()
	if err != nil {
		return false, fmt.Errorf("failed to read handoff store: %w", err)
	}
	if shared == nil {
		return false, nil
	}

	console.Info(fmt.Sprintf("transcribing shared file %s", shared.Name))
	if err := rec.TranscribeFile(context.Background(), shared.Name, shared.MediaType, shared.Data); err != nil {
		return true, err
	}

	return true, exportNote(output.Note{
		Text:       rec.Note().View(),
		Language:   cfg.Language,
		RecordedAt: time.Now(),
	})
}

func exportNote(note output.Note) error {
	out := os.Stdout
	if *noteFile != "" {
		f, err := os.Create(*noteFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	var exporter output.Exporter
	switch *noteFormat {
	case "json":
		exporter = output.NewJSONExporter(out)
	case "markdown", "md":
		exporter = output.NewMarkdownExporter(out)
	default:
		exporter = output.NewTextExporter(out)
	}

	return exporter.Export(note)
}
