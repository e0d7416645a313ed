// Command voxprep is a terminal client for practising job interviews against
// a realtime voice AI interviewer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voxprep/voxprep/internal/config"
	"github.com/voxprep/voxprep/internal/observe"
	"github.com/voxprep/voxprep/internal/session"
	"github.com/voxprep/voxprep/pkg/channel/gemini"
	"github.com/voxprep/voxprep/pkg/device"
	"github.com/voxprep/voxprep/pkg/device/miniaudio"
	"github.com/voxprep/voxprep/pkg/device/v4l2"
	"github.com/voxprep/voxprep/pkg/playback"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	role := flag.String("role", "", "job role to interview for (overrides config)")
	experience := flag.String("experience", "", "experience level: Entry Level, Mid-Level, or Senior (overrides config)")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voxprep: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voxprep: %v\n", err)
		}
		return 1
	}
	if *role != "" {
		cfg.Interview.Role = *role
	}
	if *experience != "" {
		cfg.Interview.Experience = config.Experience(*experience)
		if !cfg.Interview.Experience.IsValid() {
			fmt.Fprintf(os.Stderr, "voxprep: experience %q is invalid; valid values: %q, %q, %q\n",
				*experience, config.ExperienceEntry, config.ExperienceMid, config.ExperienceSenior)
			return 1
		}
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("voxprep starting",
		"config", *configPath,
		"role", cfg.Interview.Role,
		"experience", cfg.Interview.Experience,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observe.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.Server.MetricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Warn("metrics server error", "err", err)
			}
		}()
		slog.Info("metrics endpoint listening", "addr", cfg.Server.MetricsAddr)
	}

	// ── Channel provider ──────────────────────────────────────────────────────
	var provOpts []gemini.Option
	if cfg.Channel.Model != "" {
		provOpts = append(provOpts, gemini.WithModel(cfg.Channel.Model))
	}
	if cfg.Channel.BaseURL != "" {
		provOpts = append(provOpts, gemini.WithBaseURL(cfg.Channel.BaseURL))
	}
	provider := gemini.New(cfg.Channel.APIKey, provOpts...)

	// ── Playback sink ─────────────────────────────────────────────────────────
	speaker, err := playback.NewSpeaker(cfg.Audio.OutputSampleRate)
	if err != nil {
		slog.Error("failed to open audio output", "err", err)
		return 1
	}
	defer func() { _ = speaker.Close() }()

	// ── Session ───────────────────────────────────────────────────────────────
	printStartupSummary(cfg)

	mgr := session.NewManager(cfg, provider, newOpener(cfg), speaker)
	if err := mgr.Start(ctx); err != nil {
		return 1
	}

	slog.Info("interview running — press Ctrl+C to end the session")

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received, stopping…")
		mgr.Stop()
	case <-mgr.Done():
	}

	printTranscript(mgr.Transcript())

	if err := mgr.Err(); err != nil {
		slog.Error("session error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Device wiring ─────────────────────────────────────────────────────────────

// newOpener builds the device.Opener used by the session manager: the default
// microphone through miniaudio, plus the configured V4L2 camera when video is
// enabled. Opening is all-or-nothing so a half-open device set never leaks.
func newOpener(cfg *config.Config) device.Opener {
	return func(_ context.Context, devCfg device.Config) (*device.Device, error) {
		audio, err := miniaudio.Open(devCfg)
		if err != nil {
			return nil, err
		}

		dev := &device.Device{Audio: audio}
		if cfg.Video.Enabled {
			camera, err := v4l2.Open(cfg.Video.Device, cfg.Video.Width, cfg.Video.Height)
			if err != nil {
				_ = audio.Close()
				return nil, err
			}
			dev.Camera = camera
		}
		return dev, nil
	}
}

// ── Output ────────────────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        voxprep — interview setup      ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printField("Role", cfg.Interview.Role)
	printField("Experience", string(cfg.Interview.Experience))
	printField("Model", cfg.Channel.Model)
	printField("Voice", cfg.Channel.Voice)
	if cfg.Video.Enabled {
		printField("Camera", cfg.Video.Device)
	} else {
		printField("Camera", "(disabled)")
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printField(name, value string) {
	if value == "" {
		value = "(default)"
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-14s  : %-19s ║\n", name, value)
}

// printTranscript writes the completed conversation to stdout so the
// candidate can review the interview afterwards.
func printTranscript(tr *session.Transcript) {
	entries := tr.Entries()
	if len(entries) == 0 {
		return
	}

	fmt.Println()
	fmt.Println("── Interview transcript ──")
	for _, e := range entries {
		mins := int(e.Timestamp.Minutes())
		secs := int(e.Timestamp.Seconds()) % 60
		speaker := "Interviewer"
		if e.Speaker == session.SpeakerUser {
			speaker = "You"
		}
		fmt.Printf("[%02d:%02d] %s: %s\n", mins, secs, speaker, e.Text)
	}
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
