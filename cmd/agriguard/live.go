package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-go/agriguard-live/internal/tui"
	"github.com/vango-go/agriguard-live/pkg/config"
	"github.com/vango-go/agriguard-live/pkg/core"
	"github.com/vango-go/agriguard-live/pkg/core/live"
	"github.com/vango-go/agriguard-live/pkg/core/providers/gemini"
	"github.com/vango-go/agriguard-live/pkg/device"
	"github.com/vango-go/agriguard-live/pkg/journal"
	"github.com/vango-go/agriguard-live/pkg/metrics"
	"github.com/vango-go/agriguard-live/pkg/prompts"
)

type liveFlags struct {
	language     string
	user         string
	transport    string
	model        string
	voice        string
	still        string
	cameraDevice string
	metricsAddr  string
	journal      string
	headless     bool
}

// liveDeps are the hardware and network edges of the live command.
type liveDeps struct {
	newTransport func(ctx context.Context, cfg config.Config, logger *slog.Logger) (live.Transport, error)
	newAcquirer  func(cfg config.Config, logger *slog.Logger) live.Acquirer
	newOutput    func(rate int) (func() (live.OutputDevice, error), error)
	runUI        func(ctx context.Context, m tea.Model) error
}

func defaultLiveDeps() liveDeps {
	return liveDeps{
		newTransport: newTransport,
		newAcquirer:  newAcquirer,
		newOutput: func(rate int) (func() (live.OutputDevice, error), error) {
			speaker, err := device.NewSpeaker(rate)
			if err != nil {
				return nil, err
			}
			return speaker.NewOutput, nil
		},
		runUI: runProgram,
	}
}

func newLiveCmd(root *rootFlags) *cobra.Command {
	flags := &liveFlags{}
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Start the live assistant",
		Long: `Live opens the camera and microphone and shows the terminal UI.
Press space to start or stop a session and q to quit.

With --headless a session starts immediately and transcripts go to the log.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			flags.apply(cmd, &cfg)
			if err := cfg.ValidateLive(); err != nil {
				return err
			}
			return runLive(cmd.Context(), cfg, flags.headless, defaultLiveDeps(), cmd.ErrOrStderr())
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.language, "language", "", "assistant language: en|kn|hi|te|ml|ta")
	f.StringVar(&flags.user, "user", "", "display name used in the assistant instruction")
	f.StringVar(&flags.transport, "transport", "", "session transport: sdk|websocket")
	f.StringVar(&flags.model, "model", "", "Gemini Live model")
	f.StringVar(&flags.voice, "voice", "", "prebuilt voice name")
	f.StringVar(&flags.still, "still", "", "use a JPEG or PNG file instead of the camera")
	f.StringVar(&flags.cameraDevice, "camera", "", "camera device passed to ffmpeg")
	f.StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	f.StringVar(&flags.journal, "journal", "", "session journal: none|memory|postgres|redis (history reads postgres or redis)")
	f.BoolVar(&flags.headless, "headless", false, "run without the terminal UI")
	return cmd
}

// apply copies flags the user set over the loaded configuration.
func (f *liveFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	set := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}
	set("language", &cfg.Language, f.language)
	set("user", &cfg.UserName, f.user)
	set("model", &cfg.Model, f.model)
	set("voice", &cfg.Voice, f.voice)
	set("still", &cfg.CameraStill, f.still)
	set("camera", &cfg.CameraDevice, f.cameraDevice)
	set("metrics-addr", &cfg.MetricsAddr, f.metricsAddr)
	set("journal", &cfg.JournalDriver, f.journal)
	if cmd.Flags().Changed("transport") {
		cfg.Transport = config.TransportKind(f.transport)
	}
}

func newTransport(ctx context.Context, cfg config.Config, logger *slog.Logger) (live.Transport, error) {
	switch cfg.Transport {
	case config.TransportWebSocket:
		return gemini.NewWSTransport(cfg.WSURL, cfg.APIKey, gemini.WithLogger(logger)), nil
	case config.TransportSDK:
		t, err := gemini.NewSDKTransport(ctx, cfg.APIKey, gemini.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, core.NewInvalidConfigError("must be one of sdk|websocket", "LIVE_TRANSPORT")
	}
}

func newAcquirer(cfg config.Config, logger *slog.Logger) live.Acquirer {
	return &device.Acquirer{
		Camera: device.CameraConfig{
			FFmpeg: cfg.FFmpegPath,
			Format: cfg.CameraFormat,
			Device: cfg.CameraDevice,
		},
		StillImage: cfg.CameraStill,
		SampleRate: cfg.Live().InputSampleRate,
		Logger:     logger,
	}
}

func journalOptions(cfg config.Config) []journal.Option {
	switch journal.Driver(cfg.JournalDriver) {
	case journal.DriverRedis:
		return []journal.Option{journal.WithRedisURL(cfg.RedisURL)}
	case journal.DriverPostgres:
		return []journal.Option{journal.WithDatabaseURL(cfg.DatabaseURL), journal.WithMigrations()}
	default:
		return nil
	}
}

func runLive(ctx context.Context, cfg config.Config, headless bool, deps liveDeps, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !prompts.Supported(cfg.Language) {
		return core.NewInvalidConfigError(fmt.Sprintf("unsupported language %q", cfg.Language), "LIVE_LANGUAGE")
	}

	logOut := stderr
	if !headless {
		f, err := openLogFile(cfg.LogFile)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	logger := setupLogger(logOut, cfg.LogLevel, cfg.LogFormat)

	transport, err := deps.newTransport(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("create transport: %w", err)
	}
	newOutput, err := deps.newOutput(cfg.Live().OutputSampleRate)
	if err != nil {
		return fmt.Errorf("open speaker: %w", err)
	}

	store, err := journal.Open(ctx, journal.Driver(cfg.JournalDriver), journalOptions(cfg)...)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer store.Close()

	var (
		observer live.Observer
		m        *metrics.Metrics
	)
	if cfg.MetricsAddr != "" {
		m = metrics.New("")
		observer = m
	}

	ctl, err := live.NewController(live.Options{
		Config:      cfg.Live(),
		Transport:   transport,
		Acquirer:    deps.newAcquirer(cfg, logger),
		NewOutput:   newOutput,
		Instruction: prompts.LiveInstruction,
		Logger:      logger,
		Observer:    observer,
		Recorder:    store,
	})
	if err != nil {
		return err
	}

	if err := ctl.Mount(ctx); err != nil {
		if headless {
			return err
		}
		logger.Warn("capture unavailable", "error", err)
	}
	defer func() {
		if err := ctl.Unmount(); err != nil {
			logger.Warn("release capture failed", "error", err)
		}
	}()

	logger.Info("agriguard live ready",
		"transport", cfg.Transport,
		"model", cfg.Model,
		"language", cfg.Language,
		"journal", cfg.JournalDriver,
		"metrics_addr", cfg.MetricsAddr,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if m != nil {
		srv := m.Server(cfg.MetricsAddr)
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		defer cancel()
		if headless {
			return runHeadless(gctx, ctl, logger)
		}
		return deps.runUI(gctx, tui.NewModel(gctx, ctl, cfg.Language, cfg.UserName))
	})

	return g.Wait()
}

func runProgram(ctx context.Context, m tea.Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// sessionController is what headless mode needs from live.Controller.
type sessionController interface {
	Start(ctx context.Context) error
	Stop()
	Snapshot() live.Snapshot
	Changed() <-chan struct{}
}

// runHeadless runs one session until it ends or ctx is cancelled.
func runHeadless(ctx context.Context, ctl sessionController, logger *slog.Logger) error {
	if err := ctl.Start(ctx); err != nil {
		return err
	}
	defer ctl.Stop()

	var (
		lastTranscript string
		wasActive      bool
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ctl.Changed():
		}

		snap := ctl.Snapshot()
		if snap.Transcript != "" && snap.Transcript != lastTranscript {
			lastTranscript = snap.Transcript
			logger.Info("transcript", "session_id", snap.SessionID, "text", snap.Transcript)
		}
		switch snap.State {
		case live.StateActive:
			if !wasActive {
				wasActive = true
				logger.Info("live session active", "session_id", snap.SessionID)
			}
		case live.StateIdle:
			switch snap.LastEnd {
			case live.EndUserStop, live.EndTransportClosed:
				return nil
			default:
				return fmt.Errorf("live session ended: %s", snap.LastEnd)
			}
		}
	}
}
