// Package config loads AgriGuard Live settings from the environment and
// optional dotenv files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/vango-go/agriguard-live/pkg/core"
	"github.com/vango-go/agriguard-live/pkg/core/live"
)

type TransportKind string

const (
	TransportSDK       TransportKind = "sdk"
	TransportWebSocket TransportKind = "websocket"
)

// DefaultEnvFiles are loaded by Load in order. Earlier files win because
// godotenv never overrides a variable that is already set.
var DefaultEnvFiles = []string{".env.local", ".env"}

type Config struct {
	APIKey    string
	Model     string
	Voice     string
	Transport TransportKind
	// WSURL overrides the Gemini Live endpoint for the websocket transport.
	WSURL string

	Language string
	UserName string

	FrameInterval time.Duration
	FrameMaxWidth int
	FrameQuality  int

	CameraDevice string
	CameraFormat string
	CameraStill  string
	FFmpegPath   string

	JournalDriver string
	DatabaseURL   string
	RedisURL      string

	// MetricsAddr enables the Prometheus endpoint when non-empty.
	MetricsAddr string

	LogLevel  string
	LogFormat string
	LogFile   string
}

// Load reads the dotenv files that exist, then the environment.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = DefaultEnvFiles
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return LoadFromEnv()
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		APIKey:        envOr("GEMINI_API_KEY", os.Getenv("GOOGLE_API_KEY")),
		Model:         envOr("LIVE_MODEL", live.DefaultModel),
		Voice:         envOr("LIVE_VOICE", live.DefaultVoice),
		Transport:     TransportKind(strings.ToLower(envOr("LIVE_TRANSPORT", string(TransportSDK)))),
		WSURL:         envOr("LIVE_WS_URL", ""),
		Language:      strings.ToLower(envOr("LIVE_LANGUAGE", "en")),
		UserName:      envOr("LIVE_USER_NAME", ""),
		FrameInterval: envDurationOr("LIVE_FRAME_INTERVAL", live.DefaultFrameInterval),
		FrameMaxWidth: envIntOr("LIVE_FRAME_MAX_WIDTH", live.DefaultFrameMaxWidth),
		FrameQuality:  envIntOr("LIVE_FRAME_QUALITY", live.DefaultFrameQuality),
		CameraDevice:  envOr("CAMERA_DEVICE", ""),
		CameraFormat:  envOr("CAMERA_FORMAT", ""),
		CameraStill:   envOr("CAMERA_STILL", ""),
		FFmpegPath:    envOr("FFMPEG_PATH", "ffmpeg"),
		JournalDriver: strings.ToLower(envOr("JOURNAL_DRIVER", "none")),
		DatabaseURL:   envOr("DATABASE_URL", ""),
		RedisURL:      envOr("REDIS_URL", ""),
		MetricsAddr:   envOr("METRICS_ADDR", ""),
		LogLevel:      strings.ToLower(envOr("LOG_LEVEL", "info")),
		LogFormat:     strings.ToLower(envOr("LOG_FORMAT", "text")),
		LogFile:       envOr("LOG_FILE", "agriguard.log"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every setting except the API key, which only live mode
// needs.
func (c Config) Validate() error {
	switch c.Transport {
	case TransportSDK, TransportWebSocket:
	default:
		return core.NewInvalidConfigError("must be one of sdk|websocket", "LIVE_TRANSPORT")
	}
	if c.FrameInterval <= 0 {
		return core.NewInvalidConfigError("must be > 0", "LIVE_FRAME_INTERVAL")
	}
	if c.FrameMaxWidth <= 0 {
		return core.NewInvalidConfigError("must be > 0", "LIVE_FRAME_MAX_WIDTH")
	}
	if c.FrameQuality < 1 || c.FrameQuality > 100 {
		return core.NewInvalidConfigError("must be between 1 and 100", "LIVE_FRAME_QUALITY")
	}
	switch c.JournalDriver {
	case "none", "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return core.NewInvalidConfigError("required for the postgres journal", "DATABASE_URL")
		}
	case "redis":
		if c.RedisURL == "" {
			return core.NewInvalidConfigError("required for the redis journal", "REDIS_URL")
		}
	default:
		return core.NewInvalidConfigError("must be one of none|memory|postgres|redis", "JOURNAL_DRIVER")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return core.NewInvalidConfigError("must be text or json", "LOG_FORMAT")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return core.NewInvalidConfigError("must be one of debug|info|warn|error", "LOG_LEVEL")
	}
	return nil
}

// ValidateLive additionally requires the credentials for a live session.
func (c Config) ValidateLive() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return core.NewInvalidConfigError("required for live sessions", "GEMINI_API_KEY")
	}
	return nil
}

// Live returns the session controller settings.
func (c Config) Live() live.Config {
	cfg := live.DefaultConfig()
	cfg.Model = c.Model
	cfg.Voice = c.Voice
	cfg.Language = c.Language
	cfg.UserName = c.UserName
	cfg.FrameInterval = c.FrameInterval
	cfg.FrameMaxWidth = c.FrameMaxWidth
	cfg.FrameQuality = c.FrameQuality
	return cfg
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// envDurationOr accepts Go durations and bare milliseconds.
func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
