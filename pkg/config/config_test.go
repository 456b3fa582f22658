package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vango-go/agriguard-live/pkg/core"
	"github.com/vango-go/agriguard-live/pkg/core/live"
)

var envKeys = []string{
	"GEMINI_API_KEY",
	"GOOGLE_API_KEY",
	"LIVE_MODEL",
	"LIVE_VOICE",
	"LIVE_TRANSPORT",
	"LIVE_WS_URL",
	"LIVE_LANGUAGE",
	"LIVE_USER_NAME",
	"LIVE_FRAME_INTERVAL",
	"LIVE_FRAME_MAX_WIDTH",
	"LIVE_FRAME_QUALITY",
	"CAMERA_DEVICE",
	"CAMERA_FORMAT",
	"CAMERA_STILL",
	"FFMPEG_PATH",
	"JOURNAL_DRIVER",
	"DATABASE_URL",
	"REDIS_URL",
	"METRICS_ADDR",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"LOG_FILE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if cfg.Model != live.DefaultModel {
		t.Fatalf("Model = %q, want %q", cfg.Model, live.DefaultModel)
	}
	if cfg.Voice != "Puck" {
		t.Fatalf("Voice = %q, want Puck", cfg.Voice)
	}
	if cfg.Transport != TransportSDK {
		t.Fatalf("Transport = %q, want sdk", cfg.Transport)
	}
	if cfg.Language != "en" {
		t.Fatalf("Language = %q, want en", cfg.Language)
	}
	if cfg.FrameInterval != time.Second {
		t.Fatalf("FrameInterval = %v, want 1s", cfg.FrameInterval)
	}
	if cfg.FrameMaxWidth != 480 || cfg.FrameQuality != 60 {
		t.Fatalf("frame = %d/%d, want 480/60", cfg.FrameMaxWidth, cfg.FrameQuality)
	}
	if cfg.JournalDriver != "none" {
		t.Fatalf("JournalDriver = %q, want none", cfg.JournalDriver)
	}
	if cfg.MetricsAddr != "" {
		t.Fatalf("MetricsAddr = %q, want empty", cfg.MetricsAddr)
	}
	if err := cfg.ValidateLive(); !core.IsType(err, core.ErrInvalidConfig) {
		t.Fatalf("ValidateLive() error = %v, want invalid config", err)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("LIVE_TRANSPORT", "WebSocket")
	t.Setenv("LIVE_LANGUAGE", "KN")
	t.Setenv("LIVE_USER_NAME", "Ravi")
	t.Setenv("LIVE_FRAME_INTERVAL", "1500")
	t.Setenv("LIVE_FRAME_QUALITY", "80")
	t.Setenv("JOURNAL_DRIVER", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if err := cfg.ValidateLive(); err != nil {
		t.Fatalf("ValidateLive() error = %v", err)
	}
	if cfg.Transport != TransportWebSocket {
		t.Fatalf("Transport = %q, want websocket", cfg.Transport)
	}
	if cfg.FrameInterval != 1500*time.Millisecond {
		t.Fatalf("FrameInterval = %v, want 1.5s", cfg.FrameInterval)
	}

	lc := cfg.Live()
	if lc.Language != "kn" || lc.UserName != "Ravi" || lc.FrameQuality != 80 {
		t.Fatalf("Live() = %+v", lc)
	}
	if lc.AudioBlockSize != live.DefaultAudioBlockSize {
		t.Fatalf("AudioBlockSize = %d, want %d", lc.AudioBlockSize, live.DefaultAudioBlockSize)
	}
}

func TestLoadFromEnv_GoogleAPIKeyFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_API_KEY", "fallback")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if cfg.APIKey != "fallback" {
		t.Fatalf("APIKey = %q, want fallback", cfg.APIKey)
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		key, value, setting string
	}{
		{"LIVE_TRANSPORT", "grpc", "LIVE_TRANSPORT"},
		{"LIVE_FRAME_QUALITY", "0", "LIVE_FRAME_QUALITY"},
		{"LIVE_FRAME_MAX_WIDTH", "-1", "LIVE_FRAME_MAX_WIDTH"},
		{"JOURNAL_DRIVER", "postgres", "DATABASE_URL"},
		{"JOURNAL_DRIVER", "sqlite", "JOURNAL_DRIVER"},
		{"LOG_FORMAT", "xml", "LOG_FORMAT"},
		{"LOG_LEVEL", "trace", "LOG_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := LoadFromEnv()
			if err == nil {
				t.Fatal("LoadFromEnv() error = nil, want error")
			}
			cerr, ok := err.(*core.Error)
			if !ok {
				t.Fatalf("error type = %T, want *core.Error", err)
			}
			if cerr.Code != tt.setting {
				t.Fatalf("Code = %q, want %q", cerr.Code, tt.setting)
			}
		})
	}
}

func TestLoad_DotenvFiles(t *testing.T) {
	clearEnv(t)
	for _, key := range []string{"GEMINI_API_KEY", "LIVE_VOICE", "LIVE_USER_NAME"} {
		os.Unsetenv(key)
	}
	t.Setenv("LIVE_LANGUAGE", "hi")

	dir := t.TempDir()
	local := filepath.Join(dir, ".env.local")
	base := filepath.Join(dir, ".env")
	writeFile(t, local, "LIVE_VOICE=Kore\n")
	writeFile(t, base, "LIVE_VOICE=Charon\nGEMINI_API_KEY=from-dotenv\nLIVE_LANGUAGE=ta\nLIVE_USER_NAME=Asha\n")

	cfg, err := Load(local, base, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Voice != "Kore" {
		t.Fatalf("Voice = %q, want Kore from .env.local", cfg.Voice)
	}
	if cfg.APIKey != "from-dotenv" {
		t.Fatalf("APIKey = %q, want from-dotenv", cfg.APIKey)
	}
	if cfg.Language != "hi" {
		t.Fatalf("Language = %q, want hi from the environment", cfg.Language)
	}
	if cfg.UserName != "Asha" {
		t.Fatalf("UserName = %q, want Asha", cfg.UserName)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}
