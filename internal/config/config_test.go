package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"webcast/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_RUNTIME_DIR", "")
	t.Setenv("WEBCAST_PAGE_URL", "https://radio.example/live")
	t.Setenv("WEBCAST_PUBLISH_URL", "rtmps://ingest.example/app/key")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if cfg.Stream.PageURL != "https://radio.example/live" {
		t.Fatalf("expected page URL from env, got %q", cfg.Stream.PageURL)
	}
	if cfg.Capture.RenderWidth != 1280 || cfg.Capture.RenderHeight != 720 {
		t.Fatalf("unexpected render dims: %dx%d", cfg.Capture.RenderWidth, cfg.Capture.RenderHeight)
	}
	if cfg.Capture.OutputWidth != 1280 || cfg.Capture.OutputHeight != 720 {
		t.Fatalf("output dims should default to render dims, got %dx%d", cfg.Capture.OutputWidth, cfg.Capture.OutputHeight)
	}
	if cfg.QualityTier() != config.QualityStandard {
		t.Fatalf("unexpected quality tier: %q", cfg.QualityTier())
	}
	if cfg.Interaction.HasClickPoint() {
		t.Fatal("expected no click point by default")
	}
	wantLog := filepath.Join(tempHome, ".local", "share", "webcast", "logs")
	if cfg.Logging.Dir != wantLog {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Logging.Dir, wantLog)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	info, err := os.Stat(cfg.Logging.Dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected log directory to exist: %v", err)
	}
}

func TestLoadCustomPathOutputDimsRoundTrip(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "webcast.toml")

	type payload struct {
		Stream struct {
			PageURL    string `toml:"page_url"`
			PublishURL string `toml:"publish_url"`
		} `toml:"stream"`
		Capture struct {
			RenderWidth  int `toml:"render_width"`
			RenderHeight int `toml:"render_height"`
			OutputWidth  int `toml:"output_width"`
			OutputHeight int `toml:"output_height"`
			FrameRate    int `toml:"frame_rate"`
		} `toml:"capture"`
	}
	custom := payload{}
	custom.Stream.PageURL = "https://example.com/player"
	custom.Stream.PublishURL = "rtmp://ingest.example/live/abc"
	custom.Capture.RenderWidth = 1920
	custom.Capture.RenderHeight = 1080
	custom.Capture.OutputWidth = 1280
	custom.Capture.OutputHeight = 720
	custom.Capture.FrameRate = 30

	raw, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := os.WriteFile(configPath, raw, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("WEBCAST_PAGE_URL", "")
	t.Setenv("WEBCAST_PUBLISH_URL", "")

	cfg, _, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.Capture.OutputWidth != 1280 || cfg.Capture.OutputHeight != 720 {
		t.Fatalf("explicit output dims must pass through unchanged, got %dx%d", cfg.Capture.OutputWidth, cfg.Capture.OutputHeight)
	}
	if cfg.Capture.RenderWidth != 1920 || cfg.Capture.RenderHeight != 1080 {
		t.Fatalf("unexpected render dims: %dx%d", cfg.Capture.RenderWidth, cfg.Capture.RenderHeight)
	}
}

func TestLightweightTierOverridesFrameRate(t *testing.T) {
	cfg := config.Default()
	cfg.Stream.PageURL = "https://example.com"
	cfg.Stream.PublishURL = "rtmps://ingest.example/live"
	cfg.Capture.Quality = "lightweight"
	cfg.Capture.FrameRate = 30

	if got := cfg.EffectiveFrameRate(); got != 1 {
		t.Fatalf("lightweight tier frame rate = %d, want 1", got)
	}
	cfg.Capture.Quality = "standard"
	if got := cfg.EffectiveFrameRate(); got != 30 {
		t.Fatalf("standard tier frame rate = %d, want 30", got)
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "missing page url",
			mutate: func(c *config.Config) { c.Stream.PageURL = "" },
			want:   "page_url",
		},
		{
			name:   "missing publish url",
			mutate: func(c *config.Config) { c.Stream.PublishURL = "" },
			want:   "publish_url",
		},
		{
			name:   "bad publish scheme",
			mutate: func(c *config.Config) { c.Stream.PublishURL = "ftp://example.com/live" },
			want:   "publish_url",
		},
		{
			name:   "bad quality",
			mutate: func(c *config.Config) { c.Capture.Quality = "potato" },
			want:   "quality",
		},
		{
			name:   "half click point",
			mutate: func(c *config.Config) { c.Interaction.ClickX = 10 },
			want:   "click_x",
		},
		{
			name:   "zero frame rate",
			mutate: func(c *config.Config) { c.Capture.FrameRate = 0 },
			want:   "frame_rate",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Stream.PageURL = "https://example.com/player"
			cfg.Stream.PublishURL = "rtmps://ingest.example/live"
			cfg.Capture.OutputWidth = cfg.Capture.RenderWidth
			cfg.Capture.OutputHeight = cfg.Capture.RenderHeight
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestSinkMonitorName(t *testing.T) {
	cfg := config.Default()
	if got := cfg.SinkMonitor(); got != "webcast_sink.monitor" {
		t.Fatalf("unexpected monitor name %q", got)
	}
}
