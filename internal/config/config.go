package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Quality names a bundle of frame rate/bitrate/preset trade-offs.
type Quality string

const (
	QualityStandard    Quality = "standard"
	QualityLightweight Quality = "lightweight"
)

// Stream identifies the page to capture and the endpoint to publish to.
type Stream struct {
	PageURL    string `toml:"page_url"`
	PublishURL string `toml:"publish_url"`
}

// Capture contains render/output geometry, frame rate, and quality tier.
type Capture struct {
	RenderWidth  int    `toml:"render_width"`
	RenderHeight int    `toml:"render_height"`
	OutputWidth  int    `toml:"output_width"`
	OutputHeight int    `toml:"output_height"`
	FrameRate    int    `toml:"frame_rate"`
	Quality      string `toml:"quality"`
	VideoDevice  string `toml:"video_device"`
	AudioDevice  string `toml:"audio_device"`
}

// Interaction describes the optional click used to unlock audio playback.
// ClickX/ClickY of -1 mean no coordinate click is configured.
type Interaction struct {
	Selector         string `toml:"selector"`
	ClickX           int    `toml:"click_x"`
	ClickY           int    `toml:"click_y"`
	PostClickDelayMS int    `toml:"post_click_delay_ms"`
}

// Render contains browser launch and navigation settings.
type Render struct {
	Binary                string `toml:"binary"`
	NavTimeout            int    `toml:"nav_timeout"`
	LightweightNavTimeout int    `toml:"lightweight_nav_timeout"`
	SettleDelay           int    `toml:"settle_delay"`
}

// Audio contains virtual sink naming and polling bounds for the audio daemon.
type Audio struct {
	SinkName           string `toml:"sink_name"`
	RuntimeDirBase     string `toml:"runtime_dir"`
	ReadyAttempts      int    `toml:"ready_attempts"`
	ReadyIntervalMS    int    `toml:"ready_interval_ms"`
	ConvergeAttempts   int    `toml:"converge_attempts"`
	ConvergeIntervalMS int    `toml:"converge_interval_ms"`
	LoopbackLatencyMS  int    `toml:"loopback_latency_ms"`
}

// Display contains virtual display selection and startup bounds.
type Display struct {
	BaseNumber   int `toml:"base_number"`
	StartTimeout int `toml:"start_timeout"`
}

// Publish contains transcoder supervision settings.
type Publish struct {
	ConfirmWindow int      `toml:"confirm_window"`
	ErrorMarkers  []string `toml:"error_markers"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Session contains settings for the session supervisor itself.
type Session struct {
	LockPath string `toml:"lock_path"`
}

// Config encapsulates all configuration values for webcast.
type Config struct {
	Stream      Stream      `toml:"stream"`
	Capture     Capture     `toml:"capture"`
	Interaction Interaction `toml:"interaction"`
	Render      Render      `toml:"render"`
	Audio       Audio       `toml:"audio"`
	Display     Display     `toml:"display"`
	Publish     Publish     `toml:"publish"`
	Logging     Logging     `toml:"logging"`
	Session     Session     `toml:"session"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/webcast/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and geometry defaults applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.validateStatic(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("webcast.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the session needs at runtime.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Logging.Dir, c.Audio.RuntimeDirBase}
	if lockDir := filepath.Dir(c.Session.LockPath); lockDir != "" && lockDir != "." {
		dirs = append(dirs, lockDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QualityTier returns the normalized quality tier.
func (c *Config) QualityTier() Quality {
	if strings.EqualFold(strings.TrimSpace(c.Capture.Quality), string(QualityLightweight)) {
		return QualityLightweight
	}
	return QualityStandard
}

// EffectiveFrameRate resolves the capture frame rate after tier overrides.
// The lightweight tier always captures at 1 fps regardless of the configured
// rate; it exists to stream mostly-static pages where audio is the payload.
func (c *Config) EffectiveFrameRate() int {
	if c.QualityTier() == QualityLightweight {
		return lightweightFrameRate
	}
	if c.Capture.FrameRate <= 0 {
		return defaultFrameRate
	}
	return c.Capture.FrameRate
}

// HasClickPoint reports whether a coordinate click target is configured.
func (i Interaction) HasClickPoint() bool {
	return i.ClickX >= 0 && i.ClickY >= 0
}

// SinkMonitor returns the pulse source name that reads the session sink back.
func (c *Config) SinkMonitor() string {
	return c.Audio.SinkName + ".monitor"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
