package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultRenderWidth       = 1280
	defaultRenderHeight      = 720
	defaultFrameRate         = 30
	lightweightFrameRate     = 1
	defaultQuality           = "standard"
	defaultPostClickDelayMS  = 3000
	defaultNavTimeout        = 60
	defaultLightNavTimeout   = 20
	defaultSettleDelay       = 3
	defaultSinkName          = "webcast_sink"
	defaultReadyAttempts     = 10
	defaultReadyIntervalMS   = 500
	defaultConvergeAttempts  = 20
	defaultConvergeInterval  = 2000
	defaultLoopbackLatencyMS = 20
	defaultDisplayBase       = 99
	defaultDisplayTimeout    = 10
	defaultConfirmWindow     = 3
	defaultLogDir            = "~/.local/share/webcast/logs"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLockPath          = "~/.local/share/webcast/webcast.lock"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Capture: Capture{
			RenderWidth:  defaultRenderWidth,
			RenderHeight: defaultRenderHeight,
			FrameRate:    defaultFrameRate,
			Quality:      defaultQuality,
		},
		Interaction: Interaction{
			ClickX:           -1,
			ClickY:           -1,
			PostClickDelayMS: defaultPostClickDelayMS,
		},
		Render: Render{
			NavTimeout:            defaultNavTimeout,
			LightweightNavTimeout: defaultLightNavTimeout,
			SettleDelay:           defaultSettleDelay,
		},
		Audio: Audio{
			SinkName:           defaultSinkName,
			RuntimeDirBase:     defaultAudioRuntimeBase(),
			ReadyAttempts:      defaultReadyAttempts,
			ReadyIntervalMS:    defaultReadyIntervalMS,
			ConvergeAttempts:   defaultConvergeAttempts,
			ConvergeIntervalMS: defaultConvergeInterval,
			LoopbackLatencyMS:  defaultLoopbackLatencyMS,
		},
		Display: Display{
			BaseNumber:   defaultDisplayBase,
			StartTimeout: defaultDisplayTimeout,
		},
		Publish: Publish{
			ConfirmWindow: defaultConfirmWindow,
			ErrorMarkers:  []string{"error", "failed", "unable to", "connection refused"},
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
			Dir:    defaultLogDir,
		},
		Session: Session{
			LockPath: defaultLockPath,
		},
	}
}

// defaultAudioRuntimeBase picks a short base path for the session-scoped
// pulse runtime directory. Unix socket paths have a hard length limit, so
// prefer XDG_RUNTIME_DIR over anything under the home directory.
func defaultAudioRuntimeBase() string {
	if base, ok := os.LookupEnv("XDG_RUNTIME_DIR"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "webcast")
	}
	return filepath.Join(os.TempDir(), "webcast-audio")
}
