package config

import (
	"os"
	"strings"
)

// normalize applies environment overrides, expands paths, and fills derived
// defaults. It runs after decoding and before validation.
func (c *Config) normalize() error {
	c.Stream.PageURL = strings.TrimSpace(c.Stream.PageURL)
	c.Stream.PublishURL = strings.TrimSpace(c.Stream.PublishURL)
	if env := strings.TrimSpace(os.Getenv("WEBCAST_PAGE_URL")); env != "" {
		c.Stream.PageURL = env
	}
	if env := strings.TrimSpace(os.Getenv("WEBCAST_PUBLISH_URL")); env != "" {
		c.Stream.PublishURL = env
	}

	c.Capture.Quality = strings.ToLower(strings.TrimSpace(c.Capture.Quality))
	if c.Capture.Quality == "" {
		c.Capture.Quality = defaultQuality
	}
	c.Capture.VideoDevice = strings.TrimSpace(c.Capture.VideoDevice)
	c.Capture.AudioDevice = strings.TrimSpace(c.Capture.AudioDevice)

	// Output dimensions default to render dimensions when unset.
	if c.Capture.OutputWidth <= 0 {
		c.Capture.OutputWidth = c.Capture.RenderWidth
	}
	if c.Capture.OutputHeight <= 0 {
		c.Capture.OutputHeight = c.Capture.RenderHeight
	}

	c.Interaction.Selector = strings.TrimSpace(c.Interaction.Selector)
	if c.Interaction.PostClickDelayMS < 0 {
		c.Interaction.PostClickDelayMS = 0
	}

	c.Render.Binary = strings.TrimSpace(c.Render.Binary)
	if c.Render.NavTimeout <= 0 {
		c.Render.NavTimeout = defaultNavTimeout
	}
	if c.Render.LightweightNavTimeout <= 0 {
		c.Render.LightweightNavTimeout = defaultLightNavTimeout
	}
	if c.Render.SettleDelay < 0 {
		c.Render.SettleDelay = 0
	}

	c.Audio.SinkName = strings.TrimSpace(c.Audio.SinkName)
	if c.Audio.SinkName == "" {
		c.Audio.SinkName = defaultSinkName
	}
	if c.Audio.ReadyAttempts <= 0 {
		c.Audio.ReadyAttempts = defaultReadyAttempts
	}
	if c.Audio.ReadyIntervalMS <= 0 {
		c.Audio.ReadyIntervalMS = defaultReadyIntervalMS
	}
	if c.Audio.ConvergeAttempts <= 0 {
		c.Audio.ConvergeAttempts = defaultConvergeAttempts
	}
	if c.Audio.ConvergeIntervalMS <= 0 {
		c.Audio.ConvergeIntervalMS = defaultConvergeInterval
	}
	if c.Audio.LoopbackLatencyMS <= 0 {
		c.Audio.LoopbackLatencyMS = defaultLoopbackLatencyMS
	}

	if c.Display.BaseNumber <= 0 {
		c.Display.BaseNumber = defaultDisplayBase
	}
	if c.Display.StartTimeout <= 0 {
		c.Display.StartTimeout = defaultDisplayTimeout
	}

	if c.Publish.ConfirmWindow <= 0 {
		c.Publish.ConfirmWindow = defaultConfirmWindow
	}
	if len(c.Publish.ErrorMarkers) == 0 {
		c.Publish.ErrorMarkers = Default().Publish.ErrorMarkers
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}

	for _, field := range []*string{
		&c.Logging.Dir,
		&c.Audio.RuntimeDirBase,
		&c.Session.LockPath,
	} {
		if strings.TrimSpace(*field) == "" {
			continue
		}
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}

	return nil
}
