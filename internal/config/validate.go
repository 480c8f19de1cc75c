package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable for a capture session,
// including the stream endpoints.
func (c *Config) Validate() error {
	if err := c.validateStream(); err != nil {
		return err
	}
	return c.validateStatic()
}

// validateStatic checks everything except the stream endpoints. Load applies
// it so utility commands work on a fresh install; session start re-validates
// in full.
func (c *Config) validateStatic() error {
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateInteraction(); err != nil {
		return err
	}
	return c.validateAudio()
}

func (c *Config) validateStream() error {
	if c.Stream.PageURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/webcast/config.toml"
		}
		return fmt.Errorf("stream.page_url is required. Set WEBCAST_PAGE_URL or edit %s (create with 'webcast config init')", defaultPath)
	}
	page, err := url.Parse(c.Stream.PageURL)
	if err != nil || page.Host == "" {
		return fmt.Errorf("stream.page_url %q is not a valid URL", c.Stream.PageURL)
	}
	if page.Scheme != "http" && page.Scheme != "https" {
		return fmt.Errorf("stream.page_url must use http or https, got %q", page.Scheme)
	}

	if c.Stream.PublishURL == "" {
		return errors.New("stream.publish_url is required (set WEBCAST_PUBLISH_URL or edit the config file)")
	}
	publish, err := url.Parse(c.Stream.PublishURL)
	if err != nil || publish.Host == "" {
		return fmt.Errorf("stream.publish_url %q is not a valid URL", c.Stream.PublishURL)
	}
	switch publish.Scheme {
	case "rtmp", "rtmps", "http", "https", "srt":
	default:
		return fmt.Errorf("stream.publish_url scheme %q is not a supported publish target", publish.Scheme)
	}
	return nil
}

func (c *Config) validateCapture() error {
	if c.Capture.RenderWidth <= 0 || c.Capture.RenderHeight <= 0 {
		return errors.New("capture.render_width and capture.render_height must be positive")
	}
	if c.Capture.OutputWidth <= 0 || c.Capture.OutputHeight <= 0 {
		return errors.New("capture.output_width and capture.output_height must be positive")
	}
	if c.Capture.FrameRate <= 0 || c.Capture.FrameRate > 120 {
		return fmt.Errorf("capture.frame_rate must be between 1 and 120, got %d", c.Capture.FrameRate)
	}
	switch Quality(c.Capture.Quality) {
	case QualityStandard, QualityLightweight:
	default:
		return fmt.Errorf("capture.quality must be %q or %q, got %q", QualityStandard, QualityLightweight, c.Capture.Quality)
	}
	return nil
}

func (c *Config) validateInteraction() error {
	xSet := c.Interaction.ClickX >= 0
	ySet := c.Interaction.ClickY >= 0
	if xSet != ySet {
		return errors.New("interaction.click_x and interaction.click_y must be set together")
	}
	return nil
}

func (c *Config) validateAudio() error {
	if strings.ContainsAny(c.Audio.SinkName, " \t\"'") {
		return fmt.Errorf("audio.sink_name %q must not contain whitespace or quotes", c.Audio.SinkName)
	}
	return nil
}
