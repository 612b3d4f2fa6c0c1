package config

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
)

var (
	videoPresets = map[string]struct{}{
		"ultrafast": {},
		"superfast": {},
		"veryfast":  {},
		"faster":    {},
		"fast":      {},
		"medium":    {},
	}
	bitratePattern = regexp.MustCompile(`^[0-9]+[km]?$`)
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateMetrics(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WorkspaceDir) == "" {
		return errors.New("paths.workspace_dir must be set")
	}
	return nil
}

func (c *Config) validateEngine() error {
	if _, ok := videoPresets[c.Engine.VideoPreset]; !ok {
		return fmt.Errorf("engine.video_preset %q is not a fast x264 preset (ultrafast through medium)", c.Engine.VideoPreset)
	}
	if c.Engine.VideoCRF < 0 || c.Engine.VideoCRF > 51 {
		return errors.New("engine.video_crf must be between 0 and 51")
	}
	if !bitratePattern.MatchString(c.Engine.AudioBitrate) {
		return fmt.Errorf("engine.audio_bitrate %q must look like 192k", c.Engine.AudioBitrate)
	}
	if c.Engine.JPEGQScale < 1 || c.Engine.JPEGQScale > 31 {
		return errors.New("engine.jpeg_qscale must be between 1 and 31")
	}
	if c.Engine.WebPQuality < 0 || c.Engine.WebPQuality > 100 {
		return errors.New("engine.webp_quality must be between 0 and 100")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn, or error", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if c.Metrics.Listen == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Metrics.Listen); err != nil {
		return fmt.Errorf("metrics.listen %q: %w", c.Metrics.Listen, err)
	}
	return nil
}
