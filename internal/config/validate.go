package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable. Publication credentials are
// not checked here; the publication stage rejects a missing page id or token.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSegmentation(); err != nil {
		return err
	}
	if err := c.validateTimings(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.MoviesDir) == "" {
		return errors.New("paths.movies_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ClipsDir) == "" {
		return errors.New("paths.clips_dir must be set")
	}
	if filepath.Clean(c.Paths.MoviesDir) == filepath.Clean(c.Paths.ClipsDir) {
		return errors.New("paths.movies_dir and paths.clips_dir must differ")
	}
	if strings.TrimSpace(c.Catalog.Path) == "" {
		return errors.New("catalog.path must be set")
	}
	return nil
}

func (c *Config) validateSegmentation() error {
	seg := c.Segmentation
	if seg.LeadMarginSeconds < 0 {
		return errors.New("segmentation.lead_margin_seconds must be >= 0")
	}
	if seg.TrailMarginSeconds < 0 {
		return errors.New("segmentation.trail_margin_seconds must be >= 0")
	}
	if err := ensurePositiveMap(map[string]int{
		"segmentation.clip_seconds": seg.ClipSeconds,
		"segmentation.width":        seg.Width,
		"segmentation.height":       seg.Height,
	}); err != nil {
		return err
	}
	if seg.CRF < 0 || seg.CRF > 51 {
		return errors.New("segmentation.crf must be between 0 and 51")
	}
	return nil
}

func (c *Config) validateTimings() error {
	if err := ensurePositiveMap(map[string]int{
		"acquisition.timeout_seconds":         c.Acquisition.TimeoutSeconds,
		"publication.batch_size":              c.Publication.BatchSize,
		"publication.request_timeout_seconds": c.Publication.RequestTimeoutSeconds,
		"pipeline.max_cycles":                 c.Pipeline.MaxCycles,
		"pipeline.stage_timeout_seconds":      c.Pipeline.StageTimeoutSeconds,
		"notifications.request_timeout":       c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Pipeline.BatchIntervalSeconds < 0 {
		return errors.New("pipeline.batch_interval_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.DetailLimit > c.Notifications.MaxMessageLength {
		return fmt.Errorf("notifications.detail_limit (%d) must not exceed notifications.max_message_length (%d)",
			c.Notifications.DetailLimit, c.Notifications.MaxMessageLength)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
