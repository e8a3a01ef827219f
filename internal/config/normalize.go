package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAcquisition()
	c.normalizeSegmentation()
	if err := c.normalizePublication(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.MoviesDir, err = expandPath(c.Paths.MoviesDir); err != nil {
		return fmt.Errorf("paths.movies_dir: %w", err)
	}
	if c.Paths.ClipsDir, err = expandPath(c.Paths.ClipsDir); err != nil {
		return fmt.Errorf("paths.clips_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Catalog.Path) == "" {
		c.Catalog.Path = defaultCatalogPath
	}
	if c.Catalog.Path, err = expandPath(c.Catalog.Path); err != nil {
		return fmt.Errorf("catalog.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeAcquisition() {
	c.Acquisition.Aria2cBinary = strings.TrimSpace(c.Acquisition.Aria2cBinary)
	if c.Acquisition.Aria2cBinary == "" {
		c.Acquisition.Aria2cBinary = defaultAria2cBinary
	}
}

func (c *Config) normalizeSegmentation() {
	c.Segmentation.FFmpegBinary = strings.TrimSpace(c.Segmentation.FFmpegBinary)
	if c.Segmentation.FFmpegBinary == "" {
		c.Segmentation.FFmpegBinary = defaultFFmpegBinary
	}
	c.Segmentation.FFprobeBinary = strings.TrimSpace(c.Segmentation.FFprobeBinary)
	if c.Segmentation.FFprobeBinary == "" {
		c.Segmentation.FFprobeBinary = defaultFFprobeBinary
	}
	c.Segmentation.Preset = strings.TrimSpace(c.Segmentation.Preset)
	if c.Segmentation.Preset == "" {
		c.Segmentation.Preset = defaultPreset
	}
}

func (c *Config) normalizePublication() error {
	c.Publication.PageID = strings.TrimSpace(c.Publication.PageID)
	if c.Publication.PageID == "" {
		if value, ok := os.LookupEnv("PAGE_ID"); ok {
			c.Publication.PageID = strings.TrimSpace(value)
		}
	}
	c.Publication.PageToken = strings.TrimSpace(c.Publication.PageToken)
	if c.Publication.PageToken == "" {
		if value, ok := os.LookupEnv("PAGE_TOKEN"); ok {
			c.Publication.PageToken = strings.TrimSpace(value)
		}
	}
	c.Publication.GraphBaseURL = strings.TrimRight(strings.TrimSpace(c.Publication.GraphBaseURL), "/")
	if c.Publication.GraphBaseURL == "" {
		c.Publication.GraphBaseURL = defaultGraphBaseURL
	}
	c.Publication.APIVersion = strings.Trim(strings.TrimSpace(c.Publication.APIVersion), "/")
	if c.Publication.APIVersion == "" {
		c.Publication.APIVersion = defaultGraphAPIVersion
	}

	var err error
	if c.Publication.CaptionsFile, err = expandPath(c.Publication.CaptionsFile); err != nil {
		return fmt.Errorf("publication.captions_file: %w", err)
	}
	if strings.TrimSpace(c.Publication.LogDir) == "" {
		c.Publication.LogDir = filepath.Join(c.Paths.StateDir, "uploads")
	}
	if c.Publication.LogDir, err = expandPath(c.Publication.LogDir); err != nil {
		return fmt.Errorf("publication.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.DiscordWebhook = strings.TrimSpace(c.Notifications.DiscordWebhook)
	if c.Notifications.DiscordWebhook == "" {
		if value, ok := os.LookupEnv("DISCORD_WEBHOOK_URL"); ok {
			c.Notifications.DiscordWebhook = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("DISCORD_WEBHOOK"); ok {
			c.Notifications.DiscordWebhook = strings.TrimSpace(value)
		}
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.MaxMessageLength <= 0 {
		c.Notifications.MaxMessageLength = defaultNotifyMaxMessageLength
	}
	if c.Notifications.DetailLimit <= 0 {
		c.Notifications.DetailLimit = defaultNotifyDetailLimit
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
