package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the artifact roots and bookkeeping directories.
type Paths struct {
	MoviesDir string `toml:"movies_dir"`
	ClipsDir  string `toml:"clips_dir"`
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
}

// Catalog points at the magnet catalog consumed by acquisition.
type Catalog struct {
	Path string `toml:"path"`
}

// Acquisition contains aria2c download settings.
type Acquisition struct {
	Aria2cBinary   string `toml:"aria2c_binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Segmentation contains clip window and render settings.
type Segmentation struct {
	FFmpegBinary       string `toml:"ffmpeg_binary"`
	FFprobeBinary      string `toml:"ffprobe_binary"`
	ClipSeconds        int    `toml:"clip_seconds"`
	LeadMarginSeconds  int    `toml:"lead_margin_seconds"`
	TrailMarginSeconds int    `toml:"trail_margin_seconds"`
	Width              int    `toml:"width"`
	Height             int    `toml:"height"`
	CRF                int    `toml:"crf"`
	Preset             string `toml:"preset"`
}

// Publication contains Graph API upload settings.
type Publication struct {
	PageID                string `toml:"page_id"`
	PageToken             string `toml:"page_token"`
	GraphBaseURL          string `toml:"graph_base_url"`
	APIVersion            string `toml:"api_version"`
	CaptionsFile          string `toml:"captions_file"`
	BatchSize             int    `toml:"batch_size"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	LogDir                string `toml:"log_dir"`
}

// Pipeline contains orchestrator pacing and timeout settings.
type Pipeline struct {
	MaxCycles            int `toml:"max_cycles"`
	BatchIntervalSeconds int `toml:"batch_interval_seconds"`
	StageTimeoutSeconds  int `toml:"stage_timeout_seconds"`
}

// Notifications contains outbound notification transports.
type Notifications struct {
	DiscordWebhook   string `toml:"discord_webhook"`
	NtfyTopic        string `toml:"ntfy_topic"`
	RequestTimeout   int    `toml:"request_timeout"`
	MaxMessageLength int    `toml:"max_message_length"`
	DetailLimit      int    `toml:"detail_limit"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for reelmill.
//
// Configuration sections by subsystem:
//   - Paths: source (movies) and derived (clips) artifact roots, state and logs
//   - Catalog: magnet catalog CSV
//   - Acquisition: aria2c download
//   - Segmentation: clip windows and ffmpeg render settings
//   - Publication: Graph API page upload and batch size
//   - Pipeline: cycle ceiling, inter-batch interval, stage timeout
//   - Notifications: Discord webhook / ntfy delivery
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Catalog       Catalog       `toml:"catalog"`
	Acquisition   Acquisition   `toml:"acquisition"`
	Segmentation  Segmentation  `toml:"segmentation"`
	Publication   Publication   `toml:"publication"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
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

	if err := cfg.Validate(); err != nil {
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

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelmill.toml")
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

// EnsureDirectories creates the artifact roots and bookkeeping directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.MoviesDir, c.Paths.ClipsDir, c.Paths.StateDir, c.Paths.LogDir, c.Publication.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StageTimeout bounds a single stage invocation.
func (c *Config) StageTimeout() time.Duration {
	return time.Duration(c.Pipeline.StageTimeoutSeconds) * time.Second
}

// BatchInterval is the pause between publication batches.
func (c *Config) BatchInterval() time.Duration {
	return time.Duration(c.Pipeline.BatchIntervalSeconds) * time.Second
}

// LedgerPath returns the SQLite run ledger location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "ledger.db")
}

// LockPath returns the single-instance run lock location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "reelmill.lock")
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
