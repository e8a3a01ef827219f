package config

const (
	defaultConfigPath                = "~/.config/reelmill/config.toml"
	defaultMoviesDir                 = "~/.local/share/reelmill/movies"
	defaultClipsDir                  = "~/.local/share/reelmill/clips"
	defaultStateDir                  = "~/.local/share/reelmill/state"
	defaultLogDir                    = "~/.local/share/reelmill/logs"
	defaultCatalogPath               = "~/.config/reelmill/imdb_magnet_links.csv"
	defaultAria2cBinary              = "aria2c"
	defaultAcquisitionTimeoutSeconds = 600
	defaultFFmpegBinary              = "ffmpeg"
	defaultFFprobeBinary             = "ffprobe"
	defaultClipSeconds               = 240
	defaultLeadMarginSeconds         = 15 * 60
	defaultTrailMarginSeconds        = 20 * 60
	defaultClipWidth                 = 1080
	defaultClipHeight                = 1920
	defaultCRF                       = 22
	defaultPreset                    = "slow"
	defaultGraphBaseURL              = "https://graph.facebook.com"
	defaultGraphAPIVersion           = "v16.0"
	defaultCaptionsFile              = "~/.config/reelmill/captions.txt"
	defaultBatchSize                 = 5
	defaultUploadTimeoutSeconds      = 300
	defaultMaxCycles                 = 6
	defaultBatchIntervalSeconds      = 3600
	defaultStageTimeoutSeconds       = 3600
	defaultNotifyRequestTimeout      = 10
	defaultNotifyMaxMessageLength    = 2000
	defaultNotifyDetailLimit         = 1500
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
	defaultLogRetentionDays          = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			MoviesDir: defaultMoviesDir,
			ClipsDir:  defaultClipsDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
		},
		Catalog: Catalog{
			Path: defaultCatalogPath,
		},
		Acquisition: Acquisition{
			Aria2cBinary:   defaultAria2cBinary,
			TimeoutSeconds: defaultAcquisitionTimeoutSeconds,
		},
		Segmentation: Segmentation{
			FFmpegBinary:       defaultFFmpegBinary,
			FFprobeBinary:      defaultFFprobeBinary,
			ClipSeconds:        defaultClipSeconds,
			LeadMarginSeconds:  defaultLeadMarginSeconds,
			TrailMarginSeconds: defaultTrailMarginSeconds,
			Width:              defaultClipWidth,
			Height:             defaultClipHeight,
			CRF:                defaultCRF,
			Preset:             defaultPreset,
		},
		Publication: Publication{
			GraphBaseURL:          defaultGraphBaseURL,
			APIVersion:            defaultGraphAPIVersion,
			CaptionsFile:          defaultCaptionsFile,
			BatchSize:             defaultBatchSize,
			RequestTimeoutSeconds: defaultUploadTimeoutSeconds,
		},
		Pipeline: Pipeline{
			MaxCycles:            defaultMaxCycles,
			BatchIntervalSeconds: defaultBatchIntervalSeconds,
			StageTimeoutSeconds:  defaultStageTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout:   defaultNotifyRequestTimeout,
			MaxMessageLength: defaultNotifyMaxMessageLength,
			DetailLimit:      defaultNotifyDetailLimit,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
