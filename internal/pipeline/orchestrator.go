package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"reelmill/internal/acquisition"
	"reelmill/internal/artifacts"
	"reelmill/internal/config"
	"reelmill/internal/ledger"
	"reelmill/internal/logging"
	"reelmill/internal/notifications"
	"reelmill/internal/publication"
	"reelmill/internal/segmentation"
	"reelmill/internal/services"
)

// Acquirer downloads the next movie into the source root.
type Acquirer interface {
	Acquire(ctx context.Context) (acquisition.Result, error)
}

// Segmenter renders clips from a media artifact into the derived root.
type Segmenter interface {
	Segment(ctx context.Context, source artifacts.Set, media artifacts.Media) (segmentation.Result, error)
}

// Publisher uploads one batch of clips from dir.
type Publisher interface {
	Publish(ctx context.Context, dir string, clips []artifacts.Clip) (publication.Report, error)
}

// Recorder persists run bookkeeping. Failures are logged and never change
// the outcome.
type Recorder interface {
	StartRun(ctx context.Context, id string, mode ledger.Mode) error
	SetSource(ctx context.Context, id, title string, clipCount int) error
	FinishRun(ctx context.Context, id string, summary ledger.RunSummary) error
}

// Settings holds the orchestrator's roots, pacing and limits.
type Settings struct {
	MoviesDir    string
	ClipsDir     string
	BatchSize    int
	MaxCycles    int
	Interval     time.Duration
	StageTimeout time.Duration
	DetailLimit  int
}

// SettingsFromConfig extracts orchestrator settings.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		MoviesDir:    cfg.Paths.MoviesDir,
		ClipsDir:     cfg.Paths.ClipsDir,
		BatchSize:    cfg.Publication.BatchSize,
		MaxCycles:    cfg.Pipeline.MaxCycles,
		Interval:     cfg.BatchInterval(),
		StageTimeout: cfg.StageTimeout(),
		DetailLimit:  cfg.Notifications.DetailLimit,
	}
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithRecorder records runs in a ledger.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithSleeper replaces the inter-batch wait.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) {
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

// WithRunID fixes the identifier assigned to the next run.
func WithRunID(id string) Option {
	return func(o *Orchestrator) {
		if id != "" {
			o.newRunID = func() string { return id }
		}
	}
}

// Orchestrator drives a single run. It is not safe for concurrent use.
type Orchestrator struct {
	settings  Settings
	acquirer  Acquirer
	segmenter Segmenter
	publisher Publisher
	notifier  notifications.Notifier
	recorder  Recorder
	sleep     func(ctx context.Context, d time.Duration) error
	newRunID  func() string
	logger    *slog.Logger
}

// New wires an orchestrator. Acquirer and segmenter may be nil when only
// Resume is used.
func New(settings Settings, acq Acquirer, seg Segmenter, pub Publisher, notifier notifications.Notifier, logger *slog.Logger, opts ...Option) *Orchestrator {
	if notifier == nil {
		notifier = notifications.NewNoop()
	}
	if settings.BatchSize <= 0 {
		settings.BatchSize = 1
	}
	if settings.MaxCycles <= 0 {
		settings.MaxCycles = 1
	}
	o := &Orchestrator{
		settings:  settings,
		acquirer:  acq,
		segmenter: seg,
		publisher: pub,
		notifier:  notifier,
		sleep:     sleepContext,
		newRunID:  func() string { return uuid.NewString() },
		logger:    logging.NewComponentLogger(logger, "pipeline"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes acquisition, segmentation, the publication loop and cleanup.
// The error is non-nil only when the run aborted at acquisition or
// segmentation; it wraps ErrAborted and a *StageError.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	result := Result{RunID: o.newRunID(), Remaining: -1}
	ctx = services.WithRunID(ctx, result.RunID)
	logger := logging.WithContext(ctx, o.logger)
	o.startRecord(ctx, result.RunID, ledger.ModeFull)

	logger.Info("pipeline started", logging.String(logging.FieldEventType, "pipeline_started"))
	o.notifier.Notify(ctx, notifications.PipelineStarted())

	var acquired acquisition.Result
	err := o.runStage(ctx, StageAcquisition, func(stageCtx context.Context) error {
		if o.acquirer == nil {
			return services.Wrap(services.ErrConfiguration, StageAcquisition, "init", "no acquirer configured", nil)
		}
		var err error
		acquired, err = o.acquirer.Acquire(stageCtx)
		return err
	})
	if err != nil {
		return o.abort(ctx, result, StageAcquisition, OutcomeAbortedAtAcquisition, err)
	}
	result.Source = acquired.Title

	var segmented segmentation.Result
	err = o.runStage(ctx, StageSegmentation, func(stageCtx context.Context) error {
		if o.segmenter == nil {
			return services.Wrap(services.ErrConfiguration, StageSegmentation, "init", "no segmenter configured", nil)
		}
		source, err := artifacts.ResolveCurrentSet(o.settings.MoviesDir)
		if err != nil {
			return services.Wrap(services.ErrNotFound, StageSegmentation, "select media", o.settings.MoviesDir, err)
		}
		media, err := artifacts.LargestMedia(source.Path)
		if err != nil {
			return services.Wrap(services.ErrNotFound, StageSegmentation, "select media", source.Path, err)
		}
		logger.Info("media selected",
			logging.String("source_set", source.Name),
			logging.String("media", media.Path),
			logging.Int64("size_bytes", media.Size),
		)
		if result.Source == "" {
			result.Source = source.Name
		}
		segmented, err = o.segmenter.Segment(stageCtx, source, media)
		return err
	})
	if err != nil {
		return o.abort(ctx, result, StageSegmentation, OutcomeAbortedAtSegmentation, err)
	}
	result.Clips = len(segmented.Clips)
	o.recordSource(ctx, result)

	return o.publishAndCleanup(ctx, result), nil
}

// Resume skips acquisition and segmentation and continues the publication
// loop and cleanup against the current derived set.
func (o *Orchestrator) Resume(ctx context.Context) (Result, error) {
	result := Result{RunID: o.newRunID(), Remaining: -1}
	ctx = services.WithRunID(ctx, result.RunID)
	logger := logging.WithContext(ctx, o.logger)
	o.startRecord(ctx, result.RunID, ledger.ModeResume)

	set, clips, err := artifacts.CurrentClips(o.settings.ClipsDir)
	if err != nil {
		logging.WarnWithContext(logger, "no derived set to resume", "resume_without_clips",
			logging.String("clips_dir", o.settings.ClipsDir),
			logging.Error(err),
		)
	} else {
		result.Source = set.Name
		result.Clips = len(clips)
		o.recordSource(ctx, result)
	}
	logger.Info("pipeline resumed",
		logging.String("derived_set", set.Name),
		logging.Int("clips", len(clips)),
		logging.String(logging.FieldEventType, "pipeline_resumed"),
	)
	o.notifier.Notify(ctx, notifications.PipelineResumed(len(clips)))

	return o.publishAndCleanup(ctx, result), nil
}

func (o *Orchestrator) publishAndCleanup(ctx context.Context, result Result) Result {
	logger := logging.WithContext(ctx, o.logger)

	result.Outcome = o.publicationLoop(ctx, &result)
	o.cleanup(ctx, &result)

	logger.Info("pipeline finished",
		logging.String("outcome", result.Outcome.String()),
		logging.Int("cycles", result.Cycles),
		logging.Int("published", result.Published),
		logging.Int("failed", result.Failed),
		logging.Int("remaining", result.Remaining),
		logging.Bool("cleaned_up", result.CleanedUp),
		logging.String(logging.FieldEventType, "pipeline_finished"),
	)
	o.notifier.Notify(ctx, notifications.PipelineFinished(result.Outcome.String()))
	o.finishRecord(ctx, result, nil)
	return result
}
