package publication

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"reelmill/internal/artifacts"
	"reelmill/internal/config"
	"reelmill/internal/ledger"
	"reelmill/internal/logging"
	"reelmill/internal/services"
)

const stageName = "publication"

// Uploader posts one clip and returns the platform id.
type Uploader interface {
	Ready() error
	UploadVideo(ctx context.Context, path, description string) (string, error)
}

// History remembers accepted uploads across runs.
type History interface {
	PublishedID(ctx context.Context, clip ledger.ClipFile) (string, bool, error)
	RecordPublication(ctx context.Context, pub ledger.Publication) error
}

// Option configures the stage.
type Option func(*Stage)

// WithHistory enables outcome recording and the duplicate-upload guard.
func WithHistory(h History) Option {
	return func(s *Stage) {
		s.history = h
	}
}

// WithCaptionPicker replaces the random caption choice.
func WithCaptionPicker(pick func(n int) int) Option {
	return func(s *Stage) {
		s.pick = pick
	}
}

// WithClock replaces time.Now for outcome log naming.
func WithClock(now func() time.Time) Option {
	return func(s *Stage) {
		if now != nil {
			s.now = now
		}
	}
}

// Stage uploads batches of clips.
type Stage struct {
	uploader     Uploader
	history      History
	captionsFile string
	logDir       string
	pick         func(n int) int
	now          func() time.Time
	logger       *slog.Logger
}

// NewStage wires the publication stage.
func NewStage(cfg config.Publication, uploader Uploader, logger *slog.Logger, opts ...Option) *Stage {
	s := &Stage{
		uploader:     uploader,
		captionsFile: cfg.CaptionsFile,
		logDir:       cfg.LogDir,
		now:          time.Now,
		logger:       logging.NewComponentLogger(logger, stageName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Publish uploads clips in order. Each clip accepted by the platform is
// deleted; rejected clips stay in dir. Per-clip failures are reported in the
// returned Report and never fail the call.
func (s *Stage) Publish(ctx context.Context, dir string, clips []artifacts.Clip) (Report, error) {
	ctx = services.WithStage(ctx, stageName)
	logger := logging.WithContext(ctx, s.logger)
	report := Report{Dir: dir}

	if s.uploader == nil {
		return report, services.Wrap(services.ErrConfiguration, stageName, "init", "uploader is required", nil)
	}
	if err := s.uploader.Ready(); err != nil {
		return report, services.Wrap(services.ErrConfiguration, stageName, "credentials", "page credentials unavailable", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return report, services.Wrap(services.ErrNotFound, stageName, "clip directory", dir, err)
	}
	if !info.IsDir() {
		return report, services.Wrap(services.ErrValidation, stageName, "clip directory", dir+" is not a directory", nil)
	}

	captions, err := LoadCaptions(s.captionsFile, s.pick)
	if err != nil {
		logging.WarnWithContext(logger, "captions unavailable; using default caption", "captions_unavailable",
			logging.String("path", s.captionsFile),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check publication.captions_file permissions"),
		)
		captions, _ = LoadCaptions("", s.pick)
	}

	logger.Info("uploading batch",
		logging.String("dir", dir),
		logging.Int("clips", len(clips)),
		logging.Int("captions", captions.Len()),
		logging.String(logging.FieldEventType, "publication_batch_started"),
	)

	report.Outcomes = make([]Outcome, 0, len(clips))
	for idx, clip := range clips {
		outcome := s.publishOne(ctx, logger, captions, clip)
		logAttrs := []logging.Attr{
			logging.String("clip", clip.Name),
			logging.Int("position", idx+1),
			logging.Int("batch", len(clips)),
		}
		if outcome.Succeeded() {
			logger.Info("clip uploaded", logging.Args(append(logAttrs,
				logging.String("video_id", outcome.ID),
				logging.Bool("already_published", outcome.Skipped),
				logging.String(logging.FieldEventType, "clip_published"),
			)...)...)
		} else {
			logging.WarnWithContext(logger, "clip upload failed; clip kept for a later cycle", "clip_publish_failed",
				append(logAttrs,
					logging.String("error", outcome.Error),
					logging.String(logging.FieldImpact, "clip remains in the derived set"),
				)...,
			)
		}
		s.record(ctx, logger, outcome)
		report.Outcomes = append(report.Outcomes, outcome)
	}

	logPath, err := writeOutcomeLog(s.logDir, s.now(), report.Outcomes)
	if err != nil {
		logging.WarnWithContext(logger, "upload outcome log not written", "upload_log_failed",
			logging.String("dir", s.logDir),
			logging.Error(err),
			logging.String(logging.FieldImpact, "batch outcomes only available in the run log"),
		)
	}
	report.LogPath = logPath

	logger.Info("batch uploaded",
		logging.Int("succeeded", report.Succeeded()),
		logging.Int("attempted", report.Attempted()),
		logging.String("upload_log", logPath),
		logging.String(logging.FieldEventType, "publication_batch_complete"),
	)
	return report, nil
}

func (s *Stage) publishOne(ctx context.Context, logger *slog.Logger, captions *Captions, clip artifacts.Clip) Outcome {
	outcome := Outcome{Path: clip.Path, File: clip.Name}

	info, err := os.Stat(clip.Path)
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Size = info.Size()
	outcome.ModTime = info.ModTime()

	if s.history != nil {
		id, ok, err := s.history.PublishedID(ctx, outcome.clipFile())
		if err != nil {
			logging.WarnWithContext(logger, "publication history lookup failed", "ledger_lookup_failed",
				logging.String("clip", clip.Name),
				logging.Error(err),
			)
		}
		if ok {
			outcome.Status = StatusSuccess
			outcome.ID = id
			outcome.Skipped = true
			s.removeClip(logger, clip)
			return outcome
		}
	}

	if err := ctx.Err(); err != nil {
		outcome.Status = StatusFailed
		outcome.Error = err.Error()
		return outcome
	}
	id, err := s.uploader.UploadVideo(ctx, clip.Path, captions.Describe(clip.Name))
	if err != nil {
		outcome.Status = StatusFailed
		var graphErr *GraphError
		if errors.As(err, &graphErr) {
			outcome.Error = graphErr.Message
		} else {
			outcome.Error = err.Error()
		}
		return outcome
	}
	outcome.Status = StatusSuccess
	outcome.ID = id
	s.removeClip(logger, clip)
	return outcome
}

// removeClip deletes an accepted clip. A clip that cannot be removed is found
// again next cycle and skipped through the history guard.
func (s *Stage) removeClip(logger *slog.Logger, clip artifacts.Clip) {
	if err := os.Remove(clip.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.WarnWithContext(logger, "published clip not removed", "clip_remove_failed",
			logging.String("clip", clip.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check clips_dir permissions"),
			logging.String(logging.FieldImpact, "clip will be listed again; history prevents a second upload"),
		)
	}
}

func (s *Stage) record(ctx context.Context, logger *slog.Logger, outcome Outcome) {
	if s.history == nil || outcome.Skipped {
		return
	}
	runID, _ := services.RunIDFromContext(ctx)
	cycle, _ := services.CycleFromContext(ctx)
	status := ledger.StatusFailed
	if outcome.Succeeded() {
		status = ledger.StatusPublished
	}
	pub := ledger.Publication{
		RunID:        runID,
		Cycle:        cycle,
		ClipPath:     outcome.Path,
		ClipName:     outcome.File,
		ClipSize:     outcome.Size,
		ClipModTime:  outcome.ModTime,
		Status:       status,
		PlatformID:   outcome.ID,
		ErrorMessage: outcome.Error,
	}
	// Recording outlives a cancelled run context so an accepted upload is
	// never forgotten.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.history.RecordPublication(recordCtx, pub); err != nil {
		logging.WarnWithContext(logger, "publication outcome not recorded", "ledger_write_failed",
			logging.String("clip", outcome.File),
			logging.Error(err),
			logging.String(logging.FieldImpact, "history incomplete; a crash before removal could re-upload this clip"),
		)
	}
}

// String renders the report as a one-line summary.
func (r Report) String() string {
	return fmt.Sprintf("%d/%d succeeded", r.Succeeded(), r.Attempted())
}
