package pipelinerun

import (
	"context"
	"fmt"

	"reelmill/internal/acquisition"
	"reelmill/internal/artifacts"
	"reelmill/internal/ledger"
	"reelmill/internal/logging"
	"reelmill/internal/publication"
	"reelmill/internal/segmentation"
	"reelmill/internal/services"
)

// AcquireOnce downloads one movie from the catalog without continuing the
// pipeline.
func (s *Session) AcquireOnce(ctx context.Context, stage *acquisition.Stage) (acquisition.Result, error) {
	ctx, cancel := s.stageContext(ctx, "acquisition")
	defer cancel()
	return stage.Acquire(ctx)
}

// SegmentCurrent segments the largest media file of the current source set.
func (s *Session) SegmentCurrent(ctx context.Context, stage *segmentation.Stage) (segmentation.Result, error) {
	ctx, cancel := s.stageContext(ctx, "segmentation")
	defer cancel()

	source, err := artifacts.ResolveCurrentSet(s.Config.Paths.MoviesDir)
	if err != nil {
		return segmentation.Result{}, services.Wrap(services.ErrNotFound, "segmentation", "select media", s.Config.Paths.MoviesDir, err)
	}
	media, err := artifacts.LargestMedia(source.Path)
	if err != nil {
		return segmentation.Result{}, services.Wrap(services.ErrNotFound, "segmentation", "select media", source.Path, err)
	}
	return stage.Segment(ctx, source, media)
}

// PublishBatch publishes one capped batch from the current derived set and
// records the invocation in the ledger as a publish-only run.
func (s *Session) PublishBatch(ctx context.Context, stage *publication.Stage) (publication.Report, error) {
	ctx = services.WithCycle(ctx, 1)
	ctx, cancel := s.stageContext(ctx, "publication")
	defer cancel()
	logger := logging.WithContext(ctx, s.Logger)

	recordCtx := context.WithoutCancel(ctx)
	if err := s.Ledger.StartRun(recordCtx, s.RunID, ledger.ModePublish); err != nil {
		logging.WarnWithContext(logger, "run ledger write failed", "ledger_write_failed", logging.Error(err))
	}

	summary := ledger.RunSummary{Cycles: 1, Remaining: -1}
	report, err := s.publishCurrent(ctx, stage)
	if err != nil {
		summary.Outcome = "aborted_at_publication"
		summary.Error = err.Error()
	} else {
		summary.Outcome = "published_batch"
		summary.Published = report.Succeeded()
		summary.Failed = report.Attempted() - report.Succeeded()
	}
	if _, remaining, listErr := artifacts.CurrentClips(s.Config.Paths.ClipsDir); listErr == nil {
		summary.Remaining = len(remaining)
	}
	if recErr := s.Ledger.FinishRun(recordCtx, s.RunID, summary); recErr != nil {
		logging.WarnWithContext(logger, "run ledger write failed", "ledger_write_failed", logging.Error(recErr))
	}
	return report, err
}

func (s *Session) publishCurrent(ctx context.Context, stage *publication.Stage) (publication.Report, error) {
	set, clips, err := artifacts.CurrentClips(s.Config.Paths.ClipsDir)
	if err != nil {
		return publication.Report{}, services.Wrap(services.ErrNotFound, "publication", "list clips", s.Config.Paths.ClipsDir, err)
	}
	if recErr := s.Ledger.SetSource(context.WithoutCancel(ctx), s.RunID, set.Name, len(clips)); recErr != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.Logger), "run ledger write failed", "ledger_write_failed", logging.Error(recErr))
	}
	if len(clips) == 0 {
		return publication.Report{Dir: set.Path}, nil
	}
	batch := artifacts.Batch(clips, s.Config.Publication.BatchSize)
	report, err := stage.Publish(ctx, set.Path, batch)
	if err != nil {
		return report, fmt.Errorf("publish %s: %w", set.Name, err)
	}
	return report, nil
}

func (s *Session) stageContext(ctx context.Context, stage string) (context.Context, context.CancelFunc) {
	ctx = services.WithStage(s.Context(ctx), stage)
	if timeout := s.Config.StageTimeout(); timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}
