package pipeline

import (
	"context"

	"reelmill/internal/artifacts"
	"reelmill/internal/logging"
	"reelmill/internal/notifications"
	"reelmill/internal/publication"
	"reelmill/internal/services"
)

// publicationLoop publishes the current derived set in capped batches, one
// batch per cycle, until nothing remains or the cycle ceiling is reached.
// The remaining clips are re-listed from disk every cycle.
func (o *Orchestrator) publicationLoop(ctx context.Context, result *Result) Outcome {
	logger := logging.WithContext(services.WithStage(ctx, StagePublication), o.logger)
	maxCycles := o.settings.MaxCycles

	for cycle := 1; cycle <= maxCycles; cycle++ {
		set, clips, err := artifacts.CurrentClips(o.settings.ClipsDir)
		if err != nil {
			return o.publicationFailed(ctx, services.Wrap(services.ErrNotFound, StagePublication, "list clips", o.settings.ClipsDir, err))
		}
		if len(clips) == 0 {
			logger.Info("no clips remaining", logging.Int("cycle", cycle))
			o.notifier.Notify(ctx, notifications.AllPublished())
			return OutcomeCompleted
		}

		batch := artifacts.Batch(clips, o.settings.BatchSize)
		cycleCtx := services.WithCycle(ctx, cycle)
		result.Cycles = cycle
		logger.Info("publication cycle starting",
			logging.Int(logging.FieldCycle, cycle),
			logging.Int("max_cycles", maxCycles),
			logging.Int("batch", len(batch)),
			logging.Int("remaining", len(clips)),
			logging.String("derived_set", set.Name),
			logging.String(logging.FieldEventType, "publication_cycle_started"),
		)
		o.notifier.Notify(cycleCtx, notifications.BatchStarting(cycle, maxCycles, len(batch)))

		var report publication.Report
		err = o.runStage(cycleCtx, StagePublication, func(stageCtx context.Context) error {
			if o.publisher == nil {
				return services.Wrap(services.ErrConfiguration, StagePublication, "init", "no publisher configured", nil)
			}
			var err error
			report, err = o.publisher.Publish(stageCtx, set.Path, batch)
			return err
		})
		if err != nil {
			return o.publicationFailed(cycleCtx, err)
		}
		result.Published += report.Succeeded()
		result.Failed += report.Attempted() - report.Succeeded()
		o.notifier.Notify(cycleCtx, notifications.BatchResult(report.Succeeded(), report.Attempted()))

		_, remaining, err := artifacts.CurrentClips(o.settings.ClipsDir)
		if err != nil {
			return o.publicationFailed(cycleCtx, services.Wrap(services.ErrNotFound, StagePublication, "list clips", o.settings.ClipsDir, err))
		}
		if len(remaining) == 0 {
			o.notifier.Notify(cycleCtx, notifications.AllPublished())
			return OutcomeCompleted
		}
		if cycle == maxCycles {
			break
		}

		logger.Info("waiting before next batch",
			logging.Int(logging.FieldCycle, cycle),
			logging.Int("remaining", len(remaining)),
			logging.Duration("interval", o.settings.Interval),
			logging.String(logging.FieldEventType, "publication_wait"),
		)
		if err := o.sleep(ctx, o.settings.Interval); err != nil {
			result.Interrupted = true
			logging.WarnWithContext(logger, "publication loop interrupted", "publication_interrupted",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run `reelmill run --resume` to continue"),
				logging.String(logging.FieldImpact, "remaining clips stay on disk"),
			)
			o.notifier.Notify(cycleCtx, notifications.Interrupted(len(remaining)))
			return OutcomeCompletedWithRemainder
		}
	}

	logger.Info("cycle ceiling reached with clips remaining",
		logging.Int("max_cycles", maxCycles),
		logging.String(logging.FieldEventType, "publication_ceiling"),
	)
	return OutcomeCompletedWithRemainder
}

func (o *Orchestrator) publicationFailed(ctx context.Context, err error) Outcome {
	logger := logging.WithContext(services.WithStage(ctx, StagePublication), o.logger)
	logging.ErrorWithContext(logger, "publication invocation failed", "publication_failed", err,
		logging.String(logging.FieldErrorHint, hintFor(StagePublication)),
		logging.String(logging.FieldImpact, "publication loop stopped; clips remain for a resumed run"),
	)
	o.notifier.Notify(ctx, notifications.StageFailed(StagePublication, err, o.settings.DetailLimit))
	o.notifier.Notify(ctx, notifications.PublicationFailed())
	return OutcomeAbortedAtPublication
}
