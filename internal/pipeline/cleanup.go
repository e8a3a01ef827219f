package pipeline

import (
	"context"
	"errors"
	"fmt"

	"reelmill/internal/artifacts"
	"reelmill/internal/logging"
	"reelmill/internal/notifications"
	"reelmill/internal/services"
	"reelmill/internal/textutil"
)

// removeSet deletes an artifact set. It is a package-level variable so tests
// can simulate removal failures.
var removeSet = artifacts.RemoveSet

// cleanup deletes the current source and derived sets only when no clip
// remains. Any other state, including a derived set that cannot be
// resolved, leaves both sets on disk for manual handling.
func (o *Orchestrator) cleanup(ctx context.Context, result *Result) {
	ctx = services.WithStage(ctx, StageCleanup)
	logger := logging.WithContext(ctx, o.logger)

	derived, clips, err := artifacts.CurrentClips(o.settings.ClipsDir)
	if err != nil {
		result.Remaining = -1
		logging.WarnWithContext(logger, "cleanup skipped; derived set unavailable", "cleanup_skipped",
			logging.String("clips_dir", o.settings.ClipsDir),
			logging.Error(err),
			logging.String(logging.FieldImpact, "source and derived sets left on disk"),
		)
		o.notifier.Notify(ctx, notifications.ManualCleanup(-1))
		return
	}
	result.Remaining = len(clips)
	if len(clips) > 0 {
		logger.Info("cleanup skipped; clips remain",
			logging.Int("remaining", len(clips)),
			logging.String("derived_set", derived.Path),
			logging.String(logging.FieldEventType, "cleanup_skipped"),
		)
		o.notifier.Notify(ctx, notifications.ManualCleanup(len(clips)))
		return
	}

	if err := o.removeSets(ctx, derived); err != nil {
		logging.WarnWithContext(logger, "cleanup failed", "cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the listed directories manually"),
			logging.String(logging.FieldImpact, "disk space not reclaimed; outcome unchanged"),
		)
		o.notifier.Notify(ctx, notifications.CleanupFailed(err, o.settings.DetailLimit))
		return
	}
	result.CleanedUp = true
	o.notifier.Notify(ctx, notifications.CleanupDone())
}

// removeSets deletes the derived set and the source set it was cut from. The
// source set is only removed when its name maps to the derived set, so a
// newer download that has not been segmented yet is never deleted.
func (o *Orchestrator) removeSets(ctx context.Context, derived artifacts.Set) error {
	logger := logging.WithContext(ctx, o.logger)
	var errs []error

	source, err := artifacts.ResolveCurrentSet(o.settings.MoviesDir)
	switch {
	case errors.Is(err, artifacts.ErrNoArtifactSet):
		logger.Info("no source set to remove", logging.String("movies_dir", o.settings.MoviesDir))
	case err != nil:
		errs = append(errs, fmt.Errorf("resolve source set: %w", err))
	case textutil.DirName(source.Name) != derived.Name:
		logging.WarnWithContext(logger, "current source set does not match derived set; source kept", "cleanup_source_mismatch",
			logging.String("source_set", source.Name),
			logging.String("derived_set", derived.Name),
			logging.String(logging.FieldImpact, "source set left on disk"),
		)
	default:
		size := artifacts.DirSize(source.Path)
		if err := removeSet(o.settings.MoviesDir, source); err != nil {
			errs = append(errs, err)
		} else {
			logger.Info("source set removed",
				logging.String("path", source.Path),
				logging.Int64("bytes", size),
				logging.String(logging.FieldEventType, "source_removed"),
			)
		}
	}

	if err := removeSet(o.settings.ClipsDir, derived); err != nil {
		errs = append(errs, err)
	} else {
		logger.Info("derived set removed",
			logging.String("path", derived.Path),
			logging.String(logging.FieldEventType, "derived_removed"),
		)
	}
	return errors.Join(errs...)
}
