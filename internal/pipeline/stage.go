package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"reelmill/internal/ledger"
	"reelmill/internal/logging"
	"reelmill/internal/notifications"
	"reelmill/internal/services"
)

// runStage invokes fn under the stage timeout. A panic inside fn is
// recovered and returned as an error.
func (o *Orchestrator) runStage(ctx context.Context, stage string, fn func(context.Context) error) (err error) {
	ctx = services.WithStage(ctx, stage)
	logger := logging.WithContext(ctx, o.logger)

	stageCtx := ctx
	if o.settings.StageTimeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, o.settings.StageTimeout)
		defer cancel()
	}

	started := time.Now()
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_started"))
	defer func() {
		if r := recover(); r != nil {
			logger.Error("stage panicked",
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
				logging.String(logging.FieldEventType, "stage_panic"),
			)
			err = services.Wrap(services.ErrTransient, stage, "run", fmt.Sprintf("panic: %v", r), nil)
		}
		if err != nil && errors.Is(stageCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, services.ErrTimeout) {
			err = services.Wrap(services.ErrTimeout, stage, "run",
				fmt.Sprintf("stage timed out after %s", o.settings.StageTimeout), err)
		}
		if err == nil {
			logger.Info("stage completed",
				logging.Duration("duration", time.Since(started).Round(time.Millisecond)),
				logging.String(logging.FieldEventType, "stage_completed"),
			)
		}
	}()

	return fn(stageCtx)
}

// abort ends a run that failed at acquisition or segmentation.
func (o *Orchestrator) abort(ctx context.Context, result Result, stage string, outcome Outcome, err error) (Result, error) {
	ctx = services.WithStage(ctx, stage)
	logger := logging.WithContext(ctx, o.logger)
	stageErr := &StageError{Stage: stage, Err: err}

	logging.ErrorWithContext(logger, "pipeline aborted", "pipeline_aborted", err,
		logging.String("outcome", outcome.String()),
		logging.String(logging.FieldErrorHint, hintFor(stage)),
		logging.String(logging.FieldImpact, "later stages were not run"),
	)
	o.notifier.Notify(ctx, notifications.StageFailed(stage, err, o.settings.DetailLimit))
	o.notifier.Notify(ctx, notifications.Aborted(stage))

	result.Outcome = outcome
	o.finishRecord(ctx, result, err)
	return result, fmt.Errorf("%w: %w", ErrAborted, stageErr)
}

func hintFor(stage string) string {
	switch stage {
	case StageAcquisition:
		return "check the magnet catalog, aria2c availability and acquisition.timeout_seconds"
	case StageSegmentation:
		return "check ffmpeg/ffprobe availability and that the download contains a video file"
	case StagePublication:
		return "check publication.page_id/page_token and the clip directory"
	default:
		return "see the run log for details"
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ledgerContext keeps bookkeeping writes alive after a shutdown signal.
func ledgerContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
}

func (o *Orchestrator) startRecord(ctx context.Context, runID string, mode ledger.Mode) {
	if o.recorder == nil {
		return
	}
	recordCtx, cancel := ledgerContext(ctx)
	defer cancel()
	if err := o.recorder.StartRun(recordCtx, runID, mode); err != nil {
		o.warnLedger(ctx, "start run", err)
	}
}

func (o *Orchestrator) recordSource(ctx context.Context, result Result) {
	if o.recorder == nil {
		return
	}
	recordCtx, cancel := ledgerContext(ctx)
	defer cancel()
	if err := o.recorder.SetSource(recordCtx, result.RunID, result.Source, result.Clips); err != nil {
		o.warnLedger(ctx, "set source", err)
	}
}

func (o *Orchestrator) finishRecord(ctx context.Context, result Result, runErr error) {
	if o.recorder == nil {
		return
	}
	summary := ledger.RunSummary{
		Outcome:   result.Outcome.String(),
		Cycles:    result.Cycles,
		Published: result.Published,
		Failed:    result.Failed,
		Remaining: result.Remaining,
		CleanedUp: result.CleanedUp,
	}
	if runErr != nil {
		summary.Error = runErr.Error()
	}
	recordCtx, cancel := ledgerContext(ctx)
	defer cancel()
	if err := o.recorder.FinishRun(recordCtx, result.RunID, summary); err != nil {
		o.warnLedger(ctx, "finish run", err)
	}
}

func (o *Orchestrator) warnLedger(ctx context.Context, op string, err error) {
	logging.WarnWithContext(logging.WithContext(ctx, o.logger), "run ledger write failed", "ledger_write_failed",
		logging.String("operation", op),
		logging.Error(err),
		logging.String(logging.FieldImpact, "history for this run is incomplete; pipeline continues"),
	)
}
