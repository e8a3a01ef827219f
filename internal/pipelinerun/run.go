package pipelinerun

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"reelmill/internal/config"
	"reelmill/internal/logging"
	"reelmill/internal/pipeline"
	"reelmill/internal/preflight"
)

// Options configures a pipeline invocation.
type Options struct {
	// Resume skips acquisition and segmentation and continues publishing
	// the current derived set.
	Resume bool
}

// Run executes one full (or resumed) pipeline run. SIGINT and SIGTERM stop
// the run at the next cancellation point; clips that were not published stay
// on disk for a later resume. The returned error wraps pipeline.ErrAborted
// when the run aborted at acquisition or segmentation.
func Run(ctx context.Context, cfg *config.Config, opts Options) (pipeline.Result, error) {
	signalCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	session, err := Open(cfg)
	if err != nil {
		return pipeline.Result{}, err
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			logging.WarnWithContext(session.Logger, "session close failed", "session_close_failed", logging.Error(closeErr))
		}
	}()

	mode := preflight.ModeFull
	if opts.Resume {
		mode = preflight.ModeResume
	}
	session.Preflight(signalCtx, mode)

	orch, err := session.Orchestrator()
	if err != nil {
		return pipeline.Result{}, err
	}

	var result pipeline.Result
	if opts.Resume {
		result, err = orch.Resume(signalCtx)
	} else {
		result, err = orch.Run(signalCtx)
	}
	if errors.Is(signalCtx.Err(), context.Canceled) {
		result.Interrupted = true
	}
	return result, err
}

// Orchestrator builds the pipeline for this session.
func (s *Session) Orchestrator() (*pipeline.Orchestrator, error) {
	stages, err := s.BuildStages()
	if err != nil {
		return nil, err
	}
	return pipeline.New(
		pipeline.SettingsFromConfig(s.Config),
		stages.Acquisition,
		stages.Segmentation,
		stages.Publication,
		s.Notifier,
		s.Logger,
		pipeline.WithRecorder(s.Ledger),
		pipeline.WithRunID(s.RunID),
	), nil
}
