package pipelinerun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"reelmill/internal/config"
	"reelmill/internal/deps"
	"reelmill/internal/ledger"
	"reelmill/internal/logging"
	"reelmill/internal/notifications"
	"reelmill/internal/preflight"
	"reelmill/internal/runlock"
	"reelmill/internal/services"
)

// Session holds the process-wide resources of one invocation. Close must be
// called to release the run lock and the ledger.
type Session struct {
	Config   *config.Config
	RunID    string
	Logger   *slog.Logger
	LogPath  string
	Ledger   *ledger.Store
	Notifier *notifications.Service

	lock *runlock.Lock
}

// Open creates the run logger, prunes old logs, takes the run lock and opens
// the ledger. It fails with runlock.ErrLocked when another run is active.
func Open(cfg *config.Config) (*Session, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger, logPath, err := logging.NewRunLogger(cfg, runID)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "reelmill-*.log", Exclude: []string{logPath}},
		logging.RetentionTarget{Dir: cfg.Publication.LogDir, Pattern: "upload_log_*.json"},
	)

	lock, err := runlock.Acquire(cfg.LockPath(), runID)
	if err != nil {
		logging.ErrorWithContext(logger.With(logging.String(logging.FieldRunID, runID)), "run lock unavailable", "run_locked", err,
			logging.String("lock_path", cfg.LockPath()),
			logging.String(logging.FieldErrorHint, "wait for the active run to finish or check `reelmill status`"),
		)
		return nil, err
	}

	store, err := ledger.Open(cfg)
	if err != nil {
		_ = lock.Release()
		return nil, fmt.Errorf("open run ledger: %w", err)
	}

	return &Session{
		Config:   cfg,
		RunID:    runID,
		Logger:   logger,
		LogPath:  logPath,
		Ledger:   store,
		Notifier: notifications.New(cfg, logger),
		lock:     lock,
	}, nil
}

// Close releases the ledger and the run lock.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.Ledger != nil {
		if err := s.Ledger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close ledger: %w", err))
		}
	}
	if s.lock != nil {
		if err := s.lock.Release(); err != nil {
			errs = append(errs, fmt.Errorf("release lock: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Context tags ctx with the session's run id.
func (s *Session) Context(ctx context.Context) context.Context {
	return services.WithRunID(ctx, s.RunID)
}

// Preflight logs the dependency snapshot and every failed local check.
// Failures never stop the run: each stage reports its own error when it
// actually needs the missing piece.
func (s *Session) Preflight(ctx context.Context, mode preflight.Mode) []preflight.Result {
	logger := logging.WithContext(s.Context(ctx), s.Logger)
	statuses := deps.CheckBinaries(deps.PipelineRequirements(s.Config))
	attrs := []logging.Attr{logging.String(logging.FieldEventType, "dependency_snapshot")}
	for _, status := range statuses {
		attrs = append(attrs, logging.Bool(status.Command+"_available", status.Available))
	}
	attrs = append(attrs,
		logging.Bool("page_token_present", s.Config.Publication.PageToken != ""),
		logging.Bool("notifications_enabled", s.Notifier.Enabled()),
		logging.String("log_path", filepath.Base(s.LogPath)),
	)
	logger.Info("dependency snapshot", logging.Args(attrs...)...)

	results := preflight.RunAll(ctx, s.Config, mode)
	for _, failed := range preflight.Failed(results) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", failed.Name),
			logging.String("detail", failed.Detail),
			logging.String(logging.FieldImpact, "the stage that needs it will fail"),
		)
	}
	for _, status := range deps.Missing(statuses) {
		logging.WarnWithContext(logger, "dependency missing", "dependency_missing",
			logging.String("dependency", status.Name),
			logging.String("detail", status.Detail),
		)
	}
	return results
}
