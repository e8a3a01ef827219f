// Package logging assembles structured slog loggers and formatting helpers used
// across reelmill.
//
// It owns the console and JSON handlers, level and output plumbing, and the
// context helpers that tag log lines with run IDs, cycles, and stage names.
// Each pipeline run writes to stdout and to its own reelmill-<run>.log file;
// CleanupOldLogs prunes those files together with upload outcome logs.
package logging
