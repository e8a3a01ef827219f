package preflight

import (
	"context"

	"reelmill/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Mode selects which checks apply to the invocation.
type Mode int

const (
	// ModeFull checks everything a fresh run touches.
	ModeFull Mode = iota
	// ModeResume skips acquisition prerequisites.
	ModeResume
)

// RunAll executes the local (offline) preflight checks for the given config.
func RunAll(_ context.Context, cfg *config.Config, mode Mode) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results,
		CheckDirectoryAccess("Movies directory", cfg.Paths.MoviesDir),
		CheckDirectoryAccess("Clips directory", cfg.Paths.ClipsDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	)
	if mode == ModeFull {
		results = append(results, CheckCatalog(cfg.Catalog.Path))
	}
	results = append(results, CheckCredentials(cfg.Publication))
	return results
}

// Failed filters results down to failed checks.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
