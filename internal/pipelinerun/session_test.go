package pipelinerun_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"reelmill/internal/artifacts"
	"reelmill/internal/config"
	"reelmill/internal/ledger"
	"reelmill/internal/pipeline"
	"reelmill/internal/pipelinerun"
	"reelmill/internal/preflight"
	"reelmill/internal/runlock"
	"reelmill/internal/testsupport"
)

func newGraphServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var uploads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		n := uploads.Add(1)
		fmt.Fprintf(w, `{"id":"video-%d"}`, n)
	}))
	t.Cleanup(srv.Close)
	return srv, &uploads
}

func openSession(t *testing.T, cfg *config.Config) *pipelinerun.Session {
	t.Helper()
	session, err := pipelinerun.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestOpenHoldsLockUntilClose(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	session, err := pipelinerun.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if session.RunID == "" {
		t.Fatal("expected run id")
	}
	if _, err := os.Stat(session.LogPath); err != nil {
		t.Fatalf("expected run log file: %v", err)
	}
	holder, err := runlock.ReadHolder(cfg.LockPath())
	if err != nil || holder.RunID != session.RunID {
		t.Fatalf("expected lock holder %s, got %+v (%v)", session.RunID, holder, err)
	}

	if _, err := pipelinerun.Open(cfg); !errors.Is(err, runlock.ErrLocked) {
		t.Fatalf("expected ErrLocked for a second session, got %v", err)
	}

	if err := session.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	again, err := pipelinerun.Open(cfg)
	if err != nil {
		t.Fatalf("reopen after close: %v", err)
	}
	_ = again.Close()
}

func TestPreflightReportsMissingCredentials(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutCredentials())
	session := openSession(t, cfg)

	results := session.Preflight(context.Background(), preflight.ModeFull)
	found := false
	for _, failed := range preflight.Failed(results) {
		if failed.Name == "Page credentials" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected credential check to fail, got %+v", results)
	}
}

func TestPublishBatchRecordsPublishRun(t *testing.T) {
	srv, uploads := newGraphServer(t)
	cfg := testsupport.NewConfig(t, testsupport.WithGraphURL(srv.URL))
	testsupport.WriteClips(t, cfg.Paths.ClipsDir, "Heat", 7)
	session := openSession(t, cfg)

	stages, err := session.BuildStages()
	if err != nil {
		t.Fatalf("BuildStages: %v", err)
	}
	report, err := session.PublishBatch(context.Background(), stages.Publication)
	if err != nil {
		t.Fatalf("PublishBatch: %v", err)
	}
	if report.Succeeded() != 5 || uploads.Load() != 5 {
		t.Fatalf("expected one batch of 5, got %d succeeded / %d uploads", report.Succeeded(), uploads.Load())
	}
	_, remaining, err := artifacts.CurrentClips(cfg.Paths.ClipsDir)
	if err != nil || len(remaining) != 2 {
		t.Fatalf("expected 2 clips left, got %d (%v)", len(remaining), err)
	}

	run, err := session.Ledger.GetRun(context.Background(), session.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Mode != ledger.ModePublish || run.Published != 5 || run.Remaining != 2 || run.SourceTitle != "Heat" {
		t.Fatalf("unexpected ledger row %+v", run)
	}
	count, err := session.Ledger.PublishedCount(context.Background(), session.RunID)
	if err != nil || count != 5 {
		t.Fatalf("expected 5 publications recorded, got %d (%v)", count, err)
	}
}

func TestRunResumePublishesAndCleansUp(t *testing.T) {
	srv, uploads := newGraphServer(t)
	cfg := testsupport.NewConfig(t, testsupport.WithGraphURL(srv.URL), testsupport.WithStubbedBinaries())
	testsupport.WriteClips(t, cfg.Paths.ClipsDir, "Heat", 7)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.MoviesDir, "Heat", "Heat.1995.mkv"), 64)

	result, err := pipelinerun.Run(context.Background(), cfg, pipelinerun.Options{Resume: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outcome != pipeline.OutcomeCompleted || !result.CleanedUp || result.Cycles != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	if uploads.Load() != 7 {
		t.Fatalf("expected 7 uploads, got %d", uploads.Load())
	}
	if entries, _ := os.ReadDir(cfg.Paths.MoviesDir); len(entries) != 0 {
		t.Fatalf("expected source set removed, found %d entries", len(entries))
	}

	store := testsupport.MustOpenLedger(t, cfg)
	last, err := store.LastRun(context.Background())
	if err != nil {
		t.Fatalf("LastRun: %v", err)
	}
	if last.ID != result.RunID || last.Mode != ledger.ModeResume || last.Outcome != "completed" {
		t.Fatalf("unexpected last run %+v", last)
	}
	if held, err := runlock.Held(cfg.LockPath()); err != nil || held {
		t.Fatalf("expected lock released after run, held=%v err=%v", held, err)
	}
}

func TestRunFailsWhileLocked(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lock, err := runlock.Acquire(cfg.LockPath(), "other-run")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	t.Cleanup(func() { _ = lock.Release() })

	if _, err := pipelinerun.Run(context.Background(), cfg, pipelinerun.Options{}); !errors.Is(err, runlock.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}
