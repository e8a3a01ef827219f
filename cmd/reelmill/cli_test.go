package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"reelmill/internal/config"
	"reelmill/internal/ledger"
	"reelmill/internal/pipeline"
	"reelmill/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t, opts...)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "reelmill.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected existing file to be refused, got %v", err)
	}
}

func TestHistoryListsRecordedRuns(t *testing.T) {
	env := setupCLITestEnv(t)
	store, err := ledger.Open(env.cfg)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	ctx := context.Background()
	if err := store.StartRun(ctx, "0f9c2a7e-run", ledger.ModeFull); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := store.SetSource(ctx, "0f9c2a7e-run", "Heat", 12); err != nil {
		t.Fatalf("SetSource: %v", err)
	}
	if err := store.FinishRun(ctx, "0f9c2a7e-run", ledger.RunSummary{Outcome: "completed", Cycles: 3, Published: 12, Failed: 3, CleanedUp: true}); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	store.Close()

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "0f9c2a7e")
	requireContains(t, out, "Completed")
	requireContains(t, out, "Heat")

	out, _, err = runCLI(t, []string{"history", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	requireContains(t, out, `"published": 12`)
	requireContains(t, out, `"failed": 3`)
}

func TestHistoryEmptyLedger(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded")
}

func TestCatalogList(t *testing.T) {
	env := setupCLITestEnv(t)
	csv := "Movies,Magnet Links\nHeat,magnet:?xt=urn:btih:aaaa\nAlien,magnet:?xt=urn:btih:bbbb\n"
	if err := os.WriteFile(env.cfg.Catalog.Path, []byte(csv), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	out, _, err := runCLI(t, []string{"catalog", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("catalog list: %v", err)
	}
	requireContains(t, out, "Heat")
	requireContains(t, out, "Alien")
	requireContains(t, out, "2 movie(s)")
}

func TestStatusShowsWaitingClips(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries())
	testsupport.WriteClips(t, env.cfg.Paths.ClipsDir, "Heat", 3)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Heat (3 waiting)")
	requireContains(t, out, "[INFO] Idle")
	requireContains(t, out, "None recorded")
	requireContains(t, out, "aria2c")
}

func TestTestNotifyWithoutTransportFails(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"test-notify"}, env.configPath); err == nil {
		t.Fatal("expected error without notification transports")
	}
}

func TestPublishCommandPublishesOneBatch(t *testing.T) {
	var uploads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fmt.Fprintf(w, `{"id":"video-%d"}`, uploads.Add(1))
	}))
	t.Cleanup(srv.Close)
	env := setupCLITestEnv(t, testsupport.WithGraphURL(srv.URL), testsupport.WithBatching(2, 6))
	testsupport.WriteClips(t, env.cfg.Paths.ClipsDir, "Heat", 3)

	out, _, err := runCLI(t, []string{"publish"}, env.configPath)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	requireContains(t, out, "2/2 succeeded")
	if uploads.Load() != 2 {
		t.Fatalf("expected 2 uploads, got %d", uploads.Load())
	}
}

func TestRunWithEmptyCatalogAborts(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries())
	if err := os.WriteFile(env.cfg.Catalog.Path, []byte("Movies,Magnet Links\n"), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	out, _, err := runCLI(t, []string{"run"}, env.configPath)
	if !errors.Is(err, pipeline.ErrAborted) {
		t.Fatalf("expected aborted run, got %v", err)
	}
	requireContains(t, out, "Aborted At Acquisition")
}
