package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"reelmill/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Publication credentials are set, notification transports are left empty and
// the batch interval is zero so pipelines never sleep.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.MoviesDir = filepath.Join(base, "movies")
	cfgVal.Paths.ClipsDir = filepath.Join(base, "clips")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Catalog.Path = filepath.Join(base, "catalog.csv")
	cfgVal.Publication.PageID = "page-test"
	cfgVal.Publication.PageToken = "token-test"
	cfgVal.Publication.CaptionsFile = filepath.Join(base, "captions.txt")
	cfgVal.Publication.LogDir = filepath.Join(base, "state", "uploads")
	cfgVal.Pipeline.BatchIntervalSeconds = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithGraphURL points publication at a test server.
func WithGraphURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Publication.GraphBaseURL = url
	}
}

// WithoutCredentials clears the publication page id and token.
func WithoutCredentials() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Publication.PageID = ""
		b.cfg.Publication.PageToken = ""
	}
}

// WithBatching overrides the batch size and cycle ceiling.
func WithBatching(batchSize, maxCycles int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Publication.BatchSize = batchSize
		b.cfg.Pipeline.MaxCycles = maxCycles
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default reelmill external
// binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"aria2c", "ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.MoviesDir)
}
