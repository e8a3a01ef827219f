package acquisition

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reelmill/internal/services"
)

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec services.Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps aria2c magnet downloads.
type Client struct {
	binary  string
	timeout time.Duration
	exec    services.Executor
}

// NewClient constructs an aria2c client. timeoutSeconds bounds one download;
// zero disables the client-side bound.
func NewClient(binary string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("aria2c binary required")
	}
	client := &Client{
		binary:  binary,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    services.CommandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Download fetches magnet into destDir and returns the number of regular
// files written. destDir is removed first so a partial earlier attempt never
// leaks into the result.
func (c *Client) Download(ctx context.Context, magnet, destDir string, onLine func(string)) (int, error) {
	magnet = strings.TrimSpace(magnet)
	if magnet == "" {
		return 0, errors.New("magnet link required")
	}
	if strings.TrimSpace(destDir) == "" {
		return 0, errors.New("destination directory required")
	}
	if err := os.RemoveAll(destDir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("prepare destination: %w", err)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return 0, fmt.Errorf("create destination: %w", err)
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.exec.Run(runCtx, c.binary, downloadArgs(magnet, destDir), onLine); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return 0, fmt.Errorf("aria2c timed out after %s: %w", c.timeout, context.DeadlineExceeded)
		}
		return 0, fmt.Errorf("aria2c: %w", err)
	}

	count, err := countFiles(destDir)
	if err != nil {
		return 0, fmt.Errorf("inspect download: %w", err)
	}
	if count == 0 {
		return 0, errors.New("aria2c finished but no files were downloaded")
	}
	return count, nil
}

func downloadArgs(magnet, destDir string) []string {
	return []string{
		magnet,
		"--dir", destDir,
		"--seed-time=0",
		"--enable-dht=true",
		"--bt-enable-lpd=true",
		"--bt-save-metadata=true",
		"--summary-interval=5",
		"--bt-tracker-timeout=60",
		"--bt-tracker-connect-timeout=60",
		"--timeout=60",
	}
}

func countFiles(dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			count++
		}
		return nil
	})
	return count, err
}

// isStartMarker reports whether an aria2c output line shows that the transfer
// or metadata exchange has begun.
func isStartMarker(line string) bool {
	return strings.Contains(line, "[#") || strings.Contains(line, "[METADATA]")
}
