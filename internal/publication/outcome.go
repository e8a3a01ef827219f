package publication

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"reelmill/internal/ledger"
)

// Status values written to the outcome log.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Outcome is the per-clip result of one upload attempt.
type Outcome struct {
	Path   string `json:"-"`
	File   string `json:"file"`
	Status string `json:"status"`
	ID     string `json:"id,omitempty"`
	Error  string `json:"error,omitempty"`
	// Skipped is set when the ledger already recorded the clip as published
	// and it was only removed.
	Skipped bool `json:"skipped,omitempty"`

	Size    int64     `json:"-"`
	ModTime time.Time `json:"-"`
}

func (o Outcome) clipFile() ledger.ClipFile {
	return ledger.ClipFile{Path: o.Path, Size: o.Size, ModTime: o.ModTime}
}

// Succeeded reports whether the clip was accepted.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSuccess
}

// Report summarizes one Publish invocation.
type Report struct {
	Dir      string
	LogPath  string
	Outcomes []Outcome
}

// Attempted returns the number of clips in the batch.
func (r Report) Attempted() int {
	return len(r.Outcomes)
}

// Succeeded returns how many clips were accepted.
func (r Report) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Succeeded() {
			n++
		}
	}
	return n
}

// LogFileName returns the outcome log name for an invocation at t.
func LogFileName(t time.Time) string {
	return "upload_log_" + t.Format("20060102_150405") + ".json"
}

// writeOutcomeLog stores outcomes as an indented JSON array in dir. A second
// invocation within the same second gets a numeric suffix instead of
// overwriting the first log.
func writeOutcomeLog(dir string, now time.Time, outcomes []Outcome) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload log dir: %w", err)
	}
	if outcomes == nil {
		outcomes = []Outcome{}
	}
	data, err := json.MarshalIndent(outcomes, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode upload log: %w", err)
	}
	data = append(data, '\n')

	name := LogFileName(now)
	base := name[:len(name)-len(".json")]
	for attempt := 1; attempt < 100; attempt++ {
		path := filepath.Join(dir, name)
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			name = fmt.Sprintf("%s_%d.json", base, attempt+1)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create upload log: %w", err)
		}
		if _, err := file.Write(data); err != nil {
			_ = file.Close()
			return "", fmt.Errorf("write upload log: %w", err)
		}
		if err := file.Close(); err != nil {
			return "", fmt.Errorf("close upload log: %w", err)
		}
		return path, nil
	}
	return "", fmt.Errorf("upload log %s: too many logs in one second", LogFileName(now))
}
