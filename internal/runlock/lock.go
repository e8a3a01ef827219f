// Package runlock enforces a single pipeline run per state directory.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process holds the run lock.
var ErrLocked = errors.New("another reelmill run is already in progress")

// Lock is a held run lock.
type Lock struct {
	path string
	lock *flock.Flock
}

// Holder describes the process recorded in the lock file.
type Holder struct {
	PID     int
	RunID   string
	Started time.Time
}

// Acquire takes the lock at path without blocking and records the holder.
func Acquire(path, runID string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		if holder, readErr := ReadHolder(path); readErr == nil && holder.PID > 0 {
			return nil, fmt.Errorf("%w (pid %d, run %s)", ErrLocked, holder.PID, holder.RunID)
		}
		return nil, ErrLocked
	}
	contents := fmt.Sprintf("%d\n%s\n%s\n", os.Getpid(), runID, time.Now().UTC().Format(time.RFC3339))
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		_ = fl.Unlock()
		return nil, fmt.Errorf("record lock holder: %w", err)
	}
	return &Lock{path: path, lock: fl}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Release clears the holder record and unlocks.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	_ = os.Truncate(l.path, 0)
	return l.lock.Unlock()
}

// Held reports whether some process currently holds the lock at path.
func Held(path string) (bool, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe lock: %w", err)
	}
	if ok {
		_ = fl.Unlock()
		return false, nil
	}
	return true, nil
}

// ReadHolder parses the holder record written by Acquire.
func ReadHolder(path string) (Holder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Holder{}, err
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return Holder{}, errors.New("lock holder not recorded")
	}
	var holder Holder
	if holder.PID, err = strconv.Atoi(strings.TrimSpace(lines[0])); err != nil {
		return Holder{}, fmt.Errorf("parse lock pid: %w", err)
	}
	if len(lines) > 1 {
		holder.RunID = strings.TrimSpace(lines[1])
	}
	if len(lines) > 2 {
		holder.Started, _ = time.Parse(time.RFC3339, strings.TrimSpace(lines[2]))
	}
	return holder, nil
}
