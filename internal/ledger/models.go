package ledger

import "time"

// Mode distinguishes full runs from resumed ones and single-stage invocations.
type Mode string

const (
	ModeFull    Mode = "full"
	ModeResume  Mode = "resume"
	ModePublish Mode = "publish"
)

// Status is the per-clip publication status.
type Status string

const (
	StatusPublished Status = "published"
	StatusFailed    Status = "failed"
)

// Run is one recorded pipeline run.
type Run struct {
	ID          string
	Mode        Mode
	StartedAt   time.Time
	FinishedAt  *time.Time
	Outcome     string
	SourceTitle string
	ClipCount   int
	Cycles      int
	Published   int
	Failed      int
	// Remaining is -1 when the count could not be determined.
	Remaining    int
	CleanedUp    bool
	ErrorMessage string
}

// Finished reports whether the run recorded an outcome.
func (r Run) Finished() bool {
	return r.FinishedAt != nil
}

// RunSummary is written when a run reaches a terminal outcome.
type RunSummary struct {
	Outcome   string
	Cycles    int
	Published int
	Failed    int
	Remaining int
	CleanedUp bool
	Error     string
}

// ClipFile identifies one rendered clip on disk. A clip re-rendered at the
// same path has a different modification time and is a different file.
type ClipFile struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Publication is one recorded upload attempt.
type Publication struct {
	ID           int64
	RunID        string
	Cycle        int
	ClipPath     string
	ClipName     string
	ClipSize     int64
	ClipModTime  time.Time
	Status       Status
	PlatformID   string
	ErrorMessage string
	CreatedAt    time.Time
}

// File returns the clip identity the publication was recorded for.
func (p Publication) File() ClipFile {
	return ClipFile{Path: p.ClipPath, Size: p.ClipSize, ModTime: p.ClipModTime}
}
