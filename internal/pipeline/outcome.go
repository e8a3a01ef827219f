package pipeline

import (
	"errors"
	"fmt"
)

// Outcome is the terminal state of a run.
type Outcome string

const (
	OutcomeCompleted              Outcome = "completed"
	OutcomeAbortedAtAcquisition   Outcome = "aborted_at_acquisition"
	OutcomeAbortedAtSegmentation  Outcome = "aborted_at_segmentation"
	OutcomeAbortedAtPublication   Outcome = "aborted_at_publication"
	OutcomeCompletedWithRemainder Outcome = "completed_with_remainder"
)

// Fatal reports whether the outcome must surface as a non-zero exit status.
func (o Outcome) Fatal() bool {
	return o == OutcomeAbortedAtAcquisition || o == OutcomeAbortedAtSegmentation
}

func (o Outcome) String() string {
	return string(o)
}

// Stage names used in notifications, logs and StageError.
const (
	StageAcquisition  = "acquisition"
	StageSegmentation = "segmentation"
	StagePublication  = "publication"
	StageCleanup      = "cleanup"
)

// ErrAborted marks runs that stopped at acquisition or segmentation.
var ErrAborted = errors.New("pipeline aborted")

// StageError attributes a failure to the stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return e.Stage + " failed"
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Result summarizes a finished run.
type Result struct {
	RunID  string
	Source string
	// Clips is the number of clips segmentation produced, or the number
	// waiting when a run was resumed.
	Clips     int
	Outcome   Outcome
	Cycles    int
	Published int
	Failed    int
	// Remaining is -1 when the derived set could not be resolved.
	Remaining   int
	CleanedUp   bool
	Interrupted bool
}
