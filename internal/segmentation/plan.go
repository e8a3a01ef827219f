package segmentation

import "math"

// Options controls clip window planning. All values are in seconds.
type Options struct {
	ClipSeconds        int
	LeadMarginSeconds  int
	TrailMarginSeconds int
}

// Window is one planned clip. Index is 1-based generation order.
type Window struct {
	Index   int
	Start   int
	Seconds int
}

// Plan returns the clip windows for a source of the given duration. Windows
// start at the lead margin and advance by the clip length while the start is
// before floor(duration) minus the trail margin. A source no longer than both
// margins combined yields no windows.
func Plan(duration float64, opts Options) []Window {
	if opts.ClipSeconds <= 0 || duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return nil
	}
	lead := max(opts.LeadMarginSeconds, 0)
	trail := max(opts.TrailMarginSeconds, 0)
	end := int(math.Floor(duration)) - trail
	if end <= lead {
		return nil
	}
	windows := make([]Window, 0, (end-lead+opts.ClipSeconds-1)/opts.ClipSeconds)
	for start, idx := lead, 1; start < end; start, idx = start+opts.ClipSeconds, idx+1 {
		windows = append(windows, Window{Index: idx, Start: start, Seconds: opts.ClipSeconds})
	}
	return windows
}
