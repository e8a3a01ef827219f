package segmentation

import "testing"

var defaults = Options{ClipSeconds: 240, LeadMarginSeconds: 900, TrailMarginSeconds: 1200}

func TestPlanDefaultWindows(t *testing.T) {
	// 2h source: usable range [900, 6000) -> starts 900, 1140, ..., 5940.
	windows := Plan(7200, defaults)
	if len(windows) != 22 {
		t.Fatalf("expected 22 windows, got %d", len(windows))
	}
	if windows[0] != (Window{Index: 1, Start: 900, Seconds: 240}) {
		t.Fatalf("unexpected first window %+v", windows[0])
	}
	last := windows[len(windows)-1]
	if last.Index != 22 || last.Start != 5940 {
		t.Fatalf("unexpected last window %+v", last)
	}
}

func TestPlanShortSourceYieldsNothing(t *testing.T) {
	for _, duration := range []float64{0, 60, 2100, 2100.9} {
		if windows := Plan(duration, defaults); len(windows) != 0 {
			t.Fatalf("duration %v: expected no windows, got %d", duration, len(windows))
		}
	}
	if windows := Plan(2101, defaults); len(windows) != 1 {
		t.Fatalf("expected exactly one window just past the margins, got %d", len(windows))
	}
}

func TestPlanFloorsDuration(t *testing.T) {
	// floor(2340.99) - 1200 = 1140: starts 900 only.
	if windows := Plan(2340.99, defaults); len(windows) != 1 {
		t.Fatalf("expected 1 window, got %d", len(windows))
	}
	// floor(2341) - 1200 = 1141: starts 900 and 1140.
	if windows := Plan(2341, defaults); len(windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(windows))
	}
}

func TestPlanRejectsInvalidOptions(t *testing.T) {
	if Plan(7200, Options{ClipSeconds: 0}) != nil {
		t.Fatal("expected nil for zero clip length")
	}
	windows := Plan(1000, Options{ClipSeconds: 300})
	if len(windows) != 4 || windows[3].Start != 900 {
		t.Fatalf("expected margins of zero to cover the whole source, got %+v", windows)
	}
}
