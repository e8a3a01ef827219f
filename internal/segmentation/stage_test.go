package segmentation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelmill/internal/artifacts"
	"reelmill/internal/config"
	"reelmill/internal/services"
)

type fixedProber struct {
	seconds float64
	err     error
}

func (p fixedProber) Duration(context.Context, string) (float64, error) { return p.seconds, p.err }

type recordingExecutor struct {
	calls  [][]string
	failAt int
}

func (r *recordingExecutor) Run(_ context.Context, _ string, args []string, _ func(string)) error {
	r.calls = append(r.calls, args)
	if r.failAt > 0 && len(r.calls) == r.failAt {
		return errors.New("Invalid data found when processing input")
	}
	dst := args[len(args)-1]
	return os.WriteFile(dst, []byte("clip"), 0o644)
}

func newTestRenderer(t *testing.T, exec *recordingExecutor) *Renderer {
	t.Helper()
	r, err := NewRenderer(config.Default().Segmentation, WithExecutor(exec))
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return r
}

func TestSegmentRendersClipsIntoDerivedSet(t *testing.T) {
	clipsRoot := t.TempDir()
	exec := &recordingExecutor{}
	// 2100 + 3*240 = 2820 -> three windows.
	stage := NewStage(clipsRoot, defaults, fixedProber{seconds: 2820}, newTestRenderer(t, exec), nil, nil)

	source := artifacts.Set{Name: "Blade Runner", Path: "/movies/Blade Runner"}
	result, err := stage.Segment(context.Background(), source, artifacts.Media{Path: "/movies/Blade Runner/br.mkv"})
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if result.Base != "Blade_Runner" || result.Dir != filepath.Join(clipsRoot, "Blade_Runner") {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(result.Clips) != 3 || len(exec.calls) != 3 {
		t.Fatalf("expected 3 clips, got %d (calls %d)", len(result.Clips), len(exec.calls))
	}

	clips, err := artifacts.ListClips(result.Dir)
	if err != nil {
		t.Fatalf("ListClips: %v", err)
	}
	if len(clips) != 3 || clips[0].Name != "Blade_Runner_reel_01.mp4" || clips[2].Name != "Blade_Runner_reel_03.mp4" {
		t.Fatalf("unexpected clips %+v", clips)
	}

	args := strings.Join(exec.calls[1], " ")
	for _, fragment := range []string{
		"-ss 1140", "-i /movies/Blade Runner/br.mkv", "-t 240",
		"scale=w=1080:h=1920:force_original_aspect_ratio=decrease,pad=1080:1920:(ow-iw)/2:(oh-ih)/2:black",
		"-c:v libx264", "-crf 22", "-preset slow", "-c:a aac", "-b:a 128k", "-f mp4",
	} {
		if !strings.Contains(args, fragment) {
			t.Fatalf("missing %q in %s", fragment, args)
		}
	}
}

func TestSegmentShortSourceCreatesEmptySet(t *testing.T) {
	clipsRoot := t.TempDir()
	exec := &recordingExecutor{}
	stage := NewStage(clipsRoot, defaults, fixedProber{seconds: 1800}, newTestRenderer(t, exec), nil, nil)
	result, err := stage.Segment(context.Background(), artifacts.Set{Name: "short"}, artifacts.Media{Path: "short.mp4"})
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(result.Clips) != 0 || len(exec.calls) != 0 {
		t.Fatalf("expected no clips, got %+v", result)
	}
	if info, err := os.Stat(result.Dir); err != nil || !info.IsDir() {
		t.Fatalf("expected empty derived set to exist: %v", err)
	}
}

func TestSegmentRenderFailureFailsStage(t *testing.T) {
	clipsRoot := t.TempDir()
	exec := &recordingExecutor{failAt: 2}
	stage := NewStage(clipsRoot, defaults, fixedProber{seconds: 2820}, newTestRenderer(t, exec), nil, nil)
	result, err := stage.Segment(context.Background(), artifacts.Set{Name: "movie"}, artifacts.Media{Path: "m.mkv"})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool failure, got %v", err)
	}
	if len(exec.calls) != 2 || len(result.Clips) != 1 {
		t.Fatalf("expected to stop after the failing render, calls=%d clips=%d", len(exec.calls), len(result.Clips))
	}
	entries, _ := os.ReadDir(filepath.Join(clipsRoot, "movie"))
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), partialSuffix) {
			t.Fatalf("partial clip left behind: %s", entry.Name())
		}
	}
}

func TestSegmentProbeFailure(t *testing.T) {
	stage := NewStage(t.TempDir(), defaults, fixedProber{err: errors.New("no duration")}, newTestRenderer(t, &recordingExecutor{}), nil, nil)
	if _, err := stage.Segment(context.Background(), artifacts.Set{Name: "m"}, artifacts.Media{Path: "m.mkv"}); err == nil {
		t.Fatal("expected probe failure")
	}
}

func TestSegmentReplacesStaleClips(t *testing.T) {
	clipsRoot := t.TempDir()
	stale := filepath.Join(clipsRoot, "movie", "movie_reel_09.mp4")
	if err := os.MkdirAll(filepath.Dir(stale), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	stage := NewStage(clipsRoot, defaults, fixedProber{seconds: 2400}, newTestRenderer(t, &recordingExecutor{}), nil, nil)
	if _, err := stage.Segment(context.Background(), artifacts.Set{Name: "movie"}, artifacts.Media{Path: "m.mkv"}); err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("expected stale clip removed")
	}
}

func TestNewRendererValidates(t *testing.T) {
	cfg := config.Default().Segmentation
	cfg.FFmpegBinary = ""
	if _, err := NewRenderer(cfg); err == nil {
		t.Fatal("expected error for missing binary")
	}
	cfg = config.Default().Segmentation
	cfg.Width = 0
	if _, err := NewRenderer(cfg); err == nil {
		t.Fatal("expected error for invalid dimensions")
	}
}
