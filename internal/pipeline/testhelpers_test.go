package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"reelmill/internal/acquisition"
	"reelmill/internal/artifacts"
	"reelmill/internal/config"
	"reelmill/internal/pipeline"
	"reelmill/internal/publication"
	"reelmill/internal/segmentation"
	"reelmill/internal/testsupport"
	"reelmill/internal/textutil"
)

type fakeAcquirer struct {
	moviesDir string
	title     string
	skipMedia bool
	err       error
	panicMsg  string
	block     bool
	calls     int
}

func (f *fakeAcquirer) Acquire(ctx context.Context) (acquisition.Result, error) {
	f.calls++
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.block {
		<-ctx.Done()
		return acquisition.Result{}, ctx.Err()
	}
	if f.err != nil {
		return acquisition.Result{}, f.err
	}
	dir := filepath.Join(f.moviesDir, textutil.DirName(f.title))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return acquisition.Result{}, err
	}
	name := "movie.mkv"
	if f.skipMedia {
		name = "readme.txt"
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte("video"), 0o644); err != nil {
		return acquisition.Result{}, err
	}
	return acquisition.Result{Title: f.title, Dir: dir, Files: 1}, nil
}

type fakeSegmenter struct {
	t        *testing.T
	clipsDir string
	count    int
	err      error
	calls    int
	media    string
}

func (f *fakeSegmenter) Segment(_ context.Context, source artifacts.Set, media artifacts.Media) (segmentation.Result, error) {
	f.calls++
	f.media = media.Path
	if f.err != nil {
		return segmentation.Result{}, f.err
	}
	base := textutil.DirName(source.Name)
	dir := testsupport.WriteClips(f.t, f.clipsDir, base, f.count)
	clips, err := artifacts.ListClips(dir)
	if err != nil {
		return segmentation.Result{}, err
	}
	result := segmentation.Result{Dir: dir, Base: base}
	for _, clip := range clips {
		result.Clips = append(result.Clips, clip.Path)
	}
	return result, nil
}

type fakePublisher struct {
	failNames map[string]bool
	errOnCall int
	dropSet   bool
	batches   []int
	names     [][]string
}

func (f *fakePublisher) Publish(_ context.Context, dir string, clips []artifacts.Clip) (publication.Report, error) {
	f.batches = append(f.batches, len(clips))
	if f.dropSet {
		defer os.RemoveAll(dir)
	}
	if f.errOnCall > 0 && len(f.batches) == f.errOnCall {
		return publication.Report{}, errors.New("missing credentials: publication.page_token (PAGE_TOKEN)")
	}
	var names []string
	report := publication.Report{}
	for _, clip := range clips {
		names = append(names, clip.Name)
		if f.failNames[clip.Name] {
			report.Outcomes = append(report.Outcomes, publication.Outcome{Path: clip.Path, File: clip.Name, Status: publication.StatusFailed, Error: "rejected"})
			continue
		}
		if err := os.Remove(clip.Path); err != nil {
			return report, err
		}
		report.Outcomes = append(report.Outcomes, publication.Outcome{Path: clip.Path, File: clip.Name, Status: publication.StatusSuccess, ID: "id-" + clip.Name})
	}
	f.names = append(f.names, names)
	return report, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingNotifier) Notify(_ context.Context, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

func (r *recordingNotifier) contains(fragment string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range r.messages {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

func (r *recordingNotifier) count(fragment string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, msg := range r.messages {
		if strings.Contains(msg, fragment) {
			n++
		}
	}
	return n
}

type recordingSleeper struct {
	waits []time.Duration
}

func (s *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

type harness struct {
	cfg       *config.Config
	acquirer  *fakeAcquirer
	segmenter *fakeSegmenter
	publisher *fakePublisher
	notifier  *recordingNotifier
	sleeper   *recordingSleeper
}

func newHarness(t *testing.T, clips int, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Pipeline.BatchIntervalSeconds = 3600
	return &harness{
		cfg:       cfg,
		acquirer:  &fakeAcquirer{moviesDir: cfg.Paths.MoviesDir, title: "Blade Runner"},
		segmenter: &fakeSegmenter{t: t, clipsDir: cfg.Paths.ClipsDir, count: clips},
		publisher: &fakePublisher{},
		notifier:  &recordingNotifier{},
		sleeper:   &recordingSleeper{},
	}
}

func (h *harness) orchestrator(opts ...pipeline.Option) *pipeline.Orchestrator {
	opts = append([]pipeline.Option{pipeline.WithSleeper(h.sleeper.sleep), pipeline.WithRunID("run-test")}, opts...)
	return pipeline.New(pipeline.SettingsFromConfig(h.cfg), h.acquirer, h.segmenter, h.publisher, h.notifier, nil, opts...)
}

func countEntries(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read %s: %v", dir, err)
	}
	return len(entries)
}
