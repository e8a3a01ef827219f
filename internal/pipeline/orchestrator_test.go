package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"reelmill/internal/artifacts"
	"reelmill/internal/ledger"
	"reelmill/internal/notifications"
	"reelmill/internal/pipeline"
	"reelmill/internal/services"
	"reelmill/internal/testsupport"
)

func TestRunThreeClipsCompletesInOneCycle(t *testing.T) {
	h := newHarness(t, 3)

	result, err := h.orchestrator().Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outcome != pipeline.OutcomeCompleted {
		t.Fatalf("expected completed, got %s", result.Outcome)
	}
	if !slices.Equal(h.publisher.batches, []int{3}) {
		t.Fatalf("expected a single batch of 3, got %v", h.publisher.batches)
	}
	if result.Cycles != 1 || result.Published != 3 || result.Remaining != 0 || !result.CleanedUp {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(h.sleeper.waits) != 0 {
		t.Fatalf("no wait expected once everything is published, got %v", h.sleeper.waits)
	}
	if countEntries(t, h.cfg.Paths.MoviesDir) != 0 || countEntries(t, h.cfg.Paths.ClipsDir) != 0 {
		t.Fatal("expected source and derived sets removed")
	}
	for _, fragment := range []string{"pipeline started", "batch 1/6", "3/3 succeeded", "All clips uploaded", "Deleted movie and clips", "finished (completed)"} {
		if !h.notifier.contains(fragment) {
			t.Fatalf("missing notification %q in %v", fragment, h.notifier.messages)
		}
	}
	if !strings.HasSuffix(h.segmenter.media, "movie.mkv") {
		t.Fatalf("expected largest media passed to segmentation, got %q", h.segmenter.media)
	}
}

func TestRunTwelveClipsPublishesFiveFiveTwo(t *testing.T) {
	h := newHarness(t, 12)
	store := testsupport.MustOpenLedger(t, h.cfg)

	result, err := h.orchestrator(pipeline.WithRecorder(store)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !slices.Equal(h.publisher.batches, []int{5, 5, 2}) {
		t.Fatalf("expected batches 5,5,2, got %v", h.publisher.batches)
	}
	if result.Outcome != pipeline.OutcomeCompleted || result.Cycles != 3 {
		t.Fatalf("expected completion after cycle 3, got %+v", result)
	}
	if len(h.sleeper.waits) != 2 || h.sleeper.waits[0] != time.Hour {
		t.Fatalf("expected two one-hour waits, got %v", h.sleeper.waits)
	}
	if first := h.publisher.names[0]; first[0] != "Blade_Runner_reel_01.mp4" || first[4] != "Blade_Runner_reel_05.mp4" {
		t.Fatalf("expected batches in generation order, got %v", first)
	}

	run, err := store.GetRun(context.Background(), "run-test")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Outcome != "completed" || run.Published != 12 || run.ClipCount != 12 || !run.CleanedUp || run.SourceTitle != "Blade Runner" {
		t.Fatalf("unexpected ledger row %+v", run)
	}
}

func TestRunAcquisitionFailureAborts(t *testing.T) {
	h := newHarness(t, 3)
	h.acquirer.err = services.Wrap(services.ErrExternalTool, "acquisition", "download", "aria2c exited 7", nil)

	result, err := h.orchestrator().Run(context.Background())
	if !errors.Is(err, pipeline.ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	var stageErr *pipeline.StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != pipeline.StageAcquisition {
		t.Fatalf("expected acquisition StageError, got %v", err)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected collaborator marker preserved, got %v", err)
	}
	if result.Outcome != pipeline.OutcomeAbortedAtAcquisition || !result.Outcome.Fatal() {
		t.Fatalf("unexpected outcome %s", result.Outcome)
	}
	if h.segmenter.calls != 0 || len(h.publisher.batches) != 0 {
		t.Fatal("segmentation and publication must not run after acquisition failure")
	}
	if !h.notifier.contains("aria2c exited 7") || !h.notifier.contains("Aborted after acquisition failure") {
		t.Fatalf("expected failure notifications, got %v", h.notifier.messages)
	}
}

func TestRunSegmentationFailureAborts(t *testing.T) {
	h := newHarness(t, 3)
	h.segmenter.err = errors.New("ffmpeg exited 1")

	result, err := h.orchestrator().Run(context.Background())
	if !errors.Is(err, pipeline.ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	if result.Outcome != pipeline.OutcomeAbortedAtSegmentation {
		t.Fatalf("unexpected outcome %s", result.Outcome)
	}
	if len(h.publisher.batches) != 0 {
		t.Fatal("publication must not run after segmentation failure")
	}
	if countEntries(t, h.cfg.Paths.MoviesDir) != 1 {
		t.Fatal("source set must be kept after an aborted run")
	}
	if !h.notifier.contains("Aborted after segmentation failure") {
		t.Fatalf("expected abort notification, got %v", h.notifier.messages)
	}
}

func TestRunWithoutMediaFailsSegmentation(t *testing.T) {
	h := newHarness(t, 3)
	h.acquirer.skipMedia = true

	result, err := h.orchestrator().Run(context.Background())
	if !errors.Is(err, artifacts.ErrNoMedia) || result.Outcome != pipeline.OutcomeAbortedAtSegmentation {
		t.Fatalf("expected segmentation abort for missing media, got %s / %v", result.Outcome, err)
	}
	if h.segmenter.calls != 0 {
		t.Fatal("segmenter must not be invoked without media")
	}
}

func TestRunRecoversStagePanic(t *testing.T) {
	h := newHarness(t, 3)
	h.acquirer.panicMsg = "nil map write"

	result, err := h.orchestrator().Run(context.Background())
	if !errors.Is(err, pipeline.ErrAborted) || result.Outcome != pipeline.OutcomeAbortedAtAcquisition {
		t.Fatalf("expected acquisition abort, got %s / %v", result.Outcome, err)
	}
	if !strings.Contains(err.Error(), "nil map write") || !h.notifier.contains("nil map write") {
		t.Fatalf("expected panic detail surfaced, got %v", err)
	}
}

func TestRunStageTimeout(t *testing.T) {
	h := newHarness(t, 3)
	h.acquirer.block = true
	settings := pipeline.SettingsFromConfig(h.cfg)
	settings.StageTimeout = 20 * time.Millisecond
	orch := pipeline.New(settings, h.acquirer, h.segmenter, h.publisher, h.notifier, nil, pipeline.WithSleeper(h.sleeper.sleep))

	result, err := orch.Run(context.Background())
	if !errors.Is(err, services.ErrTimeout) || result.Outcome != pipeline.OutcomeAbortedAtAcquisition {
		t.Fatalf("expected timeout abort, got %s / %v", result.Outcome, err)
	}
}

func TestPublicationInvocationFailureStopsLoop(t *testing.T) {
	h := newHarness(t, 7)
	h.publisher.errOnCall = 2

	result, err := h.orchestrator().Run(context.Background())
	if err != nil {
		t.Fatalf("publication failure must not be fatal, got %v", err)
	}
	if result.Outcome != pipeline.OutcomeAbortedAtPublication || result.Outcome.Fatal() {
		t.Fatalf("unexpected outcome %s", result.Outcome)
	}
	if len(h.publisher.batches) != 2 {
		t.Fatalf("expected loop to stop at the failing call, got %v", h.publisher.batches)
	}
	if result.Remaining != 2 || result.CleanedUp {
		t.Fatalf("expected 2 remaining and no cleanup, got %+v", result)
	}
	if !h.notifier.contains("Publication loop stopped") || !h.notifier.contains("2 clip(s) remain") {
		t.Fatalf("expected failure and manual cleanup notifications, got %v", h.notifier.messages)
	}
}

func TestCeilingLeavesRemainder(t *testing.T) {
	h := newHarness(t, 12, testsupport.WithBatching(5, 2))

	result, err := h.orchestrator().Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outcome != pipeline.OutcomeCompletedWithRemainder || result.Remaining != 2 {
		t.Fatalf("expected remainder of 2, got %+v", result)
	}
	if !slices.Equal(h.publisher.batches, []int{5, 5}) {
		t.Fatalf("unexpected batches %v", h.publisher.batches)
	}
	if len(h.sleeper.waits) != 1 {
		t.Fatalf("no wait expected after the last cycle, got %d", len(h.sleeper.waits))
	}
	if result.CleanedUp || countEntries(t, h.cfg.Paths.MoviesDir) != 1 {
		t.Fatal("cleanup must be skipped while clips remain")
	}
}

func TestFailedItemsAreRetriedInLaterCycles(t *testing.T) {
	h := newHarness(t, 3)
	h.publisher.failNames = map[string]bool{"Blade_Runner_reel_01.mp4": true}

	result, err := h.orchestrator().Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !slices.Equal(h.publisher.batches, []int{3, 1, 1, 1, 1, 1}) {
		t.Fatalf("expected batch cap to follow remaining count, got %v", h.publisher.batches)
	}
	if result.Outcome != pipeline.OutcomeCompletedWithRemainder || result.Remaining != 1 || result.Published != 2 || result.Failed != 6 {
		t.Fatalf("unexpected result %+v", result)
	}
	if h.notifier.count("0/1 succeeded") != 5 {
		t.Fatalf("expected per-batch aggregate notifications, got %v", h.notifier.messages)
	}
}

func TestCleanupFailureKeepsOutcome(t *testing.T) {
	h := newHarness(t, 2)
	restore := pipeline.SetRemoveSetForTests(func(string, artifacts.Set) error {
		return errors.New("device busy")
	})
	t.Cleanup(restore)

	result, err := h.orchestrator().Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outcome != pipeline.OutcomeCompleted || result.CleanedUp {
		t.Fatalf("expected completed without cleanup, got %+v", result)
	}
	if !h.notifier.contains("Cleanup failed") || !h.notifier.contains("device busy") {
		t.Fatalf("expected cleanup failure notification, got %v", h.notifier.messages)
	}
}

func TestCleanupKeepsUnrelatedSourceSet(t *testing.T) {
	h := newHarness(t, 0)
	testsupport.WriteClips(t, h.cfg.Paths.ClipsDir, "Blade_Runner", 2)
	// A newer download that has not been segmented yet.
	newer := filepath.Join(h.cfg.Paths.MoviesDir, "Alien")
	testsupport.WriteFile(t, filepath.Join(newer, "movie.mkv"), 32)

	result, err := h.orchestrator().Resume(context.Background())
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if result.Outcome != pipeline.OutcomeCompleted || !result.CleanedUp {
		t.Fatalf("expected derived set removed, got %+v", result)
	}
	if _, err := os.Stat(newer); err != nil {
		t.Fatalf("unrelated source set must be kept: %v", err)
	}
	if countEntries(t, h.cfg.Paths.ClipsDir) != 0 {
		t.Fatal("expected derived set removed")
	}
}

func TestZeroClipsCompletesAndCleansUp(t *testing.T) {
	h := newHarness(t, 0)

	result, err := h.orchestrator().Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outcome != pipeline.OutcomeCompleted || len(h.publisher.batches) != 0 || !result.CleanedUp {
		t.Fatalf("expected immediate completion, got %+v (batches %v)", result, h.publisher.batches)
	}
}

func TestResumeContinuesFromRemainingClips(t *testing.T) {
	h := newHarness(t, 0, testsupport.WithBatching(5, 6))
	testsupport.WriteClips(t, h.cfg.Paths.ClipsDir, "Blade_Runner", 12)
	testsupport.WriteFile(t, filepath.Join(h.cfg.Paths.MoviesDir, "Blade_Runner", "movie.mkv"), 32)
	// Clips 01-05 were published before the previous process stopped.
	_, clips, err := artifacts.CurrentClips(h.cfg.Paths.ClipsDir)
	if err != nil {
		t.Fatalf("CurrentClips: %v", err)
	}
	for _, clip := range clips[:5] {
		if err := os.Remove(clip.Path); err != nil {
			t.Fatalf("remove %s: %v", clip.Path, err)
		}
	}
	store := testsupport.MustOpenLedger(t, h.cfg)

	result, err := h.orchestrator(pipeline.WithRecorder(store)).Resume(context.Background())
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if h.acquirer.calls != 0 || h.segmenter.calls != 0 {
		t.Fatal("resume must not acquire or segment")
	}
	if !slices.Equal(h.publisher.batches, []int{5, 2}) {
		t.Fatalf("expected 7 remaining clips published as 5,2, got %v", h.publisher.batches)
	}
	if h.publisher.names[0][0] != "Blade_Runner_reel_06.mp4" {
		t.Fatalf("expected resume from clip 06, got %v", h.publisher.names[0])
	}
	if result.Outcome != pipeline.OutcomeCompleted || !result.CleanedUp || result.Clips != 7 {
		t.Fatalf("unexpected result %+v", result)
	}
	if !h.notifier.contains("resumed with 7 clip(s)") {
		t.Fatalf("expected resume notification, got %v", h.notifier.messages)
	}
	run, err := store.GetRun(context.Background(), "run-test")
	if err != nil || run.Mode != ledger.ModeResume {
		t.Fatalf("expected resume recorded, got %+v (%v)", run, err)
	}
}

func TestResumeWithoutDerivedSet(t *testing.T) {
	h := newHarness(t, 0)

	result, err := h.orchestrator().Resume(context.Background())
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if result.Outcome != pipeline.OutcomeAbortedAtPublication || result.Remaining != -1 {
		t.Fatalf("expected publication abort with unknown remainder, got %+v", result)
	}
	if !h.notifier.contains("could not be counted") {
		t.Fatalf("expected manual cleanup notification, got %v", h.notifier.messages)
	}
}

func TestInterruptedWaitLeavesClips(t *testing.T) {
	h := newHarness(t, 7)
	ctx, cancel := context.WithCancel(context.Background())
	interrupt := func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	result, err := h.orchestrator(pipeline.WithSleeper(interrupt)).Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Interrupted || result.Outcome != pipeline.OutcomeCompletedWithRemainder || result.Remaining != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(h.publisher.batches) != 1 {
		t.Fatalf("expected one batch before the interrupt, got %v", h.publisher.batches)
	}
}

func TestInterruptedWaitStillDeliversNotifications(t *testing.T) {
	var (
		mu       sync.Mutex
		received []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Content string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode webhook payload: %v", err)
		}
		mu.Lock()
		received = append(received, payload.Content)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	h := newHarness(t, 0)
	h.cfg.Notifications.DiscordWebhook = server.URL
	testsupport.WriteClips(t, h.cfg.Paths.ClipsDir, "Heat", 7)
	notifier := notifications.New(h.cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	interrupt := func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}
	orch := pipeline.New(pipeline.SettingsFromConfig(h.cfg), h.acquirer, h.segmenter, h.publisher, notifier, nil,
		pipeline.WithSleeper(interrupt), pipeline.WithRunID("run-test"))

	result, err := orch.Resume(ctx)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if !result.Interrupted || result.Outcome != pipeline.OutcomeCompletedWithRemainder || result.Remaining != 2 {
		t.Fatalf("unexpected result %+v", result)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{
		notifications.Interrupted(2),
		notifications.ManualCleanup(2),
		notifications.PipelineFinished(string(pipeline.OutcomeCompletedWithRemainder)),
	}
	for _, msg := range want {
		if !slices.Contains(received, msg) {
			t.Fatalf("missing %q after cancellation; received %v", msg, received)
		}
	}
}

func TestRelistFailureStopsLoopWithoutWaiting(t *testing.T) {
	h := newHarness(t, 7)
	h.publisher.dropSet = true

	result, err := h.orchestrator().Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outcome != pipeline.OutcomeAbortedAtPublication {
		t.Fatalf("expected publication abort, got %+v", result)
	}
	if len(h.sleeper.waits) != 0 {
		t.Fatalf("no wait expected when remaining clips cannot be listed, got %v", h.sleeper.waits)
	}
	if !slices.Equal(h.publisher.batches, []int{5}) || result.Remaining != -1 || result.CleanedUp {
		t.Fatalf("unexpected batches %v result %+v", h.publisher.batches, result)
	}
}
