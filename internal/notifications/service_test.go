package notifications_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"reelmill/internal/config"
	"reelmill/internal/notifications"
)

type capture struct {
	mu       sync.Mutex
	bodies   []string
	headers  []http.Header
	status   int
	requests int
}

func (c *capture) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		c.mu.Lock()
		c.bodies = append(c.bodies, string(body))
		c.headers = append(c.headers, r.Header.Clone())
		c.requests++
		status := c.status
		c.mu.Unlock()
		if status == 0 {
			status = http.StatusNoContent
		}
		w.WriteHeader(status)
	}
}

func (c *capture) snapshot() ([]string, []http.Header, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.bodies...), append([]http.Header(nil), c.headers...), c.requests
}

func TestNotifyIsNoopWithoutTransports(t *testing.T) {
	cfg := config.Default()
	svc := notifications.New(&cfg, nil)
	if svc.Enabled() {
		t.Fatal("expected no transports")
	}
	svc.Notify(context.Background(), "ignored")
	if err := svc.Check(context.Background()); err == nil {
		t.Fatal("expected Check to report missing transport")
	}
}

func TestDiscordReceivesJSONContent(t *testing.T) {
	rec := &capture{}
	server := httptest.NewServer(rec.handler(t))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.DiscordWebhook = server.URL
	svc := notifications.New(&cfg, nil)
	svc.Notify(context.Background(), "📤 Uploading batch 1/6")

	bodies, headers, requests := rec.snapshot()
	if requests != 1 {
		t.Fatalf("expected one request, got %d", requests)
	}
	var payload struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(bodies[0]), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Content != "📤 Uploading batch 1/6" {
		t.Fatalf("unexpected content %q", payload.Content)
	}
	if ct := headers[0].Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestNotifyTruncatesToMaxLength(t *testing.T) {
	rec := &capture{}
	server := httptest.NewServer(rec.handler(t))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.MaxMessageLength = 50
	svc := notifications.New(&cfg, nil)
	svc.Notify(context.Background(), strings.Repeat("é", 500))

	bodies, headers, _ := rec.snapshot()
	if got := utf8.RuneCountInString(bodies[0]); got != 50 {
		t.Fatalf("expected 50 runes, got %d", got)
	}
	if headers[0].Get("Title") != "reelmill" {
		t.Fatalf("expected ntfy title header, got %v", headers[0])
	}
}

func TestNtfyRaisesPriorityForFailures(t *testing.T) {
	rec := &capture{}
	server := httptest.NewServer(rec.handler(t))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.New(&cfg, nil)
	svc.Notify(context.Background(), notifications.StageFailed("acquisition", errors.New("aria2c exit 7"), 1500))

	_, headers, _ := rec.snapshot()
	if headers[0].Get("Priority") != "high" {
		t.Fatalf("expected high priority, got %q", headers[0].Get("Priority"))
	}
	if !strings.Contains(headers[0].Get("Tags"), "alert") {
		t.Fatalf("expected alert tag, got %q", headers[0].Get("Tags"))
	}
}

func TestDeliveryFailureIsSwallowedButCheckReportsIt(t *testing.T) {
	rec := &capture{status: http.StatusInternalServerError}
	server := httptest.NewServer(rec.handler(t))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.DiscordWebhook = server.URL
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.New(&cfg, nil)

	svc.Notify(context.Background(), "still running")
	if _, _, requests := rec.snapshot(); requests != 2 {
		t.Fatalf("expected both transports attempted, got %d", requests)
	}
	err := svc.Check(context.Background())
	if err == nil {
		t.Fatal("expected Check to surface delivery failure")
	}
	if !strings.Contains(err.Error(), "discord") || !strings.Contains(err.Error(), "ntfy") {
		t.Fatalf("expected both transport names in %q", err.Error())
	}
}

func TestUnreachableTransportDoesNotPanic(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.DiscordWebhook = "http://127.0.0.1:1/unreachable"
	cfg.Notifications.RequestTimeout = 1
	notifications.New(&cfg, nil).Notify(context.Background(), "hello")
	notifications.NewNoop().Notify(context.Background(), "hello")
}

func TestNotifyDeliversAfterCancellation(t *testing.T) {
	discord := &capture{}
	discordServer := httptest.NewServer(discord.handler(t))
	defer discordServer.Close()
	ntfy := &capture{}
	ntfyServer := httptest.NewServer(ntfy.handler(t))
	defer ntfyServer.Close()

	cfg := config.Default()
	cfg.Notifications.DiscordWebhook = discordServer.URL
	cfg.Notifications.NtfyTopic = ntfyServer.URL + "/reels"
	svc := notifications.New(&cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.Notify(ctx, notifications.ManualCleanup(3))

	if _, _, requests := discord.snapshot(); requests != 1 {
		t.Fatalf("expected discord delivery after cancellation, got %d requests", requests)
	}
	bodies, _, requests := ntfy.snapshot()
	if requests != 1 || !strings.Contains(bodies[0], "3 clip(s) remain") {
		t.Fatalf("expected ntfy delivery after cancellation, got %d %v", requests, bodies)
	}
	if err := svc.Check(ctx); err == nil {
		t.Fatal("Check should honour cancellation")
	}
}

func TestMessageBuilders(t *testing.T) {
	msg := notifications.MovieSelected("Heat", "magnet:?xt=urn:btih:"+strings.Repeat("a", 200))
	if !strings.Contains(msg, "Heat") || utf8.RuneCountInString(msg) > 140 {
		t.Fatalf("unexpected selection message %q", msg)
	}
	failed := notifications.StageFailed("segmentation", errors.New(strings.Repeat("x", 3000)), 1500)
	if strings.Count(failed, "x") != 1500 {
		t.Fatalf("expected detail truncated to 1500, got %d", strings.Count(failed, "x"))
	}
	if got := notifications.BatchResult(4, 5); got != "✅ Upload complete: 4/5 succeeded." {
		t.Fatalf("unexpected batch result %q", got)
	}
	if !strings.Contains(notifications.ManualCleanup(-1), "could not be counted") {
		t.Fatal("expected unknown remainder wording")
	}
	if got := notifications.Interrupted(2); !strings.Contains(got, "2 clip(s) remaining") || !strings.Contains(got, "--resume") {
		t.Fatalf("unexpected interrupted message %q", got)
	}
}
