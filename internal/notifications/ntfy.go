package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type ntfyTransport struct {
	endpoint string
	client   *http.Client
}

func newNtfyTransport(topic string, timeout time.Duration) *ntfyTransport {
	return &ntfyTransport{endpoint: topic, client: &http.Client{Timeout: timeout}}
}

func (n *ntfyTransport) name() string { return "ntfy" }

func (n *ntfyTransport) send(ctx context.Context, message string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Title", "reelmill")
	tags := []string{"reelmill"}
	if isAlert(message) {
		tags = append(tags, "alert")
		req.Header.Set("Priority", "high")
	}
	req.Header.Set("Tags", strings.Join(tags, ","))

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// isAlert flags failure messages so ntfy can raise their priority.
func isAlert(message string) bool {
	return strings.HasPrefix(message, "❌") || strings.HasPrefix(message, "⚠")
}
