package preflight

import (
	"context"
	"strings"

	"reelmill/internal/config"
)

// CheckGraphFromConfig evaluates page status from config and connectivity.
func CheckGraphFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "Facebook page"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if creds := CheckCredentials(cfg.Publication); !creds.Passed {
		return Result{Name: name, Detail: "Missing credentials"}
	}
	return CheckGraphPage(ctx, cfg.Publication)
}

// CheckNotificationsFromConfig reports which notification transports are
// configured. Nothing is sent; use the test-notify command for delivery.
func CheckNotificationsFromConfig(cfg *config.Config) Result {
	const name = "Notifications"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	var transports []string
	if strings.TrimSpace(cfg.Notifications.DiscordWebhook) != "" {
		transports = append(transports, "discord")
	}
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		transports = append(transports, "ntfy")
	}
	if len(transports) == 0 {
		return Result{Name: name, Detail: "Disabled (no discord_webhook or ntfy_topic)"}
	}
	return Result{Name: name, Passed: true, Detail: strings.Join(transports, ", ")}
}
