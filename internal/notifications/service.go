package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"reelmill/internal/config"
	"reelmill/internal/logging"
	"reelmill/internal/textutil"
)

const userAgent = "reelmill/0.1.0"

// Notifier delivers short human-readable messages. Delivery is best effort:
// implementations never report failure to the caller.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// transport is one outbound channel (Discord webhook, ntfy topic).
type transport interface {
	name() string
	send(ctx context.Context, message string) error
}

// Service fans a message out to every configured transport.
type Service struct {
	transports []transport
	maxLength  int
	logger     *slog.Logger
}

// New builds the notification service from configuration. With no transport
// configured the returned service silently drops messages.
func New(cfg *config.Config, logger *slog.Logger) *Service {
	svc := &Service{
		maxLength: config.Default().Notifications.MaxMessageLength,
		logger:    logging.NewComponentLogger(logger, "notifications"),
	}
	if cfg == nil {
		return svc
	}
	if cfg.Notifications.MaxMessageLength > 0 {
		svc.maxLength = cfg.Notifications.MaxMessageLength
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if webhook := strings.TrimSpace(cfg.Notifications.DiscordWebhook); webhook != "" {
		svc.transports = append(svc.transports, newDiscordTransport(webhook, timeout))
	}
	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		svc.transports = append(svc.transports, newNtfyTransport(topic, timeout))
	}
	return svc
}

// Enabled reports whether at least one transport is configured.
func (s *Service) Enabled() bool {
	return s != nil && len(s.transports) > 0
}

// Notify truncates message to the configured maximum and sends it to every
// transport. Failures are logged at WARN and otherwise ignored. Delivery
// ignores cancellation of ctx so shutdown and failure messages still go out;
// each transport request is bounded by notifications.request_timeout.
func (s *Service) Notify(ctx context.Context, message string) {
	if !s.Enabled() {
		return
	}
	for _, err := range s.deliver(context.WithoutCancel(ctx), message) {
		logging.WarnWithContext(s.logger, "notification delivery failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check discord_webhook / ntfy_topic and network reachability"),
			logging.String(logging.FieldImpact, "operator was not notified; pipeline continues"),
		)
	}
}

// Check sends a test message and reports delivery errors instead of
// swallowing them.
func (s *Service) Check(ctx context.Context) error {
	if !s.Enabled() {
		return errors.New("no notification transport configured (set notifications.discord_webhook or notifications.ntfy_topic)")
	}
	return errors.Join(s.deliver(ctx, "🧪 reelmill notification test")...)
}

func (s *Service) deliver(ctx context.Context, message string) []error {
	message = textutil.Truncate(strings.TrimSpace(message), s.maxLength)
	if message == "" {
		return nil
	}
	var errs []error
	for _, t := range s.transports {
		if err := t.send(ctx, message); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.name(), err))
		}
	}
	return errs
}

// NewNoop returns a Notifier that discards every message.
func NewNoop() Notifier {
	return noopNotifier{}
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string) {}
