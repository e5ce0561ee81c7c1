package notifier

import (
	"context"
	"log/slog"
)

// LogNotifier writes grant lifecycle events to the structured log. It is
// the fallback channel when no pubsub topic is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a new LogNotifier
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the event at info level
func (n *LogNotifier) Notify(_ context.Context, event Event) error {
	attrs := []any{
		slog.String("event_type", string(event.Type)),
		slog.String("grant_id", event.GrantID.String()),
		slog.String("owner_id", event.OwnerID.String()),
		slog.String("grantee_id", event.GranteeID.String()),
		slog.String("resource_id", event.ResourceID.String()),
		slog.String("access_level", event.AccessLevel),
	}
	if event.Type == EventExpiryWarning {
		attrs = append(attrs, slog.Int64("hours_remaining", event.HoursRemaining))
	}
	n.logger.Info("grant notification", attrs...)
	return nil
}
