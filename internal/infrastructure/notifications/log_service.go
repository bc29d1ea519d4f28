package notifications

import (
	"context"
	"log/slog"

	"github.com/you/feedauth/domain"
)

// LogNotifier writes messages to the log instead of delivering them. Used
// when no delivery channel is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Send(ctx context.Context, to domain.Recipient, subject, body string) error {
	l.logger.InfoContext(ctx, "notification not delivered, no channel configured",
		"email", to.Email,
		"phone", to.Phone,
		"subject", subject,
		"body", body,
	)
	return nil
}

var _ domain.Notifier = (*LogNotifier)(nil)
