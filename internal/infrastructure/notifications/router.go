package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/you/feedauth/domain"
)

// Router sends over SMS when the recipient has a phone number and falls back
// to email otherwise, or when SMS delivery fails.
type Router struct {
	sms    domain.Notifier
	email  domain.Notifier
	logger *slog.Logger
}

func NewRouter(sms, email domain.Notifier, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sms: sms, email: email, logger: logger}
}

func (r *Router) Send(ctx context.Context, to domain.Recipient, subject, body string) error {
	if r.sms != nil && to.Phone != "" {
		err := r.sms.Send(ctx, to, subject, body)
		if err == nil {
			return nil
		}
		r.logger.WarnContext(ctx, "sms delivery failed, falling back to email",
			"email", to.Email, "error", err)
	}
	if r.email == nil {
		return fmt.Errorf("no delivery channel for %s", to.Email)
	}
	return r.email.Send(ctx, to, subject, body)
}

var _ domain.Notifier = (*Router)(nil)
