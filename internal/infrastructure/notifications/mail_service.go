package notifications

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
	"github.com/you/feedauth/domain"
)

// mailSender is satisfied by *mail.Client
type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPOptions configures the SMTP relay
type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// MailServiceImpl implements domain.Notifier over SMTP
type MailServiceImpl struct {
	sender mailSender
	from   string
}

// NewMailService creates an SMTP notifier. Authentication is only enabled
// when a username is configured.
func NewMailService(opts SMTPOptions) (*MailServiceImpl, error) {
	clientOpts := []mail.Option{
		mail.WithPort(opts.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if opts.Username != "" {
		clientOpts = append(clientOpts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(opts.Username),
			mail.WithPassword(opts.Password),
		)
	}

	client, err := mail.NewClient(opts.Host, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return &MailServiceImpl{sender: client, from: opts.From}, nil
}

// Send implements domain.Notifier
func (m *MailServiceImpl) Send(ctx context.Context, to domain.Recipient, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to.Email); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := m.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

var _ domain.Notifier = (*MailServiceImpl)(nil)
