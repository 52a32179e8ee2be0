package notify

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/dharsanguruparan/staffdrop/internal/config"
	"github.com/dharsanguruparan/staffdrop/internal/logging"
)

// SMTPMailer sends messages through an SMTP relay.
type SMTPMailer struct {
	client *mail.Client
	from   string
}

// NewSMTPMailer builds a mailer from the SMTP settings in cfg. Credentials
// are optional; TLS is used when the server offers it.
func NewSMTPMailer(cfg *config.Config) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.SMTPUsername != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUsername),
			mail.WithPassword(cfg.SMTPPassword),
		)
	}
	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("init smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.SMTPFrom}, nil
}

// Send implements Mailer.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	out := mail.NewMsg()
	if err := out.From(m.from); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := out.To(msg.To); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	out.Subject(msg.Subject)
	out.SetBodyString(mail.TypeTextPlain, msg.Body)
	if err := m.client.DialAndSendWithContext(ctx, out); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them. It is used
// when no SMTP relay is configured.
type LogMailer struct{}

// Send implements Mailer.
func (LogMailer) Send(ctx context.Context, msg Message) error {
	logging.FromContext(ctx).Info("notification (smtp disabled)",
		"to", msg.To,
		"subject", msg.Subject,
	)
	return nil
}

// NewMailer picks the SMTP mailer when configured, the log mailer otherwise.
func NewMailer(cfg *config.Config) (Mailer, error) {
	if !cfg.SMTPEnabled() {
		return LogMailer{}, nil
	}
	return NewSMTPMailer(cfg)
}
