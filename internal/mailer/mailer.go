// Package mailer delivers plain-text notification mail over SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"
	"github.com/yukikurage/stage-intake/internal/config"
)

// ErrMailDisabled is returned when no SMTP relay is configured.
var ErrMailDisabled = errors.New("mail delivery is not configured")

// Message is a single plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP mailer when SMTP is configured, otherwise a mailer
// that always fails with ErrMailDisabled.
func New(cfg config.SMTPConfig) (Mailer, error) {
	if !cfg.Enabled() {
		return Disabled{}, nil
	}
	return NewSMTPMailer(cfg)
}

// Disabled rejects every message.
type Disabled struct{}

// Send implements Mailer.
func (Disabled) Send(context.Context, Message) error {
	return ErrMailDisabled
}

// SMTPMailer sends mail through a relay with go-mail.
type SMTPMailer struct {
	client *mail.Client
	from   string
}

// NewSMTPMailer builds a client for the configured relay. No connection is
// made until the first Send.
func NewSMTPMailer(cfg config.SMTPConfig) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	if cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.From}, nil
}

// Send builds the message and delivers it within ctx.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	built, err := buildMessage(m.from, msg)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, built); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", msg.To, err)
	}
	return nil
}

func buildMessage(from string, msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", from, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient address %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	return m, nil
}
