// Package mailer delivers transactional email through SendGrid.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/angelmondragon/rentquote-backend/pkg/config"
	"github.com/angelmondragon/rentquote-backend/pkg/logger"
)

// Message is a single-recipient email.
type Message struct {
	ToEmail   string
	ToName    string
	Subject   string
	PlainText string
	HTML      string
}

// Mailer sends transactional email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGrid delivers messages through the SendGrid v3 API.
type SendGrid struct {
	client sendClient
	from   *mail.Email
}

// New returns a SendGrid mailer when credentials are configured and a
// logging no-op mailer otherwise.
func New(cfg config.SendgridConfig, logg *logger.Logger) Mailer {
	if !cfg.Enabled() {
		return NewNoop(logg)
	}
	return &SendGrid{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   mail.NewEmail(cfg.FromName, cfg.DefaultFrom),
	}
}

func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	plain := msg.PlainText
	if plain == "" {
		plain = msg.Subject
	}
	email := mail.NewSingleEmail(s.from, msg.Subject, mail.NewEmail(msg.ToName, msg.ToEmail), plain, msg.HTML)

	resp, err := s.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// Noop records messages in the log instead of sending them.
type Noop struct {
	logg *logger.Logger
}

func NewNoop(logg *logger.Logger) *Noop {
	return &Noop{logg: logg}
}

func (n *Noop) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	if n.logg != nil {
		ctx = n.logg.WithFields(ctx, map[string]any{
			"to":      msg.ToEmail,
			"subject": msg.Subject,
		})
		n.logg.Info(ctx, "mailer.noop.send")
	}
	return nil
}

func (m Message) validate() error {
	if strings.TrimSpace(m.ToEmail) == "" {
		return errors.New("recipient email is required")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return errors.New("subject is required")
	}
	return nil
}
