package notifications

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/angelmondragon/collectz-backend/pkg/config"
)

// Mailer delivers a plain-text copy of a notification.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type messageSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer sends mail through a gomail dialer.
type SMTPMailer struct {
	sender   messageSender
	from     string
	fromName string
}

// NewSMTPMailer returns nil when SMTP is not configured so callers can skip mail.
func NewSMTPMailer(cfg config.MailConfig) (*SMTPMailer, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	if strings.TrimSpace(cfg.FromAddress) == "" {
		return nil, fmt.Errorf("smtp from address required")
	}
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	return newSMTPMailer(dialer, cfg.FromAddress, cfg.FromName), nil
}

func newSMTPMailer(sender messageSender, from, fromName string) *SMTPMailer {
	return &SMTPMailer{sender: sender, from: from, fromName: fromName}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, m.fromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
