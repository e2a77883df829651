// Package mailer sends transactional mail through SendGrid. When no API
// key is configured the mailer degrades to logging, so local setups work
// without credentials.
package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/himalai/expense-service/internal/logger"
)

type Mailer interface {
	SendVerificationCode(ctx context.Context, toEmail, code string) error
}

type SendGridMailer struct {
	client      *sendgrid.Client
	fromAddress string
	fromName    string
	log         *logger.Logger
}

type Config struct {
	APIKey      string
	FromAddress string
	FromName    string
}

// New returns a SendGrid-backed mailer, or a logging no-op when the API
// key is empty.
func New(cfg Config) Mailer {
	log := logger.New("mailer")

	if cfg.APIKey == "" {
		log.Warn("SENDGRID_API_KEY not set, verification emails will only be logged")
		return &LogMailer{log: log}
	}

	return &SendGridMailer{
		client:      sendgrid.NewSendClient(cfg.APIKey),
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
		log:         log,
	}
}

func (m *SendGridMailer) SendVerificationCode(ctx context.Context, toEmail, code string) error {
	from := mail.NewEmail(m.fromName, m.fromAddress)
	to := mail.NewEmail("", toEmail)
	subject := "Verify your account"

	plain := fmt.Sprintf("Your verification code is: %s\nThis code expires in 24 hours.", code)
	html := fmt.Sprintf(
		"<p>Thank you for signing up. Your verification code is:</p><h3 style=\"font-family: monospace;\">%s</h3><p>This code expires in 24 hours.</p>",
		code,
	)

	message := mail.NewSingleEmail(from, subject, to, plain, html)
	response, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid rejected verification email: status %d", response.StatusCode)
	}

	m.log.Debug("Verification email sent to %s", toEmail)
	return nil
}

// LogMailer logs instead of sending. Also used in tests.
type LogMailer struct {
	log *logger.Logger
}

func NewLogMailer() *LogMailer {
	return &LogMailer{log: logger.New("mailer")}
}

func (m *LogMailer) SendVerificationCode(ctx context.Context, toEmail, code string) error {
	m.log.Info("Would send verification code %s to %s", code, toEmail)
	return nil
}
