// Package mailer sends the templated one-time-code messages. Delivery goes
// through SendGrid when a key is configured; otherwise codes are printed to
// the log, which is what development environments rely on.
package mailer

import (
	"fmt"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type Mailer interface {
	SendResetCode(toEmail, code string, expiryMinutes int) error
	SendOtp(toEmail, code string, expiryMinutes int) error
}

type SendGridMailer struct {
	client      *sendgrid.Client
	fromName    string
	fromAddress string
	logger      *slog.Logger
}

func NewSendGrid(apiKey, fromName, fromAddress string, logger *slog.Logger) *SendGridMailer {
	return &SendGridMailer{
		client:      sendgrid.NewSendClient(apiKey),
		fromName:    fromName,
		fromAddress: fromAddress,
		logger:      logger,
	}
}

func (m *SendGridMailer) SendResetCode(toEmail, code string, expiryMinutes int) error {
	subject := "Password Reset Code"
	html := fmt.Sprintf(
		"<p>Dear User,</p><p>Your password reset code is: <strong>%s</strong></p><p>This code will expire in %d minutes.</p>",
		code, expiryMinutes,
	)
	return m.send(toEmail, subject, html)
}

func (m *SendGridMailer) SendOtp(toEmail, code string, expiryMinutes int) error {
	subject := "Your Login Code"
	html := fmt.Sprintf(
		"<p>Your one-time login code is: <strong>%s</strong></p><p>It expires in %d minutes.</p>",
		code, expiryMinutes,
	)
	return m.send(toEmail, subject, html)
}

func (m *SendGridMailer) send(toEmail, subject, html string) error {
	from := mail.NewEmail(m.fromName, m.fromAddress)
	to := mail.NewEmail("", toEmail)
	msg := mail.NewSingleEmail(from, subject, to, "", html)

	resp, err := m.client.Send(msg)
	if err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("mail provider rejected message: status %d", resp.StatusCode)
	}
	m.logger.Info("mail sent", "to", toEmail, "subject", subject)
	return nil
}

// ConsoleMailer logs codes instead of delivering them. Used when no
// SendGrid key is configured.
type ConsoleMailer struct {
	logger *slog.Logger
}

func NewConsole(logger *slog.Logger) *ConsoleMailer {
	return &ConsoleMailer{logger: logger}
}

func (m *ConsoleMailer) SendResetCode(toEmail, code string, expiryMinutes int) error {
	m.logger.Info("reset code issued", "to", toEmail, "code", code, "expires_in_min", expiryMinutes)
	return nil
}

func (m *ConsoleMailer) SendOtp(toEmail, code string, expiryMinutes int) error {
	m.logger.Info("otp issued", "to", toEmail, "code", code, "expires_in_min", expiryMinutes)
	return nil
}

var (
	_ Mailer = (*SendGridMailer)(nil)
	_ Mailer = (*ConsoleMailer)(nil)
)
