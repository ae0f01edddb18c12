// Package email sends transactional mail over SMTP. When disabled in
// config, a no-op sender logs instead of connecting anywhere.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/quillchat/api/internal/config"
)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewSender picks the SMTP or no-op implementation based on config.
func NewSender(cfg config.EmailConfig) Sender {
	if cfg.Enabled {
		return &SMTPSender{
			host:     cfg.Host,
			port:     cfg.Port,
			username: cfg.Username,
			password: cfg.Password,
			from:     cfg.From,
		}
	}
	return &NoOpSender{}
}

type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	msg := fmt.Sprintf("From: %s\r\n", s.from)
	msg += fmt.Sprintf("To: %s\r\n", to)
	msg += fmt.Sprintf("Subject: %s\r\n", subject)
	msg += "Content-Type: text/plain; charset=\"utf-8\"\r\n"
	msg += "\r\n"
	msg += body + "\r\n"

	if err := smtp.SendMail(addr, auth, s.from, []string{to}, []byte(msg)); err != nil {
		slog.Error("failed to send email", "component", "email", "to", to, "error", err)
		return err
	}

	slog.Info("sent email", "component", "email", "to", to, "subject", subject)
	return nil
}

type NoOpSender struct{}

func (s *NoOpSender) Send(ctx context.Context, to, subject, body string) error {
	slog.Debug("would send email", "component", "email", "to", to, "subject", subject)
	return nil
}
