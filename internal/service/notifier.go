package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/MLH-TTU/MLH-website-sub002/internal/config"
)

// Notifier delivers secrets out of band. Delivery is best-effort; engines
// never roll back state when it fails.
type Notifier interface {
	SendCode(ctx context.Context, to string, code string) error
	SendLinkToken(ctx context.Context, to string, token string) error
}

type smtpNotifier struct {
	dialer *gomail.Dialer
	from   string
	name   string
}

func NewSMTPNotifier(cfg config.SMTPConfig) (Notifier, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("smtp port must be greater than 0")
	}
	if strings.TrimSpace(cfg.FromEmail) == "" {
		return nil, fmt.Errorf("smtp from_email is required")
	}
	if _, err := mail.ParseAddress(cfg.FromEmail); err != nil {
		return nil, fmt.Errorf("invalid smtp from_email: %w", err)
	}
	return &smtpNotifier{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.FromEmail,
		name:   cfg.FromName,
	}, nil
}

func (n *smtpNotifier) SendCode(_ context.Context, to string, code string) error {
	body := fmt.Sprintf(`
		<h3>Verify your university email</h3>
		<p>Your verification code is <strong>%s</strong>.</p>
		<p>It expires in a few minutes and can be tried three times.</p>
		<p>If you did not request this code, you can ignore this email.</p>
	`, code)
	if err := n.send(to, "Your verification code", body); err != nil {
		return fmt.Errorf("failed to send verification code: %w", err)
	}
	return nil
}

func (n *smtpNotifier) SendLinkToken(_ context.Context, to string, token string) error {
	body := fmt.Sprintf(`
		<h3>Link a new sign-in method</h3>
		<p>Someone asked to add a new sign-in method to your account.</p>
		<p>Use this token to confirm: <strong>%s</strong></p>
		<p>If this was not you, ignore this email and the request will expire.</p>
	`, token)
	if err := n.send(to, "Confirm account linking", body); err != nil {
		return fmt.Errorf("failed to send linking token: %w", err)
	}
	return nil
}

func (n *smtpNotifier) send(to, subject, body string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return fmt.Errorf("recipient email is required")
	}
	if _, err := mail.ParseAddress(to); err != nil {
		return fmt.Errorf("invalid recipient email: %w", err)
	}

	m := gomail.NewMessage()
	if strings.TrimSpace(n.name) != "" {
		m.SetAddressHeader("From", n.from, n.name)
	} else {
		m.SetHeader("From", n.from)
	}
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)
	return n.dialer.DialAndSend(m)
}

type logNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier is used when SMTP is disabled. It records that a message
// would have been sent without writing the secret itself.
func NewLogNotifier(logger *zap.Logger) Notifier {
	return &logNotifier{logger: logger}
}

func (n *logNotifier) SendCode(_ context.Context, to string, _ string) error {
	n.logger.Info("smtp disabled, verification code not delivered", zap.String("to", to))
	return nil
}

func (n *logNotifier) SendLinkToken(_ context.Context, to string, _ string) error {
	n.logger.Info("smtp disabled, linking token not delivered", zap.String("to", to))
	return nil
}
