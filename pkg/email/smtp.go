package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"
)

// SMTPConfig holds connection settings for a plain SMTP relay.
// UseSSL selects implicit TLS (port 465); when false the dialer negotiates
// STARTTLS, which is what port 587 relays expect.
type SMTPConfig struct {
	Host        string `env:"SMTP_HOST"`
	Port        int    `env:"SMTP_PORT" envDefault:"587"`
	Username    string `env:"SMTP_USERNAME"`
	Password    string `env:"SMTP_PASSWORD"`
	UseSSL      bool   `env:"SMTP_USE_SSL" envDefault:"false"`
	SenderName  string `env:"SMTP_SENDER_NAME"`
	SenderEmail string `env:"SMTP_SENDER_EMAIL"`
}

type smtpSender struct {
	cfg SMTPConfig
}

// NewSMTPSender creates an SMTP-backed email sender. Useful for self-hosted
// relays and local catch-all servers where Postmark is not available.
func NewSMTPSender(cfg SMTPConfig) (EmailSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: Host is required", ErrInvalidConfig)
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("%w: Port must be positive", ErrInvalidConfig)
	}
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("%w: SenderEmail is required", ErrInvalidConfig)
	}
	if !emailRegex.MatchString(cfg.SenderEmail) {
		return nil, fmt.Errorf("%w: SenderEmail must be a valid email address", ErrInvalidConfig)
	}
	return &smtpSender{cfg: cfg}, nil
}

// SendEmail delivers the message through the configured relay. The context is
// honored up to dialing: gomail offers no context plumbing, so cancellation is
// checked before the blocking call.
func (s *smtpSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}

	from := s.cfg.SenderEmail
	if s.cfg.SenderName != "" {
		from = fmt.Sprintf("%s <%s>", s.cfg.SenderName, s.cfg.SenderEmail)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", params.SendTo)
	m.SetHeader("Subject", params.Subject)
	if params.Tag != "" {
		m.SetHeader("X-Tag", params.Tag)
	}
	m.SetBody("text/html", params.BodyHTML)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	d.SSL = s.cfg.UseSSL
	d.TLSConfig = &tls.Config{ServerName: s.cfg.Host}

	if err := d.DialAndSend(m); err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	return nil
}
