package mailer

import (
	"context"

	"github.com/pkg/errors"
	"gopkg.in/gomail.v2"
)

type Config struct {
	Host     string `envconfig:"SMTP_HOST"`
	Port     int    `envconfig:"SMTP_PORT" default:"587"`
	Username string `envconfig:"SMTP_USERNAME"`
	Password string `json:"-" envconfig:"SMTP_PASSWORD"`
	From     string `envconfig:"MAIL_FROM" default:"biblioteca@example.org"`
	ReplyTo  string `envconfig:"MAIL_REPLY_TO"`
}

func (c Config) Enabled() bool {
	return c.Host != ""
}

type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

var ErrDisabled = errors.New("mail delivery is not configured")

type SMTPSender struct {
	cfg    Config
	dialer *gomail.Dialer
}

func NewSMTPSender(cfg Config) *SMTPSender {
	return &SMTPSender{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// Send delivers one message over a fresh SMTP connection.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if !s.cfg.Enabled() {
		return ErrDisabled
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", msg.To)
	if s.cfg.ReplyTo != "" {
		m.SetHeader("Reply-To", s.cfg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.TextBody)
	if msg.HTMLBody != "" {
		m.AddAlternative("text/html", msg.HTMLBody)
	}
	if err := s.dialer.DialAndSend(m); err != nil {
		return errors.Wrapf(err, "send to %s", msg.To)
	}
	return nil
}
