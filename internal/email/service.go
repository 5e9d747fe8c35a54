package email

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/hms-console/internal/config"
	"github.com/jwalitptl/hms-console/pkg/logger"
)

type Service interface {
	SendWelcome(ctx context.Context, email string, name string) error
}

// dialer is the part of gomail.Dialer the mailer uses.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type smtpService struct {
	dialer dialer
	from   string
}

// NewService returns an SMTP mailer, or a mailer that only logs when no host is configured.
func NewService(cfg config.SMTPConfig, l zerolog.Logger) Service {
	if cfg.Host == "" {
		return &logService{logger: logger.Component(l, "email")}
	}
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpService) SendWelcome(ctx context.Context, to string, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Welcome to the hospital console")
	m.SetBody("text/plain", welcomeBody(name))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send welcome mail: %w", err)
	}
	return nil
}

type logService struct {
	logger zerolog.Logger
}

func (s *logService) SendWelcome(_ context.Context, to string, name string) error {
	s.logger.Info().Str("to", to).Str("name", name).Msg("mail disabled, welcome mail not sent")
	return nil
}

func welcomeBody(name string) string {
	return fmt.Sprintf("Hello %s,\n\nYour console account has been created. Sign in to get started.\n", name)
}
