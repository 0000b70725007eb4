package notification

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/messaging"
)

var _ messaging.EmailSender = (*SMTPSender)(nil)

type SMTPConfig struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username string `yaml:"username" env:"SMTP_USERNAME"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from" env:"SMTP_FROM" env-default:"AI Hypnosis <no-reply@localhost>"`
	TLS      bool   `yaml:"tls" env:"SMTP_TLS" env-default:"true"`
}

// SMTPSender renders payloads and delivers them over SMTP.
type SMTPSender struct {
	client *mail.Client
	from   string
	logger *zap.Logger
}

func NewSMTPSender(cfg SMTPConfig, logger *zap.Logger) (*SMTPSender, error) {
	opts := []mail.Option{mail.WithPort(cfg.Port)}
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
	return &SMTPSender{client: client, from: cfg.From, logger: logger.Named("SMTPSender")}, nil
}

func (s *SMTPSender) SendEmail(ctx context.Context, payload messaging.EmailNotificationPayload) error {
	rendered, err := Render(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", messaging.ErrPermanent, err)
	}

	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("%w: invalid sender %q: %v", messaging.ErrPermanent, s.from, err)
	}
	if err := msg.To(payload.To); err != nil {
		return fmt.Errorf("%w: invalid recipient %q: %v", messaging.ErrPermanent, payload.To, err)
	}
	msg.Subject(rendered.Subject)
	msg.SetBodyString(mail.TypeTextPlain, rendered.Text)
	msg.AddAlternativeString(mail.TypeTextHTML, rendered.HTML)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send e-mail: %w", err)
	}
	s.logger.Info("E-mail delivered", zap.String("kind", string(payload.Kind)), zap.String("journeyID", payload.JourneyID.String()))
	return nil
}

// LogSender only logs; used when SMTP is not configured.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger.Named("LogSender")}
}

func (s *LogSender) SendEmail(_ context.Context, payload messaging.EmailNotificationPayload) error {
	rendered, err := Render(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", messaging.ErrPermanent, err)
	}
	s.logger.Warn("SMTP not configured, e-mail not sent",
		zap.String("to", payload.To), zap.String("subject", rendered.Subject), zap.String("journeyID", payload.JourneyID.String()))
	return nil
}
