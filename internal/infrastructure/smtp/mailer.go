package smtp

import (
	"context"
	"fmt"

	"github.com/go-email-service/internal/config"
	"github.com/go-email-service/internal/domain"
	"github.com/go-email-service/internal/pkg/logger"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Mailer delivers messages over SMTP.
type Mailer struct {
	client *mail.Client
	from   string
	logger *zap.Logger
}

func NewMailer(cfg config.SMTPConfig, l *zap.Logger) (*Mailer, error) {
	l = logger.OrNop(l).With(zap.String("component", "smtp_mailer"))
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP_FROM is required")
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
	}
	switch cfg.Encryption {
	case "none":
		opts = append(opts, mail.WithTLSPortPolicy(mail.NoTLS))
	case "ssl":
		opts = append(opts, mail.WithSSL())
	case "tls", "starttls":
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	default:
		return nil, fmt.Errorf("unknown SMTP_ENCRYPTION %q", cfg.Encryption)
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create mail client: %w", err)
	}
	l.Info("mail transport ready",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("encryption", cfg.Encryption))

	return &Mailer{client: client, from: cfg.From, logger: l}, nil
}

// Send makes one delivery attempt for msg.
func (m *Mailer) Send(ctx context.Context, msg domain.EmailMessage) error {
	message, err := m.newMessage(msg)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, message); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	logger.WithContext(ctx, m.logger).Debug("message handed to SMTP server", zap.String("to", msg.To))
	return nil
}

func (m *Mailer) newMessage(msg domain.EmailMessage) (*mail.Msg, error) {
	message := mail.NewMsg()
	if err := message.From(m.from); err != nil {
		return nil, fmt.Errorf("set FROM address: %w", err)
	}
	if err := message.To(msg.To); err != nil {
		return nil, fmt.Errorf("set TO address: %w", err)
	}
	message.Subject(msg.Subject)
	message.SetBodyString(mail.TypeTextPlain, msg.Body)
	return message, nil
}
