package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cydxin/presence-sdk/config"
	"github.com/cydxin/presence-sdk/models"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SMTPMailer addresses mail from the user table and hands it to an SMTP relay.
type SMTPMailer struct {
	*Service
	cfg    config.SMTPConfig
	send   func(ctx context.Context, msg *mail.Msg) error
	logger *zap.Logger
}

var _ Mailer = (*SMTPMailer)(nil)

func NewSMTPMailer(s *Service, cfg config.SMTPConfig) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
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
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{
		Service: s,
		cfg:     cfg,
		send: func(ctx context.Context, msg *mail.Msg) error {
			return client.DialAndSendWithContext(ctx, msg)
		},
		logger: s.log("mailer"),
	}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, userID string, n *models.Notification) error {
	var u models.User
	err := m.DB.WithContext(ctx).Where("id = ?", userID).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: unknown user", ErrNoRecipient)
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if u.Email == "" {
		return fmt.Errorf("%w: no email address", ErrNoRecipient)
	}

	msg, err := m.compose(u, n)
	if err != nil {
		return err
	}
	if err := m.send(ctx, msg); err != nil {
		return err
	}
	m.logger.Debug("mail sent", zap.String("user", userID), zap.String("notification", n.ID))
	return nil
}

// compose builds the message; go-mail encodes non-ASCII headers as RFC 2047 words.
func (m *SMTPMailer) compose(u models.User, n *models.Notification) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	var err error
	if u.Name != "" {
		err = msg.AddToFormat(u.Name, u.Email)
	} else {
		err = msg.AddTo(u.Email)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRecipient, err)
	}
	msg.Subject(oneLine(n.Title))
	msg.SetDate()
	msg.SetGenHeader(mail.Header("X-Notification-ID"), n.ID)
	msg.SetBodyString(mail.TypeTextPlain, n.Message)
	return msg, nil
}

func oneLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
