package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/aws/aws-sdk-go/service/ses/sesiface"
	"github.com/rs/zerolog"

	"github.com/deliciousroute/delicious-route/internal/config"
	"github.com/deliciousroute/delicious-route/internal/logging"
)

// ErrNotConfigured is returned by mailers that drop messages instead of sending them
var ErrNotConfigured = errors.New("email delivery not configured")

// Mailer delivers a message
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SESMailer sends messages through Amazon SES
type SESMailer struct {
	client sesiface.SESAPI
	from   string
	logger zerolog.Logger
}

// NewSESMailer creates a mailer with static credentials for the configured region
func NewSESMailer(cfg config.EmailConfig) (*SESMailer, error) {
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(cfg.SESRegion),
		Credentials: credentials.NewStaticCredentials(cfg.SESAccessKeyID, cfg.SESSecretAccessKey, ""),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return newSESMailer(ses.New(sess), cfg.From), nil
}

func newSESMailer(client sesiface.SESAPI, from string) *SESMailer {
	if from == "" {
		from = DefaultFrom
	}
	return &SESMailer{client: client, from: from, logger: logging.GetLogger("ses-mailer")}
}

// Send delivers msg as a single SES email
func (m *SESMailer) Send(ctx context.Context, msg Message) error {
	body := &ses.Body{
		Text: &ses.Content{Charset: aws.String("UTF-8"), Data: aws.String(msg.Text)},
	}
	if msg.HTML != "" {
		body.Html = &ses.Content{Charset: aws.String("UTF-8"), Data: aws.String(msg.HTML)}
	}

	out, err := m.client.SendEmailWithContext(ctx, &ses.SendEmailInput{
		Destination: &ses.Destination{ToAddresses: []*string{aws.String(msg.To)}},
		Message: &ses.Message{
			Body:    body,
			Subject: &ses.Content{Charset: aws.String("UTF-8"), Data: aws.String(msg.Subject)},
		},
		Source: aws.String(m.from),
	})
	if err != nil {
		return fmt.Errorf("failed to send %s email via SES: %w", msg.Kind, err)
	}

	m.logger.Debug().
		Str("kind", string(msg.Kind)).
		Str("message_id", aws.StringValue(out.MessageId)).
		Msg("Email sent")
	return nil
}

// LogMailer logs messages instead of sending them
type LogMailer struct {
	logger zerolog.Logger
}

// NewLogMailer creates a mailer for environments without SES credentials
func NewLogMailer() *LogMailer {
	return &LogMailer{logger: logging.GetLogger("log-mailer")}
}

// Send logs the message and reports ErrNotConfigured
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Warn().
		Str("kind", string(msg.Kind)).
		Str("subject", msg.Subject).
		Msg("Email delivery not configured; skipping send")
	if msg.Kind == KindPasswordReset {
		m.logger.Info().Str("body", msg.Text).Msg("Password reset email body")
	}
	return ErrNotConfigured
}

// New returns an SESMailer when SES is fully configured and a LogMailer otherwise
func New(cfg config.EmailConfig) (Mailer, error) {
	if !cfg.SESConfigured() {
		return NewLogMailer(), nil
	}
	m, err := NewSESMailer(cfg)
	if err != nil {
		return nil, err
	}
	logger := logging.GetLogger("mail")
	logger.Info().Str("region", cfg.SESRegion).Str("from", cfg.From).Msg("AWS SES configured")
	return m, nil
}
