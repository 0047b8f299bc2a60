// Package notify sends admin notification emails through AWS SES. Sends
// always go through the outbox: the caller enqueues a durable record and
// the worker delivers it, so an SES outage never fails a core write.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/google/uuid"

	appconfig "github.com/valle1212i/admin-portal-sub000/internal/config"
	"github.com/valle1212i/admin-portal-sub000/internal/domain"
	"github.com/valle1212i/admin-portal-sub000/internal/pkg/logger"
)

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailSender delivers notification emails via SES v2.
type EmailSender struct {
	client    sesAPI
	fromEmail string
	fromName  string
}

// NewEmailSender creates an SES-backed sender. Static credentials win
// over the default chain when configured.
func NewEmailSender(ctx context.Context, cfg appconfig.EmailConfig) (*EmailSender, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &EmailSender{
		client:    sesv2.NewFromConfig(awsCfg),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
	}, nil
}

// EmailPayload is the body stored in an admin_email outbox record.
type EmailPayload struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

// Send delivers one plain-text email.
func (s *EmailSender) Send(ctx context.Context, to []string, subject, textBody string) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)),
		Destination:      &types.Destination{ToAddresses: to},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(textBody), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("notify: SES send failed: %w", err)
	}
	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}
	for _, addr := range to {
		logger.Info("notify: email sent", "to", logger.RedactEmail(addr), "messageId", messageID)
	}
	return nil
}

// SendPayload delivers a serialized outbox email body.
func (s *EmailSender) SendPayload(ctx context.Context, body string) error {
	var p EmailPayload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return fmt.Errorf("notify: bad email payload: %w", err)
	}
	return s.Send(ctx, p.To, p.Subject, p.Text)
}

// NewCaseNotification builds the outbox record telling the admin team a
// new case arrived.
func NewCaseNotification(to []string, c *domain.Case) (*domain.OutboundMessage, error) {
	body, err := json.Marshal(EmailPayload{
		To:      to,
		Subject: fmt.Sprintf("Nytt ärende: %s", c.Topic),
		Text: fmt.Sprintf("Ett nytt ärende har kommit in.\n\nÄrende: %s\nKund: %s\nSession: %s\n",
			c.Topic, c.CustomerID, c.SessionID),
	})
	if err != nil {
		return nil, fmt.Errorf("notify: failed to marshal payload: %w", err)
	}
	now := time.Now().UTC()
	return &domain.OutboundMessage{
		ID:            uuid.New().String(),
		Kind:          domain.OutboundAdminEmail,
		Body:          string(body),
		Status:        domain.OutboundPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}
