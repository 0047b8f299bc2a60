// Package archive stores closed-case transcripts in S3 for long-term
// retention outside the database.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/valle1212i/admin-portal-sub000/internal/config"
	"github.com/valle1212i/admin-portal-sub000/internal/domain"
	"github.com/valle1212i/admin-portal-sub000/internal/pkg/logger"
)

// s3PutAPI is the slice of the S3 client the archiver uses.
type s3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes case transcripts to an S3 bucket as JSON objects
// under a fixed key prefix.
type S3Archiver struct {
	client s3PutAPI
	bucket string
	prefix string
}

// NewS3Archiver builds an archiver from the application config, using the
// default AWS credential chain.
func NewS3Archiver(ctx context.Context, cfg config.ArchiveConfig) (*S3Archiver, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &S3Archiver{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// transcript is the archived object shape.
type transcript struct {
	CaseID     string               `json:"caseId"`
	SessionID  string               `json:"sessionId"`
	CustomerID string               `json:"customerId"`
	Topic      string               `json:"topic"`
	Status     domain.CaseStatus    `json:"status"`
	Messages   []domain.CaseMessage `json:"messages"`
	ArchivedAt time.Time            `json:"archivedAt"`
}

// ArchiveTranscript stores the case's message transcript at
// <prefix><caseID>.json. Re-archiving a case overwrites the previous
// object, which is fine: the newest transcript is the complete one.
func (a *S3Archiver) ArchiveTranscript(ctx context.Context, c *domain.Case) error {
	body, err := json.Marshal(transcript{
		CaseID:     c.ID,
		SessionID:  c.SessionID,
		CustomerID: c.CustomerID,
		Topic:      c.Topic,
		Status:     c.Status,
		Messages:   c.Messages,
		ArchivedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("archive: failed to marshal transcript: %w", err)
	}

	key := a.prefix + c.ID + ".json"
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("archive: failed to store transcript: %w", err)
	}
	logger.Info("archive: transcript stored", "caseId", c.ID, "key", key)
	return nil
}
