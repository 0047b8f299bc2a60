package archive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valle1212i/admin-portal-sub000/internal/domain"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	return &s3.PutObjectOutput{}, f.err
}

func TestArchiveTranscript(t *testing.T) {
	fake := &fakeS3{}
	a := &S3Archiver{client: fake, bucket: "admin-archives", prefix: "transcripts/"}

	c := &domain.Case{
		ID:        "case-1",
		SessionID: "sess-1",
		Topic:     "Billing",
		Status:    domain.CaseClosed,
		Messages: []domain.CaseMessage{
			{ID: "m1", Sender: domain.SenderAdmin, Message: "Hello", CreatedAt: time.Now().UTC()},
		},
	}

	require.NoError(t, a.ArchiveTranscript(context.Background(), c))

	require.NotNil(t, fake.input)
	assert.Equal(t, "admin-archives", *fake.input.Bucket)
	assert.Equal(t, "transcripts/case-1.json", *fake.input.Key)

	body, err := io.ReadAll(fake.input.Body)
	require.NoError(t, err)
	var got transcript
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "case-1", got.CaseID)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "Hello", got.Messages[0].Message)
}

func TestArchiveTranscript_PutFails(t *testing.T) {
	fake := &fakeS3{err: errors.New("access denied")}
	a := &S3Archiver{client: fake, bucket: "b", prefix: "transcripts/"}

	err := a.ArchiveTranscript(context.Background(), &domain.Case{ID: "case-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to store transcript")
}
