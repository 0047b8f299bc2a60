package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/valle1212i/admin-portal-sub000/internal/classify"
	"github.com/valle1212i/admin-portal-sub000/internal/domain"
	"github.com/valle1212i/admin-portal-sub000/internal/pkg/logger"
)

// Service implements submission ingestion and the admin read facade.
type Service struct {
	repo Repository
}

// NewService creates an ingestion service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Ingest persists a classified payload at most once for its idempotency
// key. Returns the submission as stored plus whether this delivery was the
// one that created it. A duplicate delivery is a successful no-op: the
// caller acknowledges it so the sender stops retrying.
func (s *Service) Ingest(ctx context.Context, key string, result classify.Result) (*domain.Submission, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false, ErrMissingKey
	}

	now := time.Now().UTC()
	sub := &domain.Submission{
		ID:             uuid.New().String(),
		IdempotencyKey: key,
		Category:       result.Category,
		TenantID:       result.TenantID,
		Platform:       result.Platform,
		UserEmail:      result.UserEmail,
		UserID:         result.UserID,
		Status:         domain.SubmissionSubmitted,
		Answers:        result.Answers,
		AIStudio:       result.AIStudio,
		Radgivning:     result.Radgivning,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	created, err := s.repo.InsertIfAbsent(ctx, sub)
	if err != nil {
		return nil, false, err
	}
	if !created {
		logger.Debug("ingest: duplicate delivery ignored", "key", key, "category", string(result.Category))
	}
	return sub, created, nil
}

// Get returns a single submission by id.
func (s *Service) Get(ctx context.Context, id string) (*domain.Submission, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidID
	}
	return s.repo.GetByID(ctx, id)
}

// List returns a page of submissions matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) (*ListResult, error) {
	if filter.Sort == "" {
		filter.Sort = SortCreatedAt
		filter.SortDesc = true
	}
	return s.repo.List(ctx, filter)
}
