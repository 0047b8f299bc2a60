package cases

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/valle1212i/admin-portal-sub000/internal/domain"
	"github.com/valle1212i/admin-portal-sub000/internal/pkg/logger"
)

// maxDescriptionLen bounds the stored case description.
const maxDescriptionLen = 2000

// Archiver stores a closed case's transcript outside the database.
// Archival is best-effort: a failure is logged, never surfaced to the
// close operation.
type Archiver interface {
	ArchiveTranscript(ctx context.Context, c *domain.Case) error
}

// Service implements case business logic over the Repository.
type Service struct {
	repo     Repository
	archiver Archiver
}

// NewService creates a case service. archiver may be nil.
func NewService(repo Repository, archiver Archiver) *Service {
	return &Service{repo: repo, archiver: archiver}
}

// CreateInput is the payload for creating a case from a webhook.
type CreateInput struct {
	SessionID   string
	CustomerID  string
	Topic       string
	Description string
	Status      string
	Messages    []RawMessage
}

// Create builds and persists a new case. SessionID, CustomerID and Topic
// are required; the source status is normalized through the locale table;
// initial messages are sanitized per the batch rule. Returns the case and
// whether this call created it. When a case with the same session id
// already exists nothing is written and the existing case is returned, so
// the caller always acknowledges with an id that resolves.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Case, bool, error) {
	if strings.TrimSpace(in.SessionID) == "" ||
		strings.TrimSpace(in.CustomerID) == "" ||
		strings.TrimSpace(in.Topic) == "" {
		return nil, false, ErrMissingFields
	}

	desc := strings.TrimSpace(in.Description)
	if len(desc) > maxDescriptionLen {
		desc = desc[:maxDescriptionLen]
	}

	now := time.Now().UTC()
	c := &domain.Case{
		ID:          uuid.New().String(),
		SessionID:   strings.TrimSpace(in.SessionID),
		CustomerID:  strings.TrimSpace(in.CustomerID),
		Topic:       strings.TrimSpace(in.Topic),
		Description: desc,
		Status:      domain.NormalizeCaseStatus(in.Status),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	messages := SanitizeMessages(c.ID, in.Messages, now)

	created, err := s.repo.CreateIfAbsent(ctx, c, messages)
	if err != nil {
		return nil, false, err
	}
	if !created {
		existing, err := s.repo.GetBySessionID(ctx, c.SessionID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	c.Messages = messages
	return c, true, nil
}

// Append adds one customer message to an existing case. A case_response
// is customer-originated by definition, so the sender is always customer.
// If the case is closed, the repository reopens it atomically with the
// append.
func (s *Service) Append(ctx context.Context, caseID string, raw RawMessage) (*domain.CaseMessage, error) {
	text := strings.TrimSpace(raw.Message)
	if text == "" {
		return nil, ErrBlankMessage
	}

	msg := &domain.CaseMessage{
		ID:          uuid.New().String(),
		CaseID:      caseID,
		Sender:      domain.SenderCustomer,
		SenderName:  strings.TrimSpace(raw.SenderName),
		SenderEmail: strings.TrimSpace(raw.SenderEmail),
		Message:     text,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.AppendMessage(ctx, caseID, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Assign sets or clears the assigned admin, recording an audit event.
// Passing an empty adminID unassigns. Assignment never mutates status.
func (s *Service) Assign(ctx context.Context, caseID, adminID, assignedBy string) (*domain.AssignmentEvent, error) {
	if strings.TrimSpace(assignedBy) == "" {
		return nil, ErrMissingAdmin
	}
	return s.repo.Assign(ctx, caseID, strings.TrimSpace(adminID), strings.TrimSpace(assignedBy))
}

// AddNote appends an admin-only annotation.
func (s *Service) AddNote(ctx context.Context, caseID, note string) (*domain.InternalNote, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, ErrBlankNote
	}
	n := &domain.InternalNote{
		ID:        uuid.New().String(),
		CaseID:    caseID,
		Note:      note,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.AddNote(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Close marks a case closed and archives its transcript. Archival failure
// never fails the close.
func (s *Service) Close(ctx context.Context, caseID string) (*domain.Case, error) {
	c, err := s.repo.Close(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if s.archiver != nil {
		if err := s.archiver.ArchiveTranscript(ctx, c); err != nil {
			logger.Warn("cases: transcript archival failed", "caseId", c.ID, "error", err)
		}
	}
	return c, nil
}

// Get returns a case with its messages.
func (s *Service) Get(ctx context.Context, caseID string) (*domain.Case, error) {
	return s.repo.GetByID(ctx, caseID)
}

// List returns a filtered page of cases.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]domain.Case, int, error) {
	return s.repo.List(ctx, filter)
}
