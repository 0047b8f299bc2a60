package cases

import (
	"context"
	"time"

	"github.com/valle1212i/admin-portal-sub000/internal/domain"
)

// ListFilter controls filtering and pagination for case lists.
type ListFilter struct {
	Status string
	Query  string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// Repository defines the data access contract for cases.
type Repository interface {
	// CreateIfAbsent persists a new case with its initial messages,
	// keyed by session id. Returns false without modifying anything if
	// a case with the same session id already exists.
	CreateIfAbsent(ctx context.Context, c *domain.Case, messages []domain.CaseMessage) (bool, error)

	// GetByID returns a case with its messages, or ErrNotFound.
	GetByID(ctx context.Context, id string) (*domain.Case, error)

	// GetBySessionID returns the case holding a session, or ErrNotFound.
	GetBySessionID(ctx context.Context, sessionID string) (*domain.Case, error)

	// AppendMessage appends one message to an existing case. If the
	// case is closed it flips status to open in the same transaction,
	// so there is no observable window with the message present but the
	// case still closed. Returns ErrNotFound for an unknown case id.
	AppendMessage(ctx context.Context, caseID string, msg *domain.CaseMessage) error

	// Assign updates the assigned admin and appends the audit event in
	// one transaction, capturing the previous assignee under a row lock.
	// Never touches case status. Returns ErrNotFound for an unknown id.
	Assign(ctx context.Context, caseID, newAdmin, assignedBy string) (*domain.AssignmentEvent, error)

	// AddNote appends an internal note. Never touches case status.
	AddNote(ctx context.Context, note *domain.InternalNote) error

	// Close marks the case closed and returns it with messages loaded,
	// for transcript archival.
	Close(ctx context.Context, id string) (*domain.Case, error)

	// List returns a filtered page of cases (without messages) plus the
	// total match count.
	List(ctx context.Context, filter ListFilter) ([]domain.Case, int, error)
}
