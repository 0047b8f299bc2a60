package ingest

import (
	"context"
	"time"

	"github.com/valle1212i/admin-portal-sub000/internal/domain"
)

// SortField names a whitelisted sort column for the list facade.
type SortField string

const (
	SortCreatedAt SortField = "createdAt"
	SortCategory  SortField = "category"
	SortTenant    SortField = "tenantId"
	SortUserEmail SortField = "userEmail"
)

// ParseSortField validates a client-supplied sort field against the
// whitelist. Anything else falls back to createdAt.
func ParseSortField(raw string) SortField {
	switch SortField(raw) {
	case SortCategory, SortTenant, SortUserEmail:
		return SortField(raw)
	default:
		return SortCreatedAt
	}
}

// ListFilter controls filtering, sorting, and pagination for submissions.
type ListFilter struct {
	Category string
	Tenant   string
	Platform string
	Status   string
	From     *time.Time
	To       *time.Time
	// Query is a raw, attacker-controlled search string. The repository
	// must escape it before compiling it into a pattern match.
	Query    string
	Sort     SortField
	SortDesc bool
	Limit    int
	Offset   int
}

// ListResult is one page of submissions plus the metadata the admin UI
// needs. Source names the storage location that served the query so
// operators can spot a deployment still running on a legacy table.
type ListResult struct {
	Items  []domain.Submission
	Total  int
	Source string
}

// Repository defines the data access contract for submissions.
type Repository interface {
	// InsertIfAbsent persists the submission only if no row with its
	// idempotency key exists, as one atomic storage operation. Returns
	// true if a row was created, false if the key already existed.
	InsertIfAbsent(ctx context.Context, sub *domain.Submission) (bool, error)

	// GetByID returns a single submission or ErrNotFound.
	GetByID(ctx context.Context, id string) (*domain.Submission, error)

	// List returns a filtered, sorted, paginated page of submissions.
	List(ctx context.Context, filter ListFilter) (*ListResult, error)
}
