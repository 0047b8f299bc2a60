package packages

import (
	"context"
	"time"

	"github.com/valle1212i/admin-portal-sub000/internal/domain"
)

// Repository defines the data access contract for customers and their
// package change requests.
type Repository interface {
	// GetCustomer returns a customer or ErrCustomerNotFound.
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)

	// CreateChangeRequest appends a pending change request to the
	// customer's history.
	CreateChangeRequest(ctx context.Context, req *domain.PackageChangeRequest) error

	// UpdateCustomerPackage sets the live package and seat count.
	UpdateCustomerPackage(ctx context.Context, customerID string, pkg domain.PackageTier, maxUsers int) error

	// Resolve transitions a pending request to approved or rejected,
	// recording the actor and timestamp. Returns ErrRequestNotFound for
	// an unknown request and ErrNotPending when the request has already
	// been resolved; the update is conditional on status=pending so a
	// concurrent double-approve loses cleanly.
	Resolve(ctx context.Context, customerID, requestID string, status domain.ChangeRequestStatus, actor string, at time.Time) (*domain.PackageChangeRequest, error)
}

// Portal pushes package changes to the external customer portal.
type Portal interface {
	// PushPackageChange delivers the change synchronously, with the
	// client's own timeout and bounded retries.
	PushPackageChange(ctx context.Context, c *domain.Customer, req *domain.PackageChangeRequest) error

	// QueuedPackageChange builds the durable outbox record for a change
	// whose synchronous push failed.
	QueuedPackageChange(c *domain.Customer, req *domain.PackageChangeRequest) (*domain.OutboundMessage, error)
}

// Enqueuer persists outbound messages for the delivery worker.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg *domain.OutboundMessage) error
}
