package packages

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/valle1212i/admin-portal-sub000/internal/domain"
	"github.com/valle1212i/admin-portal-sub000/internal/pkg/logger"
)

// SyncStatus reports how the synchronous portal push went for an
// immediate change. Empty for next_billing requests, which are not
// pushed until they take effect.
type SyncStatus string

const (
	SyncOK     SyncStatus = "synced"
	SyncFailed SyncStatus = "sync_failed"
)

// ChangeInput is the payload for requesting a package change.
type ChangeInput struct {
	CustomerID    string
	Package       string
	EffectiveDate string
	RequestedBy   string
}

// ChangeResult is the outcome of a change request, including the portal
// sync status for immediate changes.
type ChangeResult struct {
	Request    *domain.PackageChangeRequest `json:"request"`
	Customer   *domain.Customer             `json:"customer"`
	SyncStatus SyncStatus                   `json:"syncStatus,omitempty"`
}

// Service implements package change business logic.
type Service struct {
	repo      Repository
	portal    Portal
	outbox    Enqueuer
	approvers map[string]bool
}

// NewService creates a package service. approverEmails is the fixed
// allowlist of admins who may approve or reject change requests.
func NewService(repo Repository, portal Portal, outbox Enqueuer, approverEmails []string) *Service {
	approvers := make(map[string]bool, len(approverEmails))
	for _, e := range approverEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			approvers[e] = true
		}
	}
	return &Service{repo: repo, portal: portal, outbox: outbox, approvers: approvers}
}

// RequestChange appends a pending change request. An immediate change
// also updates the customer's live package and seat count, then pushes
// the change to the portal. The local write is authoritative: a failed
// push is reported as sync_failed and queued for retry, never rolled
// back.
func (s *Service) RequestChange(ctx context.Context, in ChangeInput) (*ChangeResult, error) {
	if strings.TrimSpace(in.RequestedBy) == "" {
		return nil, ErrMissingFields
	}
	pkg := domain.PackageTier(strings.ToLower(strings.TrimSpace(in.Package)))
	if !domain.KnownPackage(string(pkg)) {
		return nil, ErrUnknownPackage
	}

	customer, err := s.repo.GetCustomer(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}

	req := &domain.PackageChangeRequest{
		ID:               uuid.New().String(),
		CustomerID:       customer.ID,
		RequestedPackage: pkg,
		RequestedBy:      strings.TrimSpace(in.RequestedBy),
		RequestedAt:      time.Now().UTC(),
		Status:           domain.ChangePending,
		EffectiveDate:    normalizeEffectiveDate(in.EffectiveDate),
	}
	if err := s.repo.CreateChangeRequest(ctx, req); err != nil {
		return nil, err
	}

	result := &ChangeResult{Request: req, Customer: customer}
	if req.EffectiveDate != domain.EffectiveImmediate {
		return result, nil
	}

	if err := s.repo.UpdateCustomerPackage(ctx, customer.ID, pkg, domain.MaxUsersFor(pkg)); err != nil {
		return nil, err
	}
	customer.Package = pkg
	customer.MaxUsers = domain.MaxUsersFor(pkg)

	result.SyncStatus = SyncOK
	if err := s.portal.PushPackageChange(ctx, customer, req); err != nil {
		logger.Warn("packages: portal sync failed, queuing for retry",
			"customerId", customer.ID, "requestId", req.ID, "error", err)
		result.SyncStatus = SyncFailed
		s.enqueueRetry(ctx, customer, req)
	}
	return result, nil
}

// enqueueRetry hands the failed push to the outbox worker. A queue
// failure on top of a push failure is logged; the request itself stays
// visible as sync_failed for an operator.
func (s *Service) enqueueRetry(ctx context.Context, c *domain.Customer, req *domain.PackageChangeRequest) {
	msg, err := s.portal.QueuedPackageChange(c, req)
	if err == nil {
		err = s.outbox.Enqueue(ctx, msg)
	}
	if err != nil {
		logger.Error("packages: failed to queue portal sync retry",
			"customerId", c.ID, "requestId", req.ID, "error", err)
	}
}

// Approve transitions a pending request to approved. The actor must be
// on the approver allowlist; an unauthorized actor mutates nothing.
func (s *Service) Approve(ctx context.Context, customerID, requestID, actor string) (*domain.PackageChangeRequest, error) {
	return s.resolve(ctx, customerID, requestID, domain.ChangeApproved, actor)
}

// Reject transitions a pending request to rejected.
func (s *Service) Reject(ctx context.Context, customerID, requestID, actor string) (*domain.PackageChangeRequest, error) {
	return s.resolve(ctx, customerID, requestID, domain.ChangeRejected, actor)
}

func (s *Service) resolve(ctx context.Context, customerID, requestID string, status domain.ChangeRequestStatus, actor string) (*domain.PackageChangeRequest, error) {
	if !s.approvers[strings.ToLower(strings.TrimSpace(actor))] {
		return nil, ErrNotAuthorized
	}
	return s.repo.Resolve(ctx, customerID, requestID, status, strings.TrimSpace(actor), time.Now().UTC())
}

func normalizeEffectiveDate(raw string) domain.EffectiveDate {
	if strings.ToLower(strings.TrimSpace(raw)) == string(domain.EffectiveImmediate) {
		return domain.EffectiveImmediate
	}
	return domain.EffectiveNextBilling
}
