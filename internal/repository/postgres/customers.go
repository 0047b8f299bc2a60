package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/valle1212i/admin-portal-sub000/internal/domain"
	"github.com/valle1212i/admin-portal-sub000/internal/service/packages"
)

// CustomerRepo implements packages.Repository against PostgreSQL.
type CustomerRepo struct{ db *sql.DB }

// NewCustomerRepo creates a Postgres-backed customer repository.
func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{db: db} }

func (r *CustomerRepo) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	c := &domain.Customer{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(email,''), package, max_users,
		       COALESCE(status,''), created_at, updated_at
		FROM customers WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Email, &c.Package, &c.MaxUsers,
		&c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, packages.ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (r *CustomerRepo) CreateChangeRequest(ctx context.Context, req *domain.PackageChangeRequest) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO package_change_requests
			(id, customer_id, requested_package, requested_by, requested_at,
			 status, effective_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, req.ID, req.CustomerID, req.RequestedPackage, req.RequestedBy,
		req.RequestedAt, req.Status, req.EffectiveDate)
	if err != nil {
		return fmt.Errorf("create change request: %w", err)
	}
	return nil
}

func (r *CustomerRepo) UpdateCustomerPackage(ctx context.Context, customerID string, pkg domain.PackageTier, maxUsers int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE customers SET package = $1, max_users = $2, updated_at = NOW()
		WHERE id = $3
	`, pkg, maxUsers, customerID)
	if err != nil {
		return fmt.Errorf("update customer package: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return packages.ErrCustomerNotFound
	}
	return nil
}

// Resolve performs the one-way pending transition. The UPDATE is
// conditional on status=pending, so of two concurrent resolutions exactly
// one lands and the other sees ErrNotPending.
func (r *CustomerRepo) Resolve(ctx context.Context, customerID, requestID string, status domain.ChangeRequestStatus, actor string, at time.Time) (*domain.PackageChangeRequest, error) {
	req := &domain.PackageChangeRequest{}
	var approvedBy sql.NullString
	var approvedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		UPDATE package_change_requests
		SET status = $1, approved_by = $2, approved_at = $3
		WHERE id = $4 AND customer_id = $5 AND status = $6
		RETURNING id, customer_id, requested_package, requested_by,
		          requested_at, approved_by, approved_at, status, effective_date
	`, status, actor, at, requestID, customerID, domain.ChangePending).Scan(
		&req.ID, &req.CustomerID, &req.RequestedPackage, &req.RequestedBy,
		&req.RequestedAt, &approvedBy, &approvedAt, &req.Status, &req.EffectiveDate)
	if err == sql.ErrNoRows {
		return nil, r.classifyResolveMiss(ctx, customerID, requestID)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve change request: %w", err)
	}
	req.ApprovedBy = approvedBy.String
	if approvedAt.Valid {
		t := approvedAt.Time
		req.ApprovedAt = &t
	}
	return req, nil
}

// classifyResolveMiss distinguishes an unknown request from one already
// resolved, for a precise error to the admin.
func (r *CustomerRepo) classifyResolveMiss(ctx context.Context, customerID, requestID string) error {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM package_change_requests WHERE id = $1 AND customer_id = $2)
	`, requestID, customerID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("resolve change request: %w", err)
	}
	if !exists {
		return packages.ErrRequestNotFound
	}
	return packages.ErrNotPending
}
