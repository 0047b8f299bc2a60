package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/valle1212i/admin-portal-sub000/internal/domain"
)

// DeliveryRepo is the webhook delivery log. It gives case ingestion the
// same at-most-once guarantee as keyed submissions: a delivery claims its
// key up front with an insert-if-absent, fills in the response after
// processing, and duplicates replay that response. A claim whose
// response_status is still zero marks a delivery in flight.
type DeliveryRepo struct{ db *sql.DB }

// NewDeliveryRepo creates a Postgres-backed delivery log.
func NewDeliveryRepo(db *sql.DB) *DeliveryRepo { return &DeliveryRepo{db: db} }

// Find returns the recorded delivery for a key, or nil when the key has
// not been seen.
func (r *DeliveryRepo) Find(ctx context.Context, key string) (*domain.WebhookDelivery, error) {
	d := &domain.WebhookDelivery{}
	err := r.db.QueryRowContext(ctx, `
		SELECT idempotency_key, category, response_status, response_body, created_at
		FROM webhook_deliveries WHERE idempotency_key = $1
	`, key).Scan(&d.IdempotencyKey, &d.Category, &d.ResponseStatus, &d.ResponseBody, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find delivery: %w", err)
	}
	return d, nil
}

// Record claims a delivery key before processing starts. Returns false
// when the key is already claimed, by a finished delivery or one still in
// flight; of two concurrent deliveries exactly one wins the insert.
func (r *DeliveryRepo) Record(ctx context.Context, d *domain.WebhookDelivery) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO webhook_deliveries
			(idempotency_key, category, response_status, response_body, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, d.IdempotencyKey, d.Category, d.ResponseStatus, d.ResponseBody, d.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("record delivery: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record delivery: %w", err)
	}
	return n == 1, nil
}

// SetResponse fills in the response on a claimed key so duplicates replay
// it.
func (r *DeliveryRepo) SetResponse(ctx context.Context, key string, status int, body string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE webhook_deliveries
		SET response_status = $1, response_body = $2
		WHERE idempotency_key = $3
	`, status, body, key)
	if err != nil {
		return fmt.Errorf("set delivery response: %w", err)
	}
	return nil
}

// Release drops an unfinished claim so the sender's retry can reprocess.
// A claim that already holds a response is never released.
func (r *DeliveryRepo) Release(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM webhook_deliveries
		WHERE idempotency_key = $1 AND response_status = 0
	`, key)
	if err != nil {
		return fmt.Errorf("release delivery claim: %w", err)
	}
	return nil
}
