package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/valle1212i/admin-portal-sub000/internal/domain"
)

// ErrOutboxNotFound means the outbound message id does not exist.
var ErrOutboxNotFound = errors.New("postgres: outbound message not found")

// OutboxRepo stores durable outbound delivery obligations. Rows are never
// deleted: permanently failed deliveries stay inspectable.
type OutboxRepo struct{ db *sql.DB }

// NewOutboxRepo creates a Postgres-backed outbox.
func NewOutboxRepo(db *sql.DB) *OutboxRepo { return &OutboxRepo{db: db} }

func (r *OutboxRepo) Enqueue(ctx context.Context, msg *domain.OutboundMessage) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO outbound_messages
			(id, kind, url, body, headers, status, attempts, last_error,
			 next_attempt_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, msg.ID, msg.Kind, msg.URL, msg.Body, domain.StringMap(msg.Headers),
		msg.Status, msg.Attempts, msg.LastError, msg.NextAttemptAt,
		msg.CreatedAt, msg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("enqueue outbound message: %w", err)
	}
	return nil
}

const outboundColumns = `id, kind, COALESCE(url,''), body, headers, status,
	attempts, COALESCE(last_error,''), next_attempt_at, created_at, updated_at`

// DuePending returns pending messages whose next attempt time has passed,
// oldest first.
func (r *OutboxRepo) DuePending(ctx context.Context, limit int) ([]domain.OutboundMessage, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM outbound_messages
		WHERE status = $1 AND next_attempt_at <= NOW()
		ORDER BY next_attempt_at
		LIMIT $2
	`, outboundColumns), domain.OutboundPending, limit)
	if err != nil {
		return nil, fmt.Errorf("load due outbound messages: %w", err)
	}
	defer rows.Close()
	return scanOutbound(rows)
}

// ListByStatus returns messages in a given status for operator inspection,
// newest first. An empty status returns everything.
func (r *OutboxRepo) ListByStatus(ctx context.Context, status domain.OutboundStatus, limit int) ([]domain.OutboundMessage, error) {
	q := fmt.Sprintf(`SELECT %s FROM outbound_messages`, outboundColumns)
	args := []interface{}{}
	if status != "" {
		q += ` WHERE status = $1`
		args = append(args, status)
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list outbound messages: %w", err)
	}
	defer rows.Close()
	return scanOutbound(rows)
}

// MarkDelivered finalizes a successful delivery.
func (r *OutboxRepo) MarkDelivered(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbound_messages
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, domain.OutboundDelivered, id)
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	return nil
}

// MarkAttemptFailed records a failed attempt. When final is true the
// message leaves the pending pool; otherwise it is rescheduled.
func (r *OutboxRepo) MarkAttemptFailed(ctx context.Context, id, lastError string, nextAttemptAt time.Time, final bool) error {
	status := domain.OutboundPending
	if final {
		status = domain.OutboundFailed
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbound_messages
		SET status = $1, attempts = attempts + 1, last_error = $2,
		    next_attempt_at = $3, updated_at = NOW()
		WHERE id = $4
	`, status, lastError, nextAttemptAt, id)
	if err != nil {
		return fmt.Errorf("mark attempt failed: %w", err)
	}
	return nil
}

// Retry puts a failed message back in the pending pool with a fresh
// attempt budget.
func (r *OutboxRepo) Retry(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE outbound_messages
		SET status = $1, attempts = 0, last_error = '',
		    next_attempt_at = NOW(), updated_at = NOW()
		WHERE id = $2
	`, domain.OutboundPending, id)
	if err != nil {
		return fmt.Errorf("retry outbound message: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrOutboxNotFound
	}
	return nil
}

func scanOutbound(rows *sql.Rows) ([]domain.OutboundMessage, error) {
	out := []domain.OutboundMessage{}
	for rows.Next() {
		var m domain.OutboundMessage
		var headers domain.StringMap
		if err := rows.Scan(&m.ID, &m.Kind, &m.URL, &m.Body, &headers,
			&m.Status, &m.Attempts, &m.LastError, &m.NextAttemptAt,
			&m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan outbound message: %w", err)
		}
		m.Headers = headers
		out = append(out, m)
	}
	return out, rows.Err()
}
