package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/valle1212i/admin-portal-sub000/internal/domain"
	"github.com/valle1212i/admin-portal-sub000/internal/service/cases"
)

// CaseRepo implements cases.Repository against PostgreSQL.
type CaseRepo struct{ db *sql.DB }

// NewCaseRepo creates a Postgres-backed case repository.
func NewCaseRepo(db *sql.DB) *CaseRepo { return &CaseRepo{db: db} }

func (r *CaseRepo) CreateIfAbsent(ctx context.Context, c *domain.Case, messages []domain.CaseMessage) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("create case: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO cases
			(id, session_id, customer_id, topic, description, status,
			 assigned_admin, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, '', 1, $7, $8)
		ON CONFLICT (session_id) DO NOTHING
	`, c.ID, c.SessionID, c.CustomerID, c.Topic, c.Description, c.Status,
		c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("create case: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create case: %w", err)
	}
	if n == 0 {
		// A case for this session already exists; write nothing.
		return false, nil
	}

	for i := range messages {
		if err := insertMessage(ctx, tx, &messages[i]); err != nil {
			return false, err
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("create case: %w", err)
	}
	return true, nil
}

func insertMessage(ctx context.Context, tx *sql.Tx, m *domain.CaseMessage) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO case_messages
			(id, case_id, sender, sender_name, sender_email, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, m.ID, m.CaseID, m.Sender, m.SenderName, m.SenderEmail, m.Message, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert case message: %w", err)
	}
	return nil
}

const caseColumns = `id, session_id, customer_id, topic, COALESCE(description,''),
	status, COALESCE(assigned_admin,''), version, created_at, updated_at`

func (r *CaseRepo) GetByID(ctx context.Context, id string) (*domain.Case, error) {
	return r.getBy(ctx, "id", id)
}

// GetBySessionID resolves the case holding a session, for acknowledging a
// duplicate creation with the id that actually exists.
func (r *CaseRepo) GetBySessionID(ctx context.Context, sessionID string) (*domain.Case, error) {
	return r.getBy(ctx, "session_id", sessionID)
}

func (r *CaseRepo) getBy(ctx context.Context, column, value string) (*domain.Case, error) {
	c := &domain.Case{}
	err := r.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT %s FROM cases WHERE %s = $1`, caseColumns, column), value).Scan(
		&c.ID, &c.SessionID, &c.CustomerID, &c.Topic, &c.Description,
		&c.Status, &c.AssignedAdmin, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, cases.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get case: %w", err)
	}

	msgs, err := r.loadMessages(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Messages = msgs
	return c, nil
}

func (r *CaseRepo) loadMessages(ctx context.Context, caseID string) ([]domain.CaseMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, case_id, sender, COALESCE(sender_name,''),
		       COALESCE(sender_email,''), message, created_at
		FROM case_messages
		WHERE case_id = $1
		ORDER BY seq
	`, caseID)
	if err != nil {
		return nil, fmt.Errorf("load case messages: %w", err)
	}
	defer rows.Close()

	var out []domain.CaseMessage
	for rows.Next() {
		var m domain.CaseMessage
		if err := rows.Scan(&m.ID, &m.CaseID, &m.Sender, &m.SenderName,
			&m.SenderEmail, &m.Message, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan case message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AppendMessage inserts the message and, when the case is closed, flips it
// back to open in the same transaction. The row lock serializes concurrent
// appends to one case; appends to different cases never contend.
func (r *CaseRepo) AppendMessage(ctx context.Context, caseID string, msg *domain.CaseMessage) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	defer tx.Rollback()

	var status domain.CaseStatus
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM cases WHERE id = $1 FOR UPDATE`, caseID,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return cases.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}

	if err := insertMessage(ctx, tx, msg); err != nil {
		return err
	}

	newStatus := status
	if status == domain.CaseClosed {
		newStatus = domain.CaseOpen
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE cases SET status = $1, version = version + 1, updated_at = $2
		WHERE id = $3
	`, newStatus, msg.CreatedAt, caseID); err != nil {
		return fmt.Errorf("append message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// Assign captures the previous assignee under a row lock so the audit
// event is accurate even when two admins reassign concurrently.
func (r *CaseRepo) Assign(ctx context.Context, caseID, newAdmin, assignedBy string) (*domain.AssignmentEvent, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("assign case: %w", err)
	}
	defer tx.Rollback()

	var previous string
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(assigned_admin,'') FROM cases WHERE id = $1 FOR UPDATE`, caseID,
	).Scan(&previous)
	if err == sql.ErrNoRows {
		return nil, cases.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("assign case: %w", err)
	}

	ev := &domain.AssignmentEvent{
		ID:            uuid.New().String(),
		CaseID:        caseID,
		PreviousAdmin: previous,
		NewAdmin:      newAdmin,
		AssignedBy:    assignedBy,
		Action:        cases.ClassifyAssignment(previous, newAdmin),
		CreatedAt:     time.Now().UTC(),
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE cases SET assigned_admin = $1, updated_at = $2 WHERE id = $3
	`, newAdmin, ev.CreatedAt, caseID); err != nil {
		return nil, fmt.Errorf("assign case: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO case_assignments
			(id, case_id, previous_admin, new_admin, assigned_by, action, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ev.ID, ev.CaseID, ev.PreviousAdmin, ev.NewAdmin, ev.AssignedBy, ev.Action, ev.CreatedAt); err != nil {
		return nil, fmt.Errorf("record assignment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("assign case: %w", err)
	}
	return ev, nil
}

func (r *CaseRepo) AddNote(ctx context.Context, note *domain.InternalNote) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO case_notes (id, case_id, note, created_at)
		SELECT $1, $2, $3, $4 WHERE EXISTS (SELECT 1 FROM cases WHERE id = $2)
	`, note.ID, note.CaseID, note.Note, note.CreatedAt)
	if err != nil {
		return fmt.Errorf("add note: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return cases.ErrNotFound
	}
	return nil
}

func (r *CaseRepo) Close(ctx context.Context, id string) (*domain.Case, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE cases SET status = $1, version = version + 1, updated_at = $2
		WHERE id = $3
	`, domain.CaseClosed, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("close case: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return nil, cases.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *CaseRepo) List(ctx context.Context, f cases.ListFilter) ([]domain.Case, int, error) {
	var conds []string
	var args []interface{}
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add("status = $%d", domain.NormalizeCaseStatus(f.Status))
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at <= $%d", *f.To)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		args = append(args, pattern)
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			`(topic ILIKE $%d ESCAPE '\' OR customer_id ILIKE $%d ESCAPE '\' OR session_id ILIKE $%d ESCAPE '\')`,
			n, n, n))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cases`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count cases: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	q := fmt.Sprintf(
		`SELECT %s FROM cases%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		caseColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	out := []domain.Case{}
	for rows.Next() {
		var c domain.Case
		if err := rows.Scan(&c.ID, &c.SessionID, &c.CustomerID, &c.Topic,
			&c.Description, &c.Status, &c.AssignedAdmin, &c.Version,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan case: %w", err)
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}
