// Package postgres implements the service repositories against PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/valle1212i/admin-portal-sub000/internal/domain"
	"github.com/valle1212i/admin-portal-sub000/internal/pkg/logger"
	"github.com/valle1212i/admin-portal-sub000/internal/service/ingest"
)

// submissionTables are the storage locations submissions may live in,
// probed in order. Older deployments wrote to portal_submissions or the
// legacy annonser table.
var submissionTables = []string{"submissions", "portal_submissions", "annonser"}

const defaultSubmissionTable = "submissions"

// SubmissionRepo implements ingest.Repository against PostgreSQL.
type SubmissionRepo struct {
	db     *sql.DB
	table  string
	source string
}

// NewSubmissionRepo creates a Postgres-backed submission repository,
// binding to the first candidate table that exists. If none exists it
// falls back to the default and flags the source so a misconfigured
// deployment is visible in list responses.
func NewSubmissionRepo(ctx context.Context, db *sql.DB) (*SubmissionRepo, error) {
	for _, table := range submissionTables {
		var exists bool
		if err := db.QueryRowContext(ctx,
			`SELECT to_regclass($1) IS NOT NULL`, table,
		).Scan(&exists); err != nil {
			return nil, fmt.Errorf("probe table %s: %w", table, err)
		}
		if exists {
			return &SubmissionRepo{db: db, table: table, source: table}, nil
		}
	}
	logger.Warn("postgres: no submission table found, using fallback", "table", defaultSubmissionTable)
	return &SubmissionRepo{db: db, table: defaultSubmissionTable, source: "fallback:" + defaultSubmissionTable}, nil
}

// Source names the table serving queries, marked when it is the fallback.
func (r *SubmissionRepo) Source() string { return r.source }

func (r *SubmissionRepo) InsertIfAbsent(ctx context.Context, sub *domain.Submission) (bool, error) {
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s
			(id, idempotency_key, category, tenant_id, platform, user_email,
			 user_id, status, answers, ai_studio, radgivning, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, r.table),
		sub.ID, sub.IdempotencyKey, sub.Category, sub.TenantID, sub.Platform,
		sub.UserEmail, sub.UserID, sub.Status, sub.Answers, sub.AIStudio,
		sub.Radgivning, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("insert submission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert submission: %w", err)
	}
	return n == 1, nil
}

const submissionColumns = `id, idempotency_key, category, COALESCE(tenant_id,''),
	COALESCE(platform,''), COALESCE(user_email,''), COALESCE(user_id,''),
	status, answers, ai_studio, radgivning, created_at, updated_at`

func (r *SubmissionRepo) GetByID(ctx context.Context, id string) (*domain.Submission, error) {
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE id = $1`, submissionColumns, r.table), id)
	sub, err := scanSubmission(row)
	if err == sql.ErrNoRows {
		return nil, ingest.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

func (r *SubmissionRepo) List(ctx context.Context, f ingest.ListFilter) (*ingest.ListResult, error) {
	where, args := r.buildWhere(f)

	var total int
	countQ := fmt.Sprintf(`SELECT COUNT(*) FROM %s%s`, r.table, where)
	if err := r.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count submissions: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	q := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		submissionColumns, r.table, where, orderClause(f.Sort, f.SortDesc),
		len(args)+1, len(args)+2)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	items := []domain.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		items = append(items, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return &ingest.ListResult{Items: items, Total: total, Source: r.source}, nil
}

func (r *SubmissionRepo) buildWhere(f ingest.ListFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.Tenant != "" {
		add("tenant_id = $%d", f.Tenant)
	}
	if f.Platform != "" {
		add("platform = $%d", f.Platform)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
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
		var terms []string
		for _, col := range searchColumns {
			terms = append(terms, fmt.Sprintf(`%s ILIKE $%d ESCAPE '\'`, col, n))
		}
		conds = append(conds, "("+strings.Join(terms, " OR ")+")")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// searchColumns are the fields free-text search covers: the identity
// fields plus the jsonb documents, so answer text, prompts and advisory
// questions are all findable.
var searchColumns = []string{
	"user_email", "tenant_id", "user_id",
	"answers::text", "ai_studio::text", "radgivning::text",
}

// sortColumns maps the whitelisted sort fields onto columns. Client input
// never reaches the SQL text directly.
var sortColumns = map[ingest.SortField]string{
	ingest.SortCreatedAt: "created_at",
	ingest.SortCategory:  "category",
	ingest.SortTenant:    "tenant_id",
	ingest.SortUserEmail: "user_email",
}

// orderClause appends id as a tie-break so pagination over equal sort
// values stays stable.
func orderClause(sort ingest.SortField, desc bool) string {
	col, ok := sortColumns[sort]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s, id %s", col, dir, dir)
}

// escapeLike neutralizes LIKE metacharacters in user-supplied search text.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubmission(row rowScanner) (*domain.Submission, error) {
	var sub domain.Submission
	var aiRaw, radRaw []byte
	if err := row.Scan(
		&sub.ID, &sub.IdempotencyKey, &sub.Category, &sub.TenantID,
		&sub.Platform, &sub.UserEmail, &sub.UserID, &sub.Status,
		&sub.Answers, &aiRaw, &radRaw, &sub.CreatedAt, &sub.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(aiRaw) > 0 {
		sub.AIStudio = &domain.AIStudioData{}
		if err := json.Unmarshal(aiRaw, sub.AIStudio); err != nil {
			return nil, fmt.Errorf("decode ai_studio: %w", err)
		}
	}
	if len(radRaw) > 0 {
		sub.Radgivning = &domain.RadgivningData{}
		if err := json.Unmarshal(radRaw, sub.Radgivning); err != nil {
			return nil, fmt.Errorf("decode radgivning: %w", err)
		}
	}
	return &sub, nil
}
