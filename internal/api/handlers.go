package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/valle1212i/admin-portal-sub000/internal/auth"
	"github.com/valle1212i/admin-portal-sub000/internal/config"
	"github.com/valle1212i/admin-portal-sub000/internal/domain"
	"github.com/valle1212i/admin-portal-sub000/internal/pkg/httputil"
	"github.com/valle1212i/admin-portal-sub000/internal/pkg/ratelimit"
	"github.com/valle1212i/admin-portal-sub000/internal/service/cases"
	"github.com/valle1212i/admin-portal-sub000/internal/service/ingest"
	"github.com/valle1212i/admin-portal-sub000/internal/service/packages"
	"github.com/valle1212i/admin-portal-sub000/internal/signature"
)

// DeliveryLog tracks webhook deliveries for replay. Record claims a key
// before processing (exactly one concurrent delivery wins), SetResponse
// fills in the response duplicates replay, and Release drops a claim whose
// processing failed so a retry can run again.
type DeliveryLog interface {
	Find(ctx context.Context, key string) (*domain.WebhookDelivery, error)
	Record(ctx context.Context, d *domain.WebhookDelivery) (bool, error)
	SetResponse(ctx context.Context, key string, status int, body string) error
	Release(ctx context.Context, key string) error
}

// OutboxStore is the slice of the outbox the API needs.
type OutboxStore interface {
	Enqueue(ctx context.Context, msg *domain.OutboundMessage) error
	ListByStatus(ctx context.Context, status domain.OutboundStatus, limit int) ([]domain.OutboundMessage, error)
	Retry(ctx context.Context, id string) error
}

// Handlers carries the wired services for all HTTP endpoints.
type Handlers struct {
	ingestCfg  config.IngestConfig
	verifier   *signature.Verifier
	limiter    *ratelimit.Limiter
	ingest     *ingest.Service
	cases      *cases.Service
	packages   *packages.Service
	outbox     OutboxStore
	deliveries DeliveryLog
	auth       *auth.Manager
	// notifyEmails receive a notification when a new case arrives.
	notifyEmails []string

	db    *sql.DB
	redis *redis.Client
}

// NewHandlers wires the endpoint handlers.
func NewHandlers(
	ingestCfg config.IngestConfig,
	verifier *signature.Verifier,
	limiter *ratelimit.Limiter,
	ingestSvc *ingest.Service,
	caseSvc *cases.Service,
	packageSvc *packages.Service,
	outbox OutboxStore,
	deliveries DeliveryLog,
	authManager *auth.Manager,
	notifyEmails []string,
	db *sql.DB,
	redisClient *redis.Client,
) *Handlers {
	return &Handlers{
		ingestCfg:    ingestCfg,
		verifier:     verifier,
		limiter:      limiter,
		ingest:       ingestSvc,
		cases:        caseSvc,
		packages:     packageSvc,
		outbox:       outbox,
		deliveries:   deliveries,
		auth:         authManager,
		notifyEmails: notifyEmails,
		db:           db,
		redis:        redisClient,
	}
}

// actor returns who is performing an admin action: the session email when
// authenticated, otherwise the explicit value from the request body (dev
// mode and tests).
func (h *Handlers) actor(r *http.Request, bodyActor string) string {
	if h.auth != nil {
		if email := h.auth.AdminEmail(r); email != "" {
			return email
		}
	}
	return bodyActor
}

// HandleHealth reports liveness plus dependency status.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	dbStatus := "ok"
	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			dbStatus = "unreachable"
			status = http.StatusServiceUnavailable
		}
	} else {
		dbStatus = "not configured"
	}

	redisStatus := "disabled"
	if h.redis != nil {
		redisStatus = "ok"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			// Redis is best-effort (rate limiting, locks); degraded, not down.
			redisStatus = "unreachable"
		}
	}

	httputil.JSON(w, status, map[string]string{
		"status": map[bool]string{true: "ok", false: "degraded"}[status == http.StatusOK],
		"db":     dbStatus,
		"redis":  redisStatus,
	})
}
