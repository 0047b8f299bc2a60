// Package worker runs the background delivery loop that drains the
// outbox: portal syncs and admin emails that must not be lost when their
// synchronous send failed or was deferred.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/valle1212i/admin-portal-sub000/internal/config"
	"github.com/valle1212i/admin-portal-sub000/internal/domain"
	"github.com/valle1212i/admin-portal-sub000/internal/pkg/distlock"
	"github.com/valle1212i/admin-portal-sub000/internal/pkg/logger"
)

// Outbox is the slice of the outbox repository the worker needs.
type Outbox interface {
	DuePending(ctx context.Context, limit int) ([]domain.OutboundMessage, error)
	MarkDelivered(ctx context.Context, id string) error
	MarkAttemptFailed(ctx context.Context, id, lastError string, nextAttemptAt time.Time, final bool) error
}

// PortalPoster delivers signed portal_sync bodies.
type PortalPoster interface {
	Post(ctx context.Context, url string, body []byte) error
}

// EmailDeliverer delivers admin_email bodies.
type EmailDeliverer interface {
	SendPayload(ctx context.Context, body string) error
}

const (
	retryBaseDelay = time.Minute
	retryMaxDelay  = time.Hour
)

// OutboxWorker polls for due outbound messages and delivers them.
// Multiple server instances may run the worker; the distributed lock
// elects one drainer per tick.
type OutboxWorker struct {
	outbox Outbox
	portal PortalPoster
	email  EmailDeliverer
	lock   distlock.DistLock
	cfg    config.OutboxConfig
}

// NewOutboxWorker creates an outbox worker. email may be nil when SES is
// not configured; admin_email records then stay pending until it is.
func NewOutboxWorker(outbox Outbox, portal PortalPoster, email EmailDeliverer, lock distlock.DistLock, cfg config.OutboxConfig) *OutboxWorker {
	return &OutboxWorker{outbox: outbox, portal: portal, email: email, lock: lock, cfg: cfg}
}

// Run polls until the context is cancelled.
func (w *OutboxWorker) Run(ctx context.Context) {
	interval := time.Duration(w.cfg.PollIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("worker: outbox drain loop started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker: outbox drain loop stopped")
			return
		case <-ticker.C:
			if err := w.DrainOnce(ctx); err != nil {
				logger.Error("worker: drain pass failed", "error", err)
			}
		}
	}
}

// DrainOnce processes one batch of due messages, if this instance wins
// the leader lock. Losing the lock is not an error.
func (w *OutboxWorker) DrainOnce(ctx context.Context) error {
	acquired, err := w.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire outbox lock: %w", err)
	}
	if !acquired {
		return nil
	}
	defer w.lock.Release(ctx)

	msgs, err := w.outbox.DuePending(ctx, w.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("load due messages: %w", err)
	}
	for i := range msgs {
		w.deliver(ctx, &msgs[i])
	}
	return nil
}

func (w *OutboxWorker) deliver(ctx context.Context, m *domain.OutboundMessage) {
	var err error
	switch m.Kind {
	case domain.OutboundPortalSync:
		err = w.portal.Post(ctx, m.URL, []byte(m.Body))
	case domain.OutboundAdminEmail:
		if w.email == nil {
			// Leave the record pending for a deployment with SES.
			return
		}
		err = w.email.SendPayload(ctx, m.Body)
	default:
		// Unknown kinds can never succeed; fail them permanently.
		w.fail(ctx, m, fmt.Sprintf("unknown kind %q", m.Kind), true)
		return
	}

	if err == nil {
		if err := w.outbox.MarkDelivered(ctx, m.ID); err != nil {
			logger.Error("worker: failed to mark delivered", "id", m.ID, "error", err)
		}
		logger.Info("worker: outbound message delivered", "id", m.ID, "kind", string(m.Kind))
		return
	}

	final := m.Attempts+1 >= w.cfg.MaxAttempts
	w.fail(ctx, m, err.Error(), final)
}

func (w *OutboxWorker) fail(ctx context.Context, m *domain.OutboundMessage, lastError string, final bool) {
	next := time.Now().UTC().Add(backoff(m.Attempts + 1))
	if err := w.outbox.MarkAttemptFailed(ctx, m.ID, lastError, next, final); err != nil {
		logger.Error("worker: failed to record attempt", "id", m.ID, "error", err)
		return
	}
	if final {
		logger.Error("worker: outbound message permanently failed",
			"id", m.ID, "kind", string(m.Kind), "attempts", m.Attempts+1, "error", lastError)
	} else {
		logger.Warn("worker: delivery attempt failed, rescheduled",
			"id", m.ID, "kind", string(m.Kind), "attempts", m.Attempts+1, "nextAttempt", next.Format(time.RFC3339))
	}
}

// backoff doubles per attempt from one minute, capped at an hour.
func backoff(attempts int) time.Duration {
	d := retryBaseDelay
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= retryMaxDelay {
			return retryMaxDelay
		}
	}
	return d
}
