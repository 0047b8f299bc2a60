package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/valle1212i/admin-portal-sub000/internal/domain"
	"github.com/valle1212i/admin-portal-sub000/internal/pkg/httputil"
	"github.com/valle1212i/admin-portal-sub000/internal/repository/postgres"
)

// HandleListOutbox lists outbound messages for operator inspection,
// defaulting to permanently failed deliveries.
func (h *Handlers) HandleListOutbox(w http.ResponseWriter, r *http.Request) {
	status := domain.OutboundStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = domain.OutboundFailed
	}
	p := ParsePagination(r)

	items, err := h.outbox.ListByStatus(r.Context(), status, p.Limit)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{
		"status": status,
		"items":  items,
	})
}

// HandleRetryOutbox puts a failed delivery back in the pending pool.
func (h *Handlers) HandleRetryOutbox(w http.ResponseWriter, r *http.Request) {
	err := h.outbox.Retry(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, postgres.ErrOutboxNotFound) {
		httputil.NotFound(w, "outbound message not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]bool{"success": true})
}
