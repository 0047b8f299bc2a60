package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/valle1212i/admin-portal-sub000/internal/pkg/httputil"
	"github.com/valle1212i/admin-portal-sub000/internal/service/ingest"
)

// HandleListSubmissions serves the filtered, sorted, paginated admin list.
func (h *Handlers) HandleListSubmissions(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r)
	q := r.URL.Query()

	filter := ingest.ListFilter{
		Category: q.Get("category"),
		Tenant:   q.Get("tenant"),
		Platform: q.Get("platform"),
		Status:   q.Get("status"),
		From:     parseTimeParam(r, "from", false),
		To:       parseTimeParam(r, "to", true),
		Query:    q.Get("q"),
		Sort:     ingest.ParseSortField(q.Get("sort")),
		SortDesc: q.Get("order") != "asc",
		Limit:    p.Limit,
		Offset:   p.Offset,
	}

	res, err := h.ingest.List(r.Context(), filter)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{
		"page":   p.Page,
		"limit":  p.Limit,
		"total":  res.Total,
		"source": res.Source,
		"items":  res.Items,
	})
}

// HandleGetSubmission serves a single submission by id.
func (h *Handlers) HandleGetSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := h.ingest.Get(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, ingest.ErrInvalidID):
		httputil.BadRequest(w, "invalid submission id")
	case errors.Is(err, ingest.ErrNotFound):
		httputil.NotFound(w, "submission not found")
	case err != nil:
		httputil.InternalError(w, err)
	default:
		httputil.OK(w, sub)
	}
}
