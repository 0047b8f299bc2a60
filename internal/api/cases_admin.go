package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/valle1212i/admin-portal-sub000/internal/pkg/httputil"
	"github.com/valle1212i/admin-portal-sub000/internal/service/cases"
)

// HandleListCases serves the filtered case list.
func (h *Handlers) HandleListCases(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r)
	q := r.URL.Query()

	items, total, err := h.cases.List(r.Context(), cases.ListFilter{
		Status: q.Get("status"),
		Query:  q.Get("q"),
		From:   parseTimeParam(r, "from", false),
		To:     parseTimeParam(r, "to", true),
		Limit:  p.Limit,
		Offset: p.Offset,
	})
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{
		"page":  p.Page,
		"limit": p.Limit,
		"total": total,
		"items": items,
	})
}

// HandleGetCase serves one case with its message transcript.
func (h *Handlers) HandleGetCase(w http.ResponseWriter, r *http.Request) {
	c, err := h.cases.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, cases.ErrNotFound) {
		httputil.NotFound(w, "case not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, c)
}

// HandleAssignCase sets or clears the assigned admin.
func (h *Handlers) HandleAssignCase(w http.ResponseWriter, r *http.Request) {
	var in struct {
		AdminID    string `json:"adminId"`
		AssignedBy string `json:"assignedBy"`
	}
	if !httputil.Decode(w, r, &in) {
		return
	}

	ev, err := h.cases.Assign(r.Context(), chi.URLParam(r, "id"), in.AdminID, h.actor(r, in.AssignedBy))
	switch {
	case errors.Is(err, cases.ErrMissingAdmin):
		httputil.BadRequest(w, "assignedBy is required")
	case errors.Is(err, cases.ErrNotFound):
		httputil.NotFound(w, "case not found")
	case err != nil:
		httputil.InternalError(w, err)
	default:
		httputil.OK(w, ev)
	}
}

// HandleAddNote appends an internal note to a case.
func (h *Handlers) HandleAddNote(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Note string `json:"note"`
	}
	if !httputil.Decode(w, r, &in) {
		return
	}

	note, err := h.cases.AddNote(r.Context(), chi.URLParam(r, "id"), in.Note)
	switch {
	case errors.Is(err, cases.ErrBlankNote):
		httputil.BadRequest(w, "note must not be blank")
	case errors.Is(err, cases.ErrNotFound):
		httputil.NotFound(w, "case not found")
	case err != nil:
		httputil.InternalError(w, err)
	default:
		httputil.Created(w, note)
	}
}

// HandleCloseCase closes a case and archives its transcript.
func (h *Handlers) HandleCloseCase(w http.ResponseWriter, r *http.Request) {
	c, err := h.cases.Close(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, cases.ErrNotFound) {
		httputil.NotFound(w, "case not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, c)
}
