package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/valle1212i/admin-portal-sub000/internal/domain"
	"github.com/valle1212i/admin-portal-sub000/internal/pkg/httputil"
	"github.com/valle1212i/admin-portal-sub000/internal/service/packages"
)

// HandleChangePackage requests a package change for a customer. The
// response carries syncStatus so a failed portal push is visible to the
// admin even though the local change committed.
func (h *Handlers) HandleChangePackage(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Package       string `json:"package"`
		EffectiveDate string `json:"effectiveDate"`
		RequestedBy   string `json:"requestedBy"`
	}
	if !httputil.Decode(w, r, &in) {
		return
	}

	res, err := h.packages.RequestChange(r.Context(), packages.ChangeInput{
		CustomerID:    chi.URLParam(r, "id"),
		Package:       in.Package,
		EffectiveDate: in.EffectiveDate,
		RequestedBy:   h.actor(r, in.RequestedBy),
	})
	switch {
	case errors.Is(err, packages.ErrUnknownPackage):
		httputil.BadRequest(w, "unknown package tier")
	case errors.Is(err, packages.ErrMissingFields):
		httputil.BadRequest(w, "requestedBy is required")
	case errors.Is(err, packages.ErrCustomerNotFound):
		httputil.NotFound(w, "customer not found")
	case err != nil:
		httputil.InternalError(w, err)
	default:
		httputil.OK(w, res)
	}
}

// HandleApproveChange approves a pending package change request.
func (h *Handlers) HandleApproveChange(w http.ResponseWriter, r *http.Request) {
	h.resolveChange(w, r, h.packages.Approve)
}

// HandleRejectChange rejects a pending package change request.
func (h *Handlers) HandleRejectChange(w http.ResponseWriter, r *http.Request) {
	h.resolveChange(w, r, h.packages.Reject)
}

func (h *Handlers) resolveChange(w http.ResponseWriter, r *http.Request,
	resolve func(ctx context.Context, customerID, requestID, actor string) (*domain.PackageChangeRequest, error)) {

	var in struct {
		Actor string `json:"actor"`
	}
	// A body is optional; the session normally identifies the actor.
	_ = json.NewDecoder(r.Body).Decode(&in)

	req, err := resolve(r.Context(), chi.URLParam(r, "customerId"), chi.URLParam(r, "requestId"), h.actor(r, in.Actor))
	switch {
	case errors.Is(err, packages.ErrNotAuthorized):
		httputil.Forbidden(w, "not authorized to approve package changes")
	case errors.Is(err, packages.ErrRequestNotFound):
		httputil.NotFound(w, "change request not found")
	case errors.Is(err, packages.ErrNotPending):
		httputil.Conflict(w, "change request already resolved")
	case err != nil:
		httputil.InternalError(w, err)
	default:
		httputil.OK(w, req)
	}
}
