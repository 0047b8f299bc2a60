package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/valle1212i/admin-portal-sub000/internal/classify"
	"github.com/valle1212i/admin-portal-sub000/internal/domain"
	"github.com/valle1212i/admin-portal-sub000/internal/notify"
	"github.com/valle1212i/admin-portal-sub000/internal/pkg/httputil"
	"github.com/valle1212i/admin-portal-sub000/internal/pkg/logger"
	"github.com/valle1212i/admin-portal-sub000/internal/service/cases"
	"github.com/valle1212i/admin-portal-sub000/internal/service/ingest"
)

// ingestResponse is the acknowledgment for non-silent categories.
type ingestResponse struct {
	Success  bool   `json:"success"`
	ID       string `json:"id,omitempty"`
	Category string `json:"category,omitempty"`
}

// HandleIngest is the portal webhook entry point. The pipeline is strict:
// signature before anything else, rate limit before parsing, validation
// before any write. Failures return the standard error envelope with no
// internal detail.
func (h *Handlers) HandleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.ingestCfg.MaxBodyBytes))
	if err != nil {
		httputil.Error(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	if !h.verifier.Verify(body, r.Header.Get("x-signature")) {
		// Never say which part of the check failed.
		httputil.Unauthorized(w, "invalid signature")
		return
	}

	rateKey := r.Header.Get("x-tenant-id")
	if rateKey == "" {
		rateKey = r.RemoteAddr
	}
	if h.limiter != nil && !h.limiter.Allow(r.Context(), rateKey) {
		httputil.TooManyRequests(w, "rate limit exceeded")
		return
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		httputil.BadRequest(w, "invalid JSON payload")
		return
	}

	key, _ := payload["idempotencyKey"].(string)
	if key == "" {
		httputil.BadRequest(w, "idempotencyKey is required")
		return
	}

	hint := classify.Hint{
		Type:   r.Header.Get("x-submission-type"),
		Tenant: r.Header.Get("x-tenant-id"),
	}
	result := classify.Classify(payload, hint)

	// Claim the key before any side effect. Of two concurrent deliveries
	// exactly one wins the claim; the loser replays the recorded response
	// or, while the winner is still processing, gets a conflict.
	claimed, err := h.deliveries.Record(r.Context(), &domain.WebhookDelivery{
		IdempotencyKey: key,
		Category:       result.Category,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if !claimed {
		prior, err := h.deliveries.Find(r.Context(), key)
		if err != nil {
			httputil.InternalError(w, err)
			return
		}
		if prior != nil && prior.ResponseStatus != 0 {
			h.replay(w, prior)
			return
		}
		httputil.Conflict(w, "delivery already in progress")
		return
	}

	switch result.Category {
	case domain.CategoryCase:
		h.ingestCase(w, r, key, payload)
	case domain.CategoryCaseResponse:
		h.ingestCaseResponse(w, r, key, payload)
	default:
		h.ingestSubmission(w, r, key, result)
	}
}

func (h *Handlers) ingestSubmission(w http.ResponseWriter, r *http.Request, key string, result classify.Result) {
	sub, _, err := h.ingest.Ingest(r.Context(), key, result)
	if err != nil {
		if errors.Is(err, ingest.ErrMissingKey) {
			h.rejectIngest(w, r, key, http.StatusBadRequest, "idempotencyKey is required")
			return
		}
		h.failIngest(w, r, key, err)
		return
	}

	// Ads acknowledge silently; the other categories echo id and category.
	if sub.Category == domain.CategoryAds {
		h.record(r, key, http.StatusNoContent, "")
		httputil.NoContent(w)
		return
	}
	h.respondAndRecord(w, r, key, http.StatusOK, ingestResponse{
		Success: true, ID: sub.ID, Category: string(sub.Category),
	})
}

// ingestCasePayload is the case-creation shape; fields may arrive nested
// under "case" or at the top level.
type ingestCasePayload struct {
	SessionID   string             `json:"sessionId"`
	CustomerID  string             `json:"customerId"`
	Topic       string             `json:"topic"`
	Description string             `json:"description"`
	Status      string             `json:"status"`
	Messages    []cases.RawMessage `json:"messages"`
}

func decodeSubPayload(payload map[string]interface{}, key string, dst interface{}) error {
	src := payload[key]
	if src == nil {
		src = payload
	}
	raw, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func (h *Handlers) ingestCase(w http.ResponseWriter, r *http.Request, key string, payload map[string]interface{}) {
	var in ingestCasePayload
	if err := decodeSubPayload(payload, "case", &in); err != nil {
		h.rejectIngest(w, r, key, http.StatusBadRequest, "invalid case payload")
		return
	}
	if in.SessionID == "" {
		in.SessionID, _ = payload["sessionId"].(string)
	}

	// On a duplicate session the service returns the existing case, so
	// the acknowledged id always resolves.
	c, created, err := h.cases.Create(r.Context(), cases.CreateInput{
		SessionID:   in.SessionID,
		CustomerID:  in.CustomerID,
		Topic:       in.Topic,
		Description: in.Description,
		Status:      in.Status,
		Messages:    in.Messages,
	})
	if err != nil {
		if errors.Is(err, cases.ErrMissingFields) {
			h.rejectIngest(w, r, key, http.StatusBadRequest, "sessionId, customerId and topic are required")
			return
		}
		h.failIngest(w, r, key, err)
		return
	}

	if created && len(h.notifyEmails) > 0 {
		// Notification rides the outbox; a failure never fails ingestion.
		if msg, err := notify.NewCaseNotification(h.notifyEmails, c); err == nil {
			if err := h.outbox.Enqueue(r.Context(), msg); err != nil {
				logger.Warn("ingest: failed to queue case notification", "caseId", c.ID, "error", err)
			}
		}
	}

	h.respondAndRecord(w, r, key, http.StatusOK, ingestResponse{
		Success: true, ID: c.ID, Category: string(domain.CategoryCase),
	})
}

// ingestResponsePayload is the case_response shape.
type ingestResponsePayload struct {
	CaseID      string `json:"caseId"`
	Message     string `json:"message"`
	SenderName  string `json:"senderName"`
	SenderEmail string `json:"senderEmail"`
}

func (h *Handlers) ingestCaseResponse(w http.ResponseWriter, r *http.Request, key string, payload map[string]interface{}) {
	var in ingestResponsePayload
	if err := decodeSubPayload(payload, "response", &in); err != nil {
		h.rejectIngest(w, r, key, http.StatusBadRequest, "invalid case response payload")
		return
	}
	if in.CaseID == "" {
		h.rejectIngest(w, r, key, http.StatusBadRequest, "caseId is required")
		return
	}

	_, err := h.cases.Append(r.Context(), in.CaseID, cases.RawMessage{
		Message:     in.Message,
		SenderName:  in.SenderName,
		SenderEmail: in.SenderEmail,
	})
	switch {
	case errors.Is(err, cases.ErrBlankMessage):
		h.rejectIngest(w, r, key, http.StatusBadRequest, "message must not be blank")
		return
	case errors.Is(err, cases.ErrNotFound):
		h.rejectIngest(w, r, key, http.StatusNotFound, "case not found")
		return
	case err != nil:
		h.failIngest(w, r, key, err)
		return
	}

	h.respondAndRecord(w, r, key, http.StatusOK, ingestResponse{
		Success: true, ID: in.CaseID, Category: string(domain.CategoryCaseResponse),
	})
}

// respondAndRecord writes the success response and fills it in on the
// claimed key so a retried delivery replays this exact response.
func (h *Handlers) respondAndRecord(w http.ResponseWriter, r *http.Request, key string, status int, body ingestResponse) {
	raw, err := json.Marshal(body)
	if err != nil {
		h.failIngest(w, r, key, err)
		return
	}
	h.record(r, key, status, string(raw))

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(raw)
}

func (h *Handlers) record(r *http.Request, key string, status int, body string) {
	if err := h.deliveries.SetResponse(r.Context(), key, status, body); err != nil {
		logger.Warn("ingest: failed to record delivery response", "key", key, "error", err)
	}
}

// rejectIngest answers a validation failure and releases the claim so the
// sender can retry the key with a corrected payload.
func (h *Handlers) rejectIngest(w http.ResponseWriter, r *http.Request, key string, status int, msg string) {
	h.releaseClaim(r, key)
	httputil.Error(w, status, msg)
}

func (h *Handlers) failIngest(w http.ResponseWriter, r *http.Request, key string, err error) {
	h.releaseClaim(r, key)
	httputil.InternalError(w, err)
}

func (h *Handlers) releaseClaim(r *http.Request, key string) {
	if err := h.deliveries.Release(r.Context(), key); err != nil {
		logger.Warn("ingest: failed to release delivery claim", "key", key, "error", err)
	}
}

// replay answers a duplicate delivery with the recorded response.
func (h *Handlers) replay(w http.ResponseWriter, prior *domain.WebhookDelivery) {
	logger.Debug("ingest: replaying recorded delivery", "key", prior.IdempotencyKey)
	if prior.ResponseStatus == http.StatusNoContent || prior.ResponseBody == "" {
		w.WriteHeader(prior.ResponseStatus)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(prior.ResponseStatus)
	io.WriteString(w, prior.ResponseBody)
}
