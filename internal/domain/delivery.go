package domain

import "time"

// WebhookDelivery is the audit record for one accepted webhook delivery,
// keyed by idempotency key. On a duplicate delivery the stored response is
// replayed instead of re-running the ingestion.
type WebhookDelivery struct {
	IdempotencyKey string    `json:"idempotencyKey"`
	Category       Category  `json:"category"`
	ResponseStatus int       `json:"responseStatus"`
	ResponseBody   string    `json:"responseBody"`
	CreatedAt      time.Time `json:"createdAt"`
}
