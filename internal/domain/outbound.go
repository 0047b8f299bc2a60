package domain

import "time"

// OutboundKind selects the delivery mechanism for an outbound message.
type OutboundKind string

const (
	OutboundPortalSync OutboundKind = "portal_sync"
	OutboundAdminEmail OutboundKind = "admin_email"
)

// OutboundStatus is the delivery state of an outbound message.
type OutboundStatus string

const (
	OutboundPending   OutboundStatus = "pending"
	OutboundDelivered OutboundStatus = "delivered"
	OutboundFailed    OutboundStatus = "failed"
)

// OutboundMessage is a durable at-least-once delivery obligation to an
// external system. Rows are never auto-deleted: permanently failed
// deliveries stay visible so an operator can inspect and retry them.
type OutboundMessage struct {
	ID            string            `json:"id"`
	Kind          OutboundKind      `json:"kind"`
	URL           string            `json:"url,omitempty"`
	Body          string            `json:"body"`
	Headers       map[string]string `json:"headers,omitempty"`
	Status        OutboundStatus    `json:"status"`
	Attempts      int               `json:"attempts"`
	LastError     string            `json:"lastError,omitempty"`
	NextAttemptAt time.Time         `json:"nextAttemptAt"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}
