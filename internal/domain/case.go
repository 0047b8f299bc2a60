package domain

import (
	"strings"
	"time"
)

// CaseStatus is the lifecycle state of a support case.
// "open" is a legacy alias kept for read compatibility; it is treated as
// active alongside new/in_progress.
type CaseStatus string

const (
	CaseNew        CaseStatus = "new"
	CaseInProgress CaseStatus = "in_progress"
	CaseWaiting    CaseStatus = "waiting"
	CaseOnHold     CaseStatus = "on_hold"
	CaseClosed     CaseStatus = "closed"
	CaseOpen       CaseStatus = "open"
)

// caseStatusSynonyms normalizes source statuses that arrive in Swedish,
// English, or with odd casing from the customer portal.
var caseStatusSynonyms = map[string]CaseStatus{
	"new":         CaseNew,
	"ny":          CaseNew,
	"nytt":        CaseNew,
	"in_progress": CaseInProgress,
	"pagaende":    CaseInProgress,
	"pågående":    CaseInProgress,
	"pending":     CaseInProgress,
	"waiting":     CaseWaiting,
	"vantar":      CaseWaiting,
	"väntar":      CaseWaiting,
	"on_hold":     CaseOnHold,
	"pausad":      CaseOnHold,
	"paused":      CaseOnHold,
	"closed":      CaseClosed,
	"stangd":      CaseClosed,
	"stängd":      CaseClosed,
	"avslutad":    CaseClosed,
	"resolved":    CaseClosed,
	"open":        CaseOpen,
	"oppen":       CaseOpen,
	"öppen":       CaseOpen,
}

// NormalizeCaseStatus maps a source status onto the canonical enum.
// Unknown values default to new rather than failing the ingestion.
func NormalizeCaseStatus(raw string) CaseStatus {
	if s, ok := caseStatusSynonyms[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s
	}
	return CaseNew
}

// Sender identifies who authored a case message.
type Sender string

const (
	SenderAdmin    Sender = "admin"
	SenderCustomer Sender = "customer"
	SenderSystem   Sender = "system"
)

// senderSynonyms maps portal-side role names onto the canonical senders.
var senderSynonyms = map[string]Sender{
	"admin":     SenderAdmin,
	"support":   SenderAdmin,
	"agent":     SenderAdmin,
	"customer":  SenderCustomer,
	"client":    SenderCustomer,
	"kund":      SenderCustomer,
	"user":      SenderCustomer,
	"system":    SenderSystem,
	"automated": SenderSystem,
}

// NormalizeSender lowercases and maps known role synonyms. The second
// return value is false when the sender is unrecognized and the message
// should be dropped.
func NormalizeSender(raw string) (Sender, bool) {
	s, ok := senderSynonyms[strings.ToLower(strings.TrimSpace(raw))]
	return s, ok
}

// CaseMessage is one entry in a case's append-only conversation.
type CaseMessage struct {
	ID          string    `json:"id"`
	CaseID      string    `json:"caseId"`
	Sender      Sender    `json:"sender"`
	SenderName  string    `json:"senderName,omitempty"`
	SenderEmail string    `json:"senderEmail,omitempty"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"timestamp"`
}

// AssignmentAction classifies an assignment audit event.
type AssignmentAction string

const (
	ActionAssigned   AssignmentAction = "assigned"
	ActionReassigned AssignmentAction = "reassigned"
	ActionUnassigned AssignmentAction = "unassigned"
)

// AssignmentEvent is one entry in the append-only assignment audit trail.
type AssignmentEvent struct {
	ID            string           `json:"id"`
	CaseID        string           `json:"caseId"`
	PreviousAdmin string           `json:"previousAdmin,omitempty"`
	NewAdmin      string           `json:"newAdmin,omitempty"`
	AssignedBy    string           `json:"assignedBy"`
	Action        AssignmentAction `json:"action"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// InternalNote is an admin-only annotation. Never visible to the customer
// and never affects case status.
type InternalNote struct {
	ID        string    `json:"id"`
	CaseID    string    `json:"caseId"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"createdAt"`
}

// Case is the mutable conversation aggregate: support tickets, advisory
// sessions, and AI-studio feedback threads all land here.
type Case struct {
	ID            string        `json:"id"`
	SessionID     string        `json:"sessionId"`
	CustomerID    string        `json:"customerId"`
	Topic         string        `json:"topic"`
	Description   string        `json:"description,omitempty"`
	Status        CaseStatus    `json:"status"`
	AssignedAdmin string        `json:"assignedAdmin,omitempty"`
	Version       int           `json:"-"`
	Messages      []CaseMessage `json:"messages,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}
