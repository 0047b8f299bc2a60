package cases

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/valle1212i/admin-portal-sub000/internal/domain"
)

// RawMessage is one message as it arrives from the portal, before
// normalization.
type RawMessage struct {
	Sender      string `json:"sender"`
	SenderName  string `json:"senderName"`
	SenderEmail string `json:"senderEmail"`
	Message     string `json:"message"`
}

// SanitizeMessages normalizes a raw message batch. For each message the
// sender is lowercased and mapped through the synonym table
// (support→admin, client→customer, ...) and the text is trimmed. Messages
// that end up with blank text or an unrecognized sender are dropped; the
// survivors keep their original relative order. A batch of N may
// legitimately persist fewer than N.
func SanitizeMessages(caseID string, raw []RawMessage, now time.Time) []domain.CaseMessage {
	var out []domain.CaseMessage
	for _, m := range raw {
		sender, ok := domain.NormalizeSender(m.Sender)
		if !ok {
			continue
		}
		text := strings.TrimSpace(m.Message)
		if text == "" {
			continue
		}
		out = append(out, domain.CaseMessage{
			ID:          uuid.New().String(),
			CaseID:      caseID,
			Sender:      sender,
			SenderName:  strings.TrimSpace(m.SenderName),
			SenderEmail: strings.TrimSpace(m.SenderEmail),
			Message:     text,
			CreatedAt:   now,
		})
	}
	return out
}

// ClassifyAssignment derives the audit action from the before/after
// assignee pair.
func ClassifyAssignment(previous, next string) domain.AssignmentAction {
	switch {
	case next == "":
		return domain.ActionUnassigned
	case previous == "":
		return domain.ActionAssigned
	default:
		return domain.ActionReassigned
	}
}
