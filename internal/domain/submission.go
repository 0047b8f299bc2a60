package domain

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Category is the classified business type of an ingested submission.
type Category string

const (
	CategoryAds          Category = "ads"
	CategoryAIStudio     Category = "ai-studio"
	CategoryRadgivning   Category = "radgivning"
	CategoryCase         Category = "case"
	CategoryCaseResponse Category = "case_response"
)

// SubmissionStatus is the review state of a stored submission.
type SubmissionStatus string

const (
	SubmissionSubmitted     SubmissionStatus = "submitted"
	SubmissionInReview      SubmissionStatus = "in_review"
	SubmissionApproved      SubmissionStatus = "approved"
	SubmissionRejected      SubmissionStatus = "rejected"
	SubmissionNeedsMoreInfo SubmissionStatus = "needs_more_info"
)

// Platform is the advertising platform a submission targets, if any.
type Platform string

const (
	PlatformGoogle   Platform = "google"
	PlatformMeta     Platform = "meta"
	PlatformTikTok   Platform = "tiktok"
	PlatformLinkedIn Platform = "linkedin"
)

// KnownPlatform reports whether p is one of the recognized platforms.
func KnownPlatform(p string) bool {
	switch Platform(p) {
	case PlatformGoogle, PlatformMeta, PlatformTikTok, PlatformLinkedIn:
		return true
	}
	return false
}

// AIStudioData carries the ai-studio specific sub-document.
type AIStudioData struct {
	GeneratedImages []string `json:"generatedImages,omitempty"`
	GeneratedPDFs   []string `json:"generatedPDFs,omitempty"`
	GenerationType  string   `json:"generationType,omitempty"`
	Prompt          string   `json:"prompt,omitempty"`
}

// QA is a single advisory question/answer pair, kept in submission order.
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// RadgivningData carries the advisory-session specific sub-document.
type RadgivningData struct {
	Questions []QA   `json:"questions,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Priority  string `json:"priority,omitempty"`
}

// Submission is the generic record for one-shot ingested payloads
// (ads, ai-studio, radgivning). The idempotency key is the dedup key:
// at most one row exists per key, first write wins.
type Submission struct {
	ID             string           `json:"id"`
	IdempotencyKey string           `json:"idempotencyKey"`
	Category       Category         `json:"category"`
	TenantID       string           `json:"tenantId,omitempty"`
	Platform       string           `json:"platform,omitempty"`
	UserEmail      string           `json:"userEmail,omitempty"`
	UserID         string           `json:"userId,omitempty"`
	Status         SubmissionStatus `json:"status"`
	Answers        StringMap        `json:"answers,omitempty"`
	AIStudio       *AIStudioData    `json:"aiStudioData,omitempty"`
	Radgivning     *RadgivningData  `json:"radgivningData,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// Value/Scan let the sub-documents ride through jsonb columns.

func (d *AIStudioData) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

func (d *AIStudioData) Scan(value interface{}) error {
	return scanJSON(value, d)
}

func (d *RadgivningData) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

func (d *RadgivningData) Scan(value interface{}) error {
	return scanJSON(value, d)
}

func scanJSON(value, dst interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	}
	return nil
}
