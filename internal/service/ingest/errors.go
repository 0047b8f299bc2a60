package ingest

import "errors"

// Sentinel errors for the ingestion service layer.
var (
	ErrNotFound   = errors.New("submission not found")
	ErrMissingKey = errors.New("idempotencyKey is required")
	ErrInvalidID  = errors.New("invalid submission id")
)
