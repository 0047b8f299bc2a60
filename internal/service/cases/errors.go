package cases

import "errors"

// Sentinel errors for the case service layer.
var (
	ErrNotFound      = errors.New("case not found")
	ErrMissingFields = errors.New("sessionId, customerId and topic are required")
	ErrBlankMessage  = errors.New("message must not be blank")
	ErrBlankNote     = errors.New("note must not be blank")
	ErrMissingAdmin  = errors.New("adminId is required")
)
