package packages

import "errors"

var (
	// ErrCustomerNotFound means the customer id does not exist.
	ErrCustomerNotFound = errors.New("packages: customer not found")

	// ErrRequestNotFound means the change request does not exist for the
	// given customer.
	ErrRequestNotFound = errors.New("packages: change request not found")

	// ErrUnknownPackage means the requested tier is not sellable.
	ErrUnknownPackage = errors.New("packages: unknown package tier")

	// ErrMissingFields means a required input field is blank.
	ErrMissingFields = errors.New("packages: missing required fields")

	// ErrNotAuthorized means the actor is not on the approver allowlist.
	ErrNotAuthorized = errors.New("packages: actor not authorized to approve")

	// ErrNotPending means the request was already approved or rejected.
	// The transition out of pending is one-way.
	ErrNotPending = errors.New("packages: change request is not pending")
)
