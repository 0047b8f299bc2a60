package domain

import "time"

// PackageTier is a subscription package the portal sells.
type PackageTier string

const (
	PackageBas     PackageTier = "bas"
	PackageVaxande PackageTier = "vaxande"
	PackagePremium PackageTier = "premium"
)

// MaxUsersFor returns the seat count included in a package tier.
func MaxUsersFor(p PackageTier) int {
	switch p {
	case PackageVaxande:
		return 15
	case PackagePremium:
		return 50
	default:
		return 5
	}
}

// KnownPackage reports whether p names a sellable package tier.
func KnownPackage(p string) bool {
	switch PackageTier(p) {
	case PackageBas, PackageVaxande, PackagePremium:
		return true
	}
	return false
}

// Customer is the admin-side view of a portal customer.
type Customer struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Package   PackageTier `json:"package"`
	MaxUsers  int         `json:"maxUsers"`
	Status    string      `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// ChangeRequestStatus is the decision state of a package change request.
type ChangeRequestStatus string

const (
	ChangePending  ChangeRequestStatus = "pending"
	ChangeApproved ChangeRequestStatus = "approved"
	ChangeRejected ChangeRequestStatus = "rejected"
)

// EffectiveDate controls when an approved package change takes effect.
type EffectiveDate string

const (
	EffectiveImmediate   EffectiveDate = "immediate"
	EffectiveNextBilling EffectiveDate = "next_billing"
)

// PackageChangeRequest is one entry in a customer's append-only change
// request history. Only status/approvedBy/approvedAt mutate after creation,
// and only once: pending -> approved or pending -> rejected.
type PackageChangeRequest struct {
	ID               string              `json:"id"`
	CustomerID       string              `json:"customerId"`
	RequestedPackage PackageTier         `json:"requestedPackage"`
	RequestedBy      string              `json:"requestedBy"`
	RequestedAt      time.Time           `json:"requestedAt"`
	ApprovedBy       string              `json:"approvedBy,omitempty"`
	ApprovedAt       *time.Time          `json:"approvedAt,omitempty"`
	Status           ChangeRequestStatus `json:"status"`
	EffectiveDate    EffectiveDate       `json:"effectiveDate"`
}
