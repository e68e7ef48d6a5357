package billing

import (
	"time"

	"github.com/google/uuid"
)

// Subscription is the authoritative record of a customer's plan. Status
// transitions are written only by the webhook reconciler; checkout-side code
// reads and optimistically reflects them, never writes.
type Subscription struct {
	ID                 uuid.UUID
	CustomerID         uuid.UUID
	PlanID             string
	Status             Status
	Installments       int
	PaymentType        PaymentType
	CurrentPeriodEnd   *time.Time
	Provider           string
	ProviderCustomerID string
	ProviderSubID      string
	ContractAccepted   bool
	ContractAcceptedAt *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
	CanceledAt         *time.Time
}

// IsActive reports whether the subscription grants access.
func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive || s.Status == StatusTrialing
}

// IsPending reports whether payment confirmation is still outstanding.
func (s *Subscription) IsPending() bool {
	return s.Status == StatusPending
}

// Customer is the local mirror of a portal customer, created or reused when
// a checkout reaches the payment step. The password hash is set only when
// the customer registered a new account during checkout.
type Customer struct {
	ID           uuid.UUID
	Email        string
	Phone        string
	FullName     string
	TaxID        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
