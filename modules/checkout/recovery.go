package checkout

import (
	"context"
	"time"
)

const (
	// RecoverySchemaVersion guards stored blobs against schema drift.
	// A loaded blob with another version is discarded, not migrated.
	RecoverySchemaVersion = 1

	// recoveryWindow bounds how long a stored checkout attempt can be
	// rehydrated at all.
	recoveryWindow = 24 * time.Hour

	// resumeLinkWindow bounds how long a stored payment link is offered
	// for resumption. Provider checkout sessions go stale much faster
	// than the form data around them.
	resumeLinkWindow = 10 * time.Minute
)

// PaymentType is the customer's chosen payment arrangement.
type PaymentType string

const (
	PaymentCredit     PaymentType = "credit"
	PaymentCreditCash PaymentType = "credit_cash"
	PaymentPix        PaymentType = "pix"
	PaymentBoleto     PaymentType = "boleto"
)

// Valid reports whether the payment type is one of the known values.
func (t PaymentType) Valid() bool {
	switch t {
	case PaymentCredit, PaymentCreditCash, PaymentPix, PaymentBoleto:
		return true
	}
	return false
}

// AllowsInstallments reports whether the type supports more than one
// installment. Everything except plain credit settles in a single charge.
func (t PaymentType) AllowsInstallments() bool {
	return t == PaymentCredit
}

// FormData is the registration data collected during checkout. It is
// staged in the recovery store so reloads do not lose typed input; the
// durable customer record is written server-side only.
type FormData struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	FullName string `json:"full_name"`
	TaxID    string `json:"tax_id"`
	Password string `json:"password,omitempty"`
}

// RecoveryState is the snapshot of one in-flight checkout attempt.
// Exactly one state is live per scope; saves overwrite unconditionally.
type RecoveryState struct {
	SchemaVersion int         `json:"schema_version"`
	Timestamp     time.Time   `json:"timestamp"`
	PlanID        string      `json:"plan_id"`
	Installments  int         `json:"installments"`
	PaymentType   PaymentType `json:"payment_type"`
	ProcessID     string      `json:"process_id"`
	FormData      FormData    `json:"form_data"`
	PaymentLink   *string     `json:"payment_link,omitempty"`
	PaymentLinkAt time.Time   `json:"payment_link_at,omitempty"`
}

// IsValid reports whether the state can rehydrate a checkout for planID:
// the plan must match and the attempt must be newer than recoveryWindow.
func (s RecoveryState) IsValid(planID string, now time.Time) bool {
	if s.PlanID != planID {
		return false
	}
	return now.Sub(s.Timestamp) <= recoveryWindow
}

// HasFreshLink reports whether the stored payment link is still worth
// offering for resumption.
func (s RecoveryState) HasFreshLink(now time.Time) bool {
	if s.PaymentLink == nil || *s.PaymentLink == "" {
		return false
	}
	return now.Sub(s.PaymentLinkAt) <= resumeLinkWindow
}

// RecoveryStore persists checkout attempts keyed by an opaque scope token
// (one per browser/device). Last write wins; there is no merging of
// concurrent attempts.
type RecoveryStore interface {
	// Save overwrites the state for a scope unconditionally.
	Save(ctx context.Context, scope string, state RecoveryState) error

	// Load returns the state for a scope. Returns ErrStateNotFound when
	// nothing is stored or the stored blob has another schema version.
	Load(ctx context.Context, scope string) (*RecoveryState, error)

	// Clear removes the state and the completion marker for a scope.
	Clear(ctx context.Context, scope string) error

	// ClearState removes only the stored state. The completion marker
	// survives so success-page reloads keep short-circuiting.
	ClearState(ctx context.Context, scope string) error

	// MarkCompleted sets the one-shot success marker for a scope,
	// remembering the status reported to the customer, and reports
	// whether this call was the first to do so.
	MarkCompleted(ctx context.Context, scope, status string) (first bool, err error)

	// Completed returns the status remembered by MarkCompleted. ok is
	// false when the scope carries no marker.
	Completed(ctx context.Context, scope string) (status string, ok bool, err error)
}
