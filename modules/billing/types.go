package billing

// Status represents the lifecycle state of a subscription.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusTrialing  Status = "trialing"
	StatusCanceled  Status = "canceled"
	StatusExpired   Status = "expired"
	StatusSuspended Status = "suspended"
)

// PaymentType is the payment arrangement chosen at checkout.
type PaymentType string

const (
	PaymentCredit     PaymentType = "credit"
	PaymentCreditCash PaymentType = "credit_cash"
	PaymentPix        PaymentType = "pix"
	PaymentBoleto     PaymentType = "boleto"
)

// AllowsInstallments reports whether the payment type supports more than one
// installment. Everything except credit is charged in full.
func (t PaymentType) AllowsInstallments() bool {
	return t == PaymentCredit
}

// Valid reports whether t is one of the known payment types.
func (t PaymentType) Valid() bool {
	switch t {
	case PaymentCredit, PaymentCreditCash, PaymentPix, PaymentBoleto:
		return true
	}
	return false
}

// EventKind is the normalized billing event type. Each provider maps its own
// event names onto these at the boundary, before any business logic runs.
type EventKind string

const (
	EventCheckoutCompleted    EventKind = "checkout_completed"
	EventInvoicePaid          EventKind = "invoice_paid"
	EventSubscriptionUpdated  EventKind = "subscription_updated"
	EventSubscriptionCanceled EventKind = "subscription_canceled"
	EventPaymentFailed        EventKind = "payment_failed"
)
