package billing

import (
	"context"
	"time"
)

// Provider abstracts a payment provider behind hosted checkout pages and
// signed webhooks. Implementations use the official provider SDKs and keep
// provider quirks out of the rest of the codebase.
type Provider interface {
	// Name identifies the provider ("paddle", "stripe") in stored rows,
	// archive keys, and logs.
	Name() string

	// SignatureHeader is the HTTP header the provider signs its webhook
	// deliveries with.
	SignatureHeader() string

	// CreateCheckoutLink creates a hosted checkout session and returns its
	// URL. The request's ProcessID is forwarded as provider metadata so a
	// retried checkout can be correlated with the sessions it created.
	CreateCheckoutLink(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error)

	// ParseWebhook verifies the delivery signature and normalizes the
	// payload into a PaymentEvent. Returns ErrInvalidSignature before
	// reading any business fields when verification fails.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*PaymentEvent, error)
}

// CheckoutRequest carries everything a provider needs to open a hosted
// checkout session.
type CheckoutRequest struct {
	PriceID      string
	PlanID       string
	ProcessID    string
	Installments int
	PaymentType  PaymentType
	Email        string
	FullName     string
	TaxID        string
	SuccessURL   string
	CancelURL    string
}

// CheckoutLink is a hosted checkout session created by a provider.
type CheckoutLink struct {
	URL       string
	SessionID string
	ExpiresAt time.Time
}

// PaymentEvent is the provider-neutral form of a webhook delivery. All
// handlers and the reconciler operate on this type only.
type PaymentEvent struct {
	Provider         string
	Kind             EventKind
	ProviderEvent    string // original provider event name, for logs
	EventID          string
	SubscriptionID   string
	CustomerID       string // provider-side customer id
	ProcessID        string // checkout correlation id from metadata
	Email            string
	PlanID           string
	Status           string // normalized Status for subscription events, raw otherwise
	CurrentPeriodEnd *time.Time
	Raw              []byte
}
