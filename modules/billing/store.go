package billing

import (
	"context"

	"github.com/google/uuid"
)

// SubscriptionStore defines the interface for subscription persistence.
// Provider subscription ids are unique per provider, so (provider,
// provider_sub_id) serves as the natural lookup key for webhook traffic.
type SubscriptionStore interface {
	// Get retrieves a subscription by internal id.
	// Returns ErrSubscriptionNotFound if no subscription exists.
	Get(ctx context.Context, id uuid.UUID) (*Subscription, error)

	// GetByProviderSubID retrieves a subscription by its provider-side id.
	// Returns ErrSubscriptionNotFound if no subscription exists.
	GetByProviderSubID(ctx context.Context, provider, providerSubID string) (*Subscription, error)

	// GetByCustomer retrieves the newest subscription for a customer.
	// Returns ErrSubscriptionNotFound if the customer has none.
	GetByCustomer(ctx context.Context, customerID uuid.UUID) (*Subscription, error)

	// Save creates or updates a subscription keyed by its internal id.
	Save(ctx context.Context, sub *Subscription) error
}

// CustomerStore defines the interface for customer persistence.
type CustomerStore interface {
	// GetByEmail retrieves a customer by email.
	// Returns ErrCustomerNotFound if no customer exists.
	GetByEmail(ctx context.Context, email string) (*Customer, error)

	// UpsertByEmail creates the customer or refreshes its registration
	// fields when a row with the same email already exists. Empty
	// registration fields never overwrite stored values; webhook events
	// often carry only the email. The merged row is written back into
	// cust, including its id.
	UpsertByEmail(ctx context.Context, cust *Customer) error
}

// EventStore records processed webhook deliveries for deduplication.
type EventStore interface {
	// Processed reports whether (provider, eventID) was recorded by an
	// earlier delivery that applied successfully. A true result means the
	// delivery must be acknowledged without side effects.
	Processed(ctx context.Context, provider, eventID string) (bool, error)

	// MarkProcessed records (provider, eventID). Recording the same id
	// twice is not an error.
	MarkProcessed(ctx context.Context, provider, eventID string) error
}
