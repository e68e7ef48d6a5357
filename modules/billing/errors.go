package billing

import "errors"

var (
	ErrSubscriptionNotFound = errors.New("billing: subscription not found")
	ErrCustomerNotFound     = errors.New("billing: customer not found")

	ErrInvalidSignature = errors.New("billing: webhook signature invalid")
	ErrMalformedPayload = errors.New("billing: malformed webhook payload")
	ErrUnknownEvent     = errors.New("billing: unknown event type")

	ErrProviderError = errors.New("billing: payment provider error")
	ErrNoCheckoutURL = errors.New("billing: no checkout URL returned from provider")

	ErrMissingAPIKey        = errors.New("billing: provider API key is required")
	ErrMissingWebhookSecret = errors.New("billing: provider webhook secret is required")
	ErrInvalidEnvironment   = errors.New("billing: invalid provider environment")
)
