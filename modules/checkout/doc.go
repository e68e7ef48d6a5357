// Package checkout owns the plan-selection-to-payment-page workflow and
// its crash recovery.
//
// Every checkout attempt is snapshotted into a RecoveryStore keyed by an
// opaque per-client scope token before the payment provider is called, so
// an abandoned redirect or reload can rehydrate the form and, within a
// short freshness window, offer to resume the already-created payment
// link. The Controller drives an explicit state machine over the steps;
// the Processor validates registration data and talks to the billing
// provider; the SuccessHandler finishes the flow after the provider
// redirects back, reading subscription state the webhook reconciler owns.
package checkout
