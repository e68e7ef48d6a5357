// Package billing integrates payment providers behind a single Provider
// interface and reconciles their webhook deliveries into the subscription
// store.
//
// Providers (Paddle, Stripe) verify webhook signatures and normalize
// payloads into PaymentEvent values at the boundary; everything past the
// boundary is provider-neutral. The Reconciler treats provider state as
// authoritative, deduplicates redelivered events, and applies each event
// kind to the stored subscription.
package billing
