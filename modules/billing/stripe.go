package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"
)

const stripeSignatureHeader = "Stripe-Signature"

// StripeConfig holds configuration for the Stripe provider.
type StripeConfig struct {
	APIKey        string `env:"STRIPE_API_KEY,required"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET,required"`
}

// StripeProvider implements Provider on top of the official Stripe SDK.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
}

// NewStripeProvider creates a Stripe provider with its own API client so
// credentials never leak into the SDK's package-level state.
func NewStripeProvider(cfg StripeConfig) (*StripeProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	api := &client.API{}
	api.Init(cfg.APIKey, nil)

	return &StripeProvider{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
	}, nil
}

func (p *StripeProvider) Name() string { return "stripe" }

func (p *StripeProvider) SignatureHeader() string { return stripeSignatureHeader }

// CreateCheckoutLink creates a Stripe Checkout session in subscription mode.
// The process id travels in the session metadata so webhook deliveries can
// be correlated with the checkout attempt that produced them.
func (p *StripeProvider) CreateCheckoutLink(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error) {
	if req.PriceID == "" {
		return nil, fmt.Errorf("%w: price id is required", ErrProviderError)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:    stripe.String(req.SuccessURL),
		CancelURL:     stripe.String(req.CancelURL),
		CustomerEmail: stripe.String(req.Email),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"process_id":   req.ProcessID,
			"plan_id":      req.PlanID,
			"payment_type": string(req.PaymentType),
			"installments": fmt.Sprintf("%d", req.Installments),
		},
	}
	params.Context = ctx

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: create stripe checkout session: %v", ErrProviderError, err)
	}
	if sess.URL == "" {
		return nil, ErrNoCheckoutURL
	}

	link := &CheckoutLink{
		URL:       sess.URL,
		SessionID: sess.ID,
	}
	if sess.ExpiresAt > 0 {
		link.ExpiresAt = time.Unix(sess.ExpiresAt, 0)
	}
	return link, nil
}

// ParseWebhook verifies the Stripe-Signature header and normalizes the
// delivery into a PaymentEvent.
func (p *StripeProvider) ParseWebhook(_ context.Context, payload []byte, signature string) (*PaymentEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return nil, ErrInvalidSignature
	}

	out := &PaymentEvent{
		Provider:      p.Name(),
		ProviderEvent: string(event.Type),
		EventID:       event.ID,
		Raw:           payload,
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		out.Kind = EventCheckoutCompleted
		if sess.Subscription != nil {
			out.SubscriptionID = sess.Subscription.ID
		}
		if sess.Customer != nil {
			out.CustomerID = sess.Customer.ID
		}
		if sess.CustomerEmail != "" {
			out.Email = sess.CustomerEmail
		} else if sess.CustomerDetails != nil {
			out.Email = sess.CustomerDetails.Email
		}
		out.ProcessID = sess.Metadata["process_id"]
		out.PlanID = sess.Metadata["plan_id"]
		out.Status = string(sess.Status)

	case "invoice.paid":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		out.Kind = EventInvoicePaid
		if inv.Subscription != nil {
			out.SubscriptionID = inv.Subscription.ID
		}
		if inv.Customer != nil {
			out.CustomerID = inv.Customer.ID
		}
		out.Email = inv.CustomerEmail
		out.Status = string(inv.Status)
		if inv.PeriodEnd > 0 {
			t := time.Unix(inv.PeriodEnd, 0)
			out.CurrentPeriodEnd = &t
		}

	case "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		out.Kind = EventPaymentFailed
		if inv.Subscription != nil {
			out.SubscriptionID = inv.Subscription.ID
		}
		if inv.Customer != nil {
			out.CustomerID = inv.Customer.ID
		}
		out.Email = inv.CustomerEmail

	case "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		if event.Type == "customer.subscription.deleted" {
			out.Kind = EventSubscriptionCanceled
		} else {
			out.Kind = EventSubscriptionUpdated
		}
		out.SubscriptionID = sub.ID
		if sub.Customer != nil {
			out.CustomerID = sub.Customer.ID
		}
		out.ProcessID = sub.Metadata["process_id"]
		out.PlanID = sub.Metadata["plan_id"]
		out.Status = string(mapStripeStatus(sub.Status))
		if sub.CurrentPeriodEnd > 0 {
			t := time.Unix(sub.CurrentPeriodEnd, 0)
			out.CurrentPeriodEnd = &t
		}

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, event.Type)
	}

	return out, nil
}

// mapStripeStatus maps Stripe subscription statuses onto internal ones.
func mapStripeStatus(s stripe.SubscriptionStatus) Status {
	switch s {
	case stripe.SubscriptionStatusTrialing:
		return StatusTrialing
	case stripe.SubscriptionStatusActive:
		return StatusActive
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return StatusSuspended
	case stripe.SubscriptionStatusCanceled:
		return StatusCanceled
	case stripe.SubscriptionStatusIncompleteExpired:
		return StatusExpired
	default:
		return StatusPending
	}
}
