package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

const paddleSignatureHeader = "Paddle-Signature"

// PaddleConfig holds configuration for the Paddle provider.
type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY,required"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}

// PaddleProvider implements Provider on top of the official Paddle SDK.
type PaddleProvider struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
}

// NewPaddleProvider creates a Paddle provider for the configured environment.
func NewPaddleProvider(cfg PaddleConfig) (*PaddleProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	var client *paddle.SDK
	var err error
	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		client, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidEnvironment, cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("create paddle client: %w", err)
	}

	return &PaddleProvider{
		client:   client,
		verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret),
	}, nil
}

func (p *PaddleProvider) Name() string { return "paddle" }

func (p *PaddleProvider) SignatureHeader() string { return paddleSignatureHeader }

// CreateCheckoutLink creates a Paddle transaction and returns its hosted
// checkout URL. The process id and selected payment terms ride along as
// custom data so webhooks can be correlated with the checkout attempt.
func (p *PaddleProvider) CreateCheckoutLink(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error) {
	if req.PriceID == "" {
		return nil, fmt.Errorf("%w: price id is required", ErrProviderError)
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.PriceID,
		Quantity: 1,
	})

	txnReq := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			"process_id":   req.ProcessID,
			"plan_id":      req.PlanID,
			"payment_type": string(req.PaymentType),
			"installments": fmt.Sprintf("%d", req.Installments),
			"email":        req.Email,
		},
	}
	if req.SuccessURL != "" {
		txnReq.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(req.SuccessURL),
		}
	}

	txn, err := p.client.TransactionsClient.CreateTransaction(ctx, txnReq)
	if err != nil {
		return nil, fmt.Errorf("%w: create paddle transaction: %v", ErrProviderError, err)
	}

	if txn.Checkout == nil || txn.Checkout.URL == nil || *txn.Checkout.URL == "" {
		return nil, ErrNoCheckoutURL
	}

	return &CheckoutLink{
		URL:       *txn.Checkout.URL,
		SessionID: txn.ID,
		// Paddle checkout links expire after 24 hours.
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}, nil
}

// ParseWebhook verifies the Paddle-Signature header and normalizes the
// delivery into a PaymentEvent.
func (p *PaddleProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*PaymentEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build verification request: %w", err)
	}
	req.Header.Set(paddleSignatureHeader, signature)

	valid, err := p.verifier.Verify(req)
	if err != nil || !valid {
		return nil, ErrInvalidSignature
	}

	var envelope struct {
		EventID   string         `json:"event_id"`
		EventType string         `json:"event_type"`
		Data      map[string]any `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	kind, ok := mapPaddleEvent(envelope.EventType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, envelope.EventType)
	}

	event := &PaymentEvent{
		Provider:      p.Name(),
		Kind:          kind,
		ProviderEvent: envelope.EventType,
		EventID:       envelope.EventID,
		Raw:           payload,
	}

	if status, ok := envelope.Data["status"].(string); ok {
		event.Status = status
	}
	if custID, ok := envelope.Data["customer_id"].(string); ok {
		event.CustomerID = custID
	}
	if custom, ok := envelope.Data["custom_data"].(map[string]any); ok {
		if pid, ok := custom["process_id"].(string); ok {
			event.ProcessID = pid
		}
		if planID, ok := custom["plan_id"].(string); ok {
			event.PlanID = planID
		}
		if email, ok := custom["email"].(string); ok {
			event.Email = email
		}
	}

	switch {
	case strings.HasPrefix(envelope.EventType, "subscription."):
		if subID, ok := envelope.Data["id"].(string); ok {
			event.SubscriptionID = subID
		}
		event.Status = string(mapPaddleStatus(event.Status))
		if period, ok := envelope.Data["current_billing_period"].(map[string]any); ok {
			if ends, ok := period["ends_at"].(string); ok {
				if t, err := time.Parse(time.RFC3339, ends); err == nil {
					event.CurrentPeriodEnd = &t
				}
			}
		}
	case strings.HasPrefix(envelope.EventType, "transaction."):
		if subID, ok := envelope.Data["subscription_id"].(string); ok && subID != "" {
			event.SubscriptionID = subID
		} else if txnID, ok := envelope.Data["id"].(string); ok {
			event.SubscriptionID = txnID
		}
	}

	return event, nil
}

func mapPaddleEvent(eventType string) (EventKind, bool) {
	switch eventType {
	case "transaction.completed":
		return EventCheckoutCompleted, true
	case "transaction.payment_succeeded":
		return EventInvoicePaid, true
	case "transaction.payment_failed":
		return EventPaymentFailed, true
	case "subscription.created", "subscription.updated", "subscription.resumed", "subscription.past_due":
		return EventSubscriptionUpdated, true
	case "subscription.canceled":
		return EventSubscriptionCanceled, true
	default:
		return "", false
	}
}

// mapPaddleStatus maps Paddle subscription statuses onto internal ones.
func mapPaddleStatus(s string) Status {
	switch strings.ToLower(s) {
	case "trialing":
		return StatusTrialing
	case "active":
		return StatusActive
	case "past_due":
		return StatusSuspended
	case "canceled", "cancelled":
		return StatusCanceled
	case "expired":
		return StatusExpired
	default:
		return StatusPending
	}
}
