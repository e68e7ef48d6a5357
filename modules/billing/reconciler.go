package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/apexconsultoria/checkout/pkg/blob"
	"github.com/apexconsultoria/checkout/pkg/email"
)

// ReconcilerOption configures optional Reconciler collaborators.
type ReconcilerOption func(*Reconciler)

// WithArchive enables best-effort archiving of raw webhook payloads.
func WithArchive(storage blob.Storage) ReconcilerOption {
	return func(r *Reconciler) { r.archive = storage }
}

// WithActivationEmail enables the activation email sent after a completed
// checkout. portalURL is embedded in the message body.
func WithActivationEmail(sender email.Sender, portalURL string) ReconcilerOption {
	return func(r *Reconciler) {
		r.mailer = sender
		r.portalURL = portalURL
	}
}

// Reconciler applies normalized webhook events to the subscription store.
// Webhook state always wins over locally tracked checkout state: a delivery
// may arrive before the customer returns from the hosted checkout page, or
// long after the process that started the checkout is gone.
type Reconciler struct {
	subs      SubscriptionStore
	customers CustomerStore
	events    EventStore
	archive   blob.Storage
	mailer    email.Sender
	portalURL string
	log       *slog.Logger
}

// NewReconciler creates a Reconciler. The three stores are required.
func NewReconciler(subs SubscriptionStore, customers CustomerStore, events EventStore, log *slog.Logger, opts ...ReconcilerOption) *Reconciler {
	if subs == nil || customers == nil || events == nil {
		panic("billing: reconciler stores are required")
	}
	if log == nil {
		log = slog.Default()
	}

	r := &Reconciler{
		subs:      subs,
		customers: customers,
		events:    events,
		log:       log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ProcessEvent applies one normalized event. Redelivered events are
// acknowledged without side effects. Archive and email failures are logged
// but never fail the event, so providers do not retry deliveries whose
// state change already committed.
//
// The event id is recorded only after the apply commits. A failed apply
// returns the error, the provider redelivers, and the retry runs against a
// still-unmarked event. Applies are idempotent, so a redelivery after a
// failed marker write converges too.
func (r *Reconciler) ProcessEvent(ctx context.Context, event *PaymentEvent) error {
	if event.EventID != "" {
		done, err := r.events.Processed(ctx, event.Provider, event.EventID)
		if err != nil {
			return fmt.Errorf("dedup webhook event: %w", err)
		}
		if done {
			r.log.InfoContext(ctx, "skipping redelivered webhook event",
				slog.String("provider", event.Provider),
				slog.String("event_id", event.EventID))
			return nil
		}
	}

	r.archivePayload(ctx, event)

	if err := r.apply(ctx, event); err != nil {
		return err
	}

	if event.EventID != "" {
		if err := r.events.MarkProcessed(ctx, event.Provider, event.EventID); err != nil {
			return fmt.Errorf("mark webhook event processed: %w", err)
		}
	}
	return nil
}

func (r *Reconciler) apply(ctx context.Context, event *PaymentEvent) error {
	switch event.Kind {
	case EventCheckoutCompleted:
		return r.applyCheckoutCompleted(ctx, event)
	case EventInvoicePaid:
		return r.applyInvoicePaid(ctx, event)
	case EventSubscriptionUpdated:
		return r.applySubscriptionUpdated(ctx, event)
	case EventSubscriptionCanceled:
		return r.applySubscriptionCanceled(ctx, event)
	case EventPaymentFailed:
		return r.applyPaymentFailed(ctx, event)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownEvent, event.Kind)
	}
}

// applyCheckoutCompleted activates the subscription a checkout created,
// upserting the customer first when the event carries an email.
func (r *Reconciler) applyCheckoutCompleted(ctx context.Context, event *PaymentEvent) error {
	now := time.Now().UTC()

	var customerID uuid.UUID
	if event.Email != "" {
		cust := &Customer{
			ID:        uuid.New(),
			Email:     event.Email,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := r.customers.UpsertByEmail(ctx, cust); err != nil {
			return fmt.Errorf("upsert customer: %w", err)
		}
		customerID = cust.ID
	}

	sub, err := r.subs.GetByProviderSubID(ctx, event.Provider, event.SubscriptionID)
	switch {
	case err == nil:
		sub.Status = StatusActive
		sub.UpdatedAt = now
		if event.PlanID != "" {
			sub.PlanID = event.PlanID
		}
	case errors.Is(err, ErrSubscriptionNotFound):
		sub = &Subscription{
			ID:                 uuid.New(),
			CustomerID:         customerID,
			PlanID:             event.PlanID,
			Status:             StatusActive,
			Installments:       1,
			Provider:           event.Provider,
			ProviderCustomerID: event.CustomerID,
			ProviderSubID:      event.SubscriptionID,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
	default:
		return fmt.Errorf("load subscription: %w", err)
	}

	if customerID != uuid.Nil {
		sub.CustomerID = customerID
	}
	if err := r.subs.Save(ctx, sub); err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}

	r.sendActivationEmail(ctx, event)
	return nil
}

func (r *Reconciler) applyInvoicePaid(ctx context.Context, event *PaymentEvent) error {
	sub, err := r.subs.GetByProviderSubID(ctx, event.Provider, event.SubscriptionID)
	if err != nil {
		return fmt.Errorf("load subscription: %w", err)
	}

	sub.Status = StatusActive
	if event.CurrentPeriodEnd != nil {
		sub.CurrentPeriodEnd = event.CurrentPeriodEnd
	}
	sub.UpdatedAt = time.Now().UTC()
	if err := r.subs.Save(ctx, sub); err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}

func (r *Reconciler) applySubscriptionUpdated(ctx context.Context, event *PaymentEvent) error {
	sub, err := r.subs.GetByProviderSubID(ctx, event.Provider, event.SubscriptionID)
	if err != nil {
		return fmt.Errorf("load subscription: %w", err)
	}

	if event.Status != "" {
		sub.Status = Status(event.Status)
	}
	if event.PlanID != "" {
		sub.PlanID = event.PlanID
	}
	if event.CurrentPeriodEnd != nil {
		sub.CurrentPeriodEnd = event.CurrentPeriodEnd
	}
	sub.UpdatedAt = time.Now().UTC()
	if err := r.subs.Save(ctx, sub); err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}

func (r *Reconciler) applySubscriptionCanceled(ctx context.Context, event *PaymentEvent) error {
	sub, err := r.subs.GetByProviderSubID(ctx, event.Provider, event.SubscriptionID)
	if err != nil {
		return fmt.Errorf("load subscription: %w", err)
	}

	now := time.Now().UTC()
	sub.Status = StatusCanceled
	sub.CanceledAt = &now
	sub.UpdatedAt = now
	if err := r.subs.Save(ctx, sub); err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}

// applyPaymentFailed suspends the subscription when one exists. A failure
// before any subscription was created is acknowledged without writes; the
// customer's recovery state keeps the checkout resumable.
func (r *Reconciler) applyPaymentFailed(ctx context.Context, event *PaymentEvent) error {
	sub, err := r.subs.GetByProviderSubID(ctx, event.Provider, event.SubscriptionID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		r.log.InfoContext(ctx, "payment failed before subscription existed",
			slog.String("provider", event.Provider),
			slog.String("provider_sub_id", event.SubscriptionID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load subscription: %w", err)
	}

	sub.Status = StatusSuspended
	sub.UpdatedAt = time.Now().UTC()
	if err := r.subs.Save(ctx, sub); err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}

func (r *Reconciler) archivePayload(ctx context.Context, event *PaymentEvent) {
	if r.archive == nil || len(event.Raw) == 0 {
		return
	}

	key := fmt.Sprintf("webhooks/%s/%s.json", event.Provider, event.EventID)
	if event.EventID == "" {
		key = fmt.Sprintf("webhooks/%s/%s.json", event.Provider, uuid.NewString())
	}
	if err := r.archive.Put(ctx, key, event.Raw, "application/json"); err != nil {
		r.log.WarnContext(ctx, "failed to archive webhook payload",
			slog.String("provider", event.Provider),
			slog.String("event_id", event.EventID),
			slog.Any("error", err))
	}
}

func (r *Reconciler) sendActivationEmail(ctx context.Context, event *PaymentEvent) {
	if r.mailer == nil || event.Email == "" {
		return
	}

	msg := email.Message{
		To:      event.Email,
		Subject: "Pagamento confirmado: acesse o portal",
		BodyHTML: fmt.Sprintf(
			"<p>Seu pagamento foi confirmado e sua assinatura está ativa.</p>"+
				"<p><a href=%q>Acessar o portal</a></p>", r.portalURL),
		Tag: "subscription-activated",
	}
	if err := r.mailer.Send(ctx, msg); err != nil {
		r.log.WarnContext(ctx, "failed to send activation email",
			slog.String("email", event.Email),
			slog.Any("error", err))
	}
}
