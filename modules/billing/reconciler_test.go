package billing_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexconsultoria/checkout/modules/billing"
	"github.com/apexconsultoria/checkout/pkg/email"
)

func newTestReconciler(t *testing.T, opts ...billing.ReconcilerOption) (*billing.Reconciler, *billing.MemorySubscriptionStore, *billing.MemoryCustomerStore) {
	t.Helper()

	subs := billing.NewMemorySubscriptionStore()
	customers := billing.NewMemoryCustomerStore()
	events := billing.NewMemoryEventStore()
	r := billing.NewReconciler(subs, customers, events, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
	return r, subs, customers
}

func TestReconcilerCheckoutCompleted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, subs, customers := newTestReconciler(t)

	err := r.ProcessEvent(ctx, &billing.PaymentEvent{
		Provider:       "paddle",
		Kind:           billing.EventCheckoutCompleted,
		EventID:        "evt_1",
		SubscriptionID: "sub_abc",
		Email:          "maria@example.com",
		PlanID:         "consultoria-mensal",
	})
	require.NoError(t, err)

	cust, err := customers.GetByEmail(ctx, "maria@example.com")
	require.NoError(t, err)

	sub, err := subs.GetByProviderSubID(ctx, "paddle", "sub_abc")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusActive, sub.Status)
	assert.Equal(t, "consultoria-mensal", sub.PlanID)
	assert.Equal(t, cust.ID, sub.CustomerID)
	assert.True(t, sub.IsActive())
}

func TestReconcilerDeduplicatesRedeliveries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, subs, _ := newTestReconciler(t)

	event := &billing.PaymentEvent{
		Provider:       "stripe",
		Kind:           billing.EventCheckoutCompleted,
		EventID:        "evt_dup",
		SubscriptionID: "sub_dup",
		Email:          "joao@example.com",
		PlanID:         "consultoria-anual",
	}
	require.NoError(t, r.ProcessEvent(ctx, event))

	first, err := subs.GetByProviderSubID(ctx, "stripe", "sub_dup")
	require.NoError(t, err)

	// Same delivery again: acknowledged, no second subscription, same state.
	require.NoError(t, r.ProcessEvent(ctx, event))

	second, err := subs.GetByProviderSubID(ctx, "stripe", "sub_dup")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)
}

func TestReconcilerPaymentFailedWithoutSubscription(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, subs, _ := newTestReconciler(t)

	err := r.ProcessEvent(ctx, &billing.PaymentEvent{
		Provider:       "paddle",
		Kind:           billing.EventPaymentFailed,
		EventID:        "evt_fail_early",
		SubscriptionID: "sub_never_created",
	})
	require.NoError(t, err)

	_, err = subs.GetByProviderSubID(ctx, "paddle", "sub_never_created")
	assert.ErrorIs(t, err, billing.ErrSubscriptionNotFound)
}

func TestReconcilerPaymentFailedSuspends(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, subs, _ := newTestReconciler(t)

	seed := &billing.Subscription{
		ID:            uuid.New(),
		Status:        billing.StatusActive,
		Provider:      "stripe",
		ProviderSubID: "sub_active",
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	require.NoError(t, subs.Save(ctx, seed))

	err := r.ProcessEvent(ctx, &billing.PaymentEvent{
		Provider:       "stripe",
		Kind:           billing.EventPaymentFailed,
		EventID:        "evt_fail",
		SubscriptionID: "sub_active",
	})
	require.NoError(t, err)

	sub, err := subs.GetByProviderSubID(ctx, "stripe", "sub_active")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusSuspended, sub.Status)
}

func TestReconcilerSubscriptionCanceled(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, subs, _ := newTestReconciler(t)

	seed := &billing.Subscription{
		ID:            uuid.New(),
		Status:        billing.StatusActive,
		Provider:      "paddle",
		ProviderSubID: "sub_cancel",
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	require.NoError(t, subs.Save(ctx, seed))

	err := r.ProcessEvent(ctx, &billing.PaymentEvent{
		Provider:       "paddle",
		Kind:           billing.EventSubscriptionCanceled,
		EventID:        "evt_cancel",
		SubscriptionID: "sub_cancel",
	})
	require.NoError(t, err)

	sub, err := subs.GetByProviderSubID(ctx, "paddle", "sub_cancel")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusCanceled, sub.Status)
	require.NotNil(t, sub.CanceledAt)
	assert.False(t, sub.IsActive())
}

func TestReconcilerInvoicePaidExtendsPeriod(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, subs, _ := newTestReconciler(t)

	seed := &billing.Subscription{
		ID:            uuid.New(),
		Status:        billing.StatusSuspended,
		Provider:      "stripe",
		ProviderSubID: "sub_renew",
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	require.NoError(t, subs.Save(ctx, seed))

	periodEnd := time.Now().UTC().Add(30 * 24 * time.Hour).Truncate(time.Second)
	err := r.ProcessEvent(ctx, &billing.PaymentEvent{
		Provider:         "stripe",
		Kind:             billing.EventInvoicePaid,
		EventID:          "evt_renew",
		SubscriptionID:   "sub_renew",
		CurrentPeriodEnd: &periodEnd,
	})
	require.NoError(t, err)

	sub, err := subs.GetByProviderSubID(ctx, "stripe", "sub_renew")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusActive, sub.Status)
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.True(t, periodEnd.Equal(*sub.CurrentPeriodEnd))
}

func TestReconcilerRegistrationUpdateKeepsCustomerIdentity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, _, customers := newTestReconciler(t)

	// Registered through the checkout form before any webhook arrives.
	now := time.Now().UTC()
	require.NoError(t, customers.UpsertByEmail(ctx, &billing.Customer{
		ID:        uuid.New(),
		Email:     "ana@example.com",
		Phone:     "+55 11 91234-5678",
		FullName:  "Ana Souza",
		TaxID:     "529.982.247-25",
		CreatedAt: now,
		UpdatedAt: now,
	}))
	before, err := customers.GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)

	// The webhook event carries only the email.
	require.NoError(t, r.ProcessEvent(ctx, &billing.PaymentEvent{
		Provider:       "paddle",
		Kind:           billing.EventCheckoutCompleted,
		EventID:        "evt_c2",
		SubscriptionID: "sub_c2",
		Email:          "ana@example.com",
		PlanID:         "consultoria-anual",
	}))
	after, err := customers.GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)

	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, "+55 11 91234-5678", after.Phone)
	assert.Equal(t, "Ana Souza", after.FullName)
	assert.Equal(t, "529.982.247-25", after.TaxID)
}

// failOnceSubscriptionStore fails the first Save and then delegates, like
// a store behind a briefly unreachable database.
type failOnceSubscriptionStore struct {
	*billing.MemorySubscriptionStore
	failed bool
}

func (s *failOnceSubscriptionStore) Save(ctx context.Context, sub *billing.Subscription) error {
	if !s.failed {
		s.failed = true
		return errors.New("connection reset by peer")
	}
	return s.MemorySubscriptionStore.Save(ctx, sub)
}

func TestReconcilerRedeliveryAfterStoreFailureConverges(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	subs := &failOnceSubscriptionStore{MemorySubscriptionStore: billing.NewMemorySubscriptionStore()}
	customers := billing.NewMemoryCustomerStore()
	events := billing.NewMemoryEventStore()
	r := billing.NewReconciler(subs, customers, events, slog.New(slog.NewTextHandler(io.Discard, nil)))

	seed := &billing.Subscription{
		ID:            uuid.New(),
		Status:        billing.StatusActive,
		Provider:      "paddle",
		ProviderSubID: "sub_flaky",
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	require.NoError(t, subs.MemorySubscriptionStore.Save(ctx, seed))

	event := &billing.PaymentEvent{
		Provider:       "paddle",
		Kind:           billing.EventSubscriptionCanceled,
		EventID:        "evt_flaky",
		SubscriptionID: "sub_flaky",
	}

	// The first delivery fails at the subscription write. The provider
	// sees the error and redelivers; the retry must not be treated as a
	// duplicate of a delivery that never applied.
	require.Error(t, r.ProcessEvent(ctx, event))
	require.NoError(t, r.ProcessEvent(ctx, event))

	sub, err := subs.GetByProviderSubID(ctx, "paddle", "sub_flaky")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusCanceled, sub.Status)
}

func TestReconcilerSendsActivationEmail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sender := email.NewMemorySender()
	r, _, _ := newTestReconciler(t, billing.WithActivationEmail(sender, "https://portal.example.com"))

	require.NoError(t, r.ProcessEvent(ctx, &billing.PaymentEvent{
		Provider:       "stripe",
		Kind:           billing.EventCheckoutCompleted,
		EventID:        "evt_mail",
		SubscriptionID: "sub_mail",
		Email:          "carlos@example.com",
		PlanID:         "consultoria-mensal",
	}))

	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "carlos@example.com", sent[0].To)
	assert.Contains(t, sent[0].BodyHTML, "https://portal.example.com")
}
