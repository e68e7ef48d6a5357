package checkout_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexconsultoria/checkout/modules/billing"
	"github.com/apexconsultoria/checkout/modules/checkout"
)

func newTestController(t *testing.T, provider billing.Provider) (*checkout.Controller, *checkout.MemoryRecoveryStore) {
	t.Helper()

	store := checkout.NewMemoryRecoveryStore()
	controller := checkout.NewController(store, newTestProcessor(t, provider), slog.New(slog.NewTextHandler(io.Discard, nil)))
	return controller, store
}

func TestControllerForcesSingleInstallment(t *testing.T) {
	t.Parallel()

	for _, paymentType := range []checkout.PaymentType{
		checkout.PaymentPix, checkout.PaymentBoleto, checkout.PaymentCreditCash,
	} {
		t.Run(string(paymentType), func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			provider := &countingProvider{link: &billing.CheckoutLink{URL: "https://pay.example/x"}}
			controller, store := newTestController(t, provider)

			_, err := controller.Confirm(ctx, checkout.ConfirmRequest{
				Scope:        "scope-1",
				PlanID:       "pro_plan",
				Installments: 12,
				PaymentType:  paymentType,
				FormData:     validForm(),
			})
			require.NoError(t, err)

			state, err := store.Load(ctx, "scope-1")
			require.NoError(t, err)
			assert.Equal(t, 1, state.Installments)
		})
	}
}

func TestControllerCreditKeepsInstallments(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := &countingProvider{link: &billing.CheckoutLink{URL: "https://pay.example/x"}}
	controller, store := newTestController(t, provider)

	_, err := controller.Confirm(ctx, checkout.ConfirmRequest{
		Scope:        "scope-1",
		PlanID:       "pro_plan",
		Installments: 6,
		PaymentType:  checkout.PaymentCredit,
		FormData:     validForm(),
	})
	require.NoError(t, err)

	state, err := store.Load(ctx, "scope-1")
	require.NoError(t, err)
	assert.Equal(t, 6, state.Installments)
}

// Scenario: pix checkout stores the payment link with installments forced
// to one, ready for later resumption.
func TestControllerPixFlowStoresLink(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := &countingProvider{link: &billing.CheckoutLink{URL: "https://pay.example/abc"}}
	controller, store := newTestController(t, provider)

	result, err := controller.Confirm(ctx, checkout.ConfirmRequest{
		Scope:        "scope-1",
		PlanID:       "pro_plan",
		Installments: 3,
		PaymentType:  checkout.PaymentPix,
		FormData:     validForm(),
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/abc", result.URL)
	assert.NotEmpty(t, result.ProcessID)

	state, err := store.Load(ctx, "scope-1")
	require.NoError(t, err)
	require.NotNil(t, state.PaymentLink)
	assert.Equal(t, "https://pay.example/abc", *state.PaymentLink)
	assert.Equal(t, 1, state.Installments)
	assert.Equal(t, result.ProcessID, state.ProcessID)
}

func TestControllerPersistsStateBeforeProviderCall(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := &countingProvider{err: billing.ErrProviderError}
	controller, store := newTestController(t, provider)

	_, err := controller.Confirm(ctx, checkout.ConfirmRequest{
		Scope:       "scope-1",
		PlanID:      "pro_plan",
		PaymentType: checkout.PaymentCredit,
		FormData:    validForm(),
	})
	require.ErrorIs(t, err, checkout.ErrPaymentProvider)

	// The attempt survives the provider failure, without a link.
	state, loadErr := store.Load(ctx, "scope-1")
	require.NoError(t, loadErr)
	assert.Nil(t, state.PaymentLink)
	assert.Equal(t, "pro_plan", state.PlanID)
}

func TestControllerRetryGeneratesNewProcessID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := &countingProvider{link: &billing.CheckoutLink{URL: "https://pay.example/x"}}
	controller, store := newTestController(t, provider)

	req := checkout.ConfirmRequest{
		Scope:       "scope-1",
		PlanID:      "pro_plan",
		PaymentType: checkout.PaymentCredit,
		FormData:    validForm(),
	}

	first, err := controller.Confirm(ctx, req)
	require.NoError(t, err)
	second, err := controller.Confirm(ctx, req)
	require.NoError(t, err)

	assert.NotEqual(t, first.ProcessID, second.ProcessID)

	// Last write wins: the stored attempt is the newest one.
	state, err := store.Load(ctx, "scope-1")
	require.NoError(t, err)
	assert.Equal(t, second.ProcessID, state.ProcessID)
}

func TestControllerCustomPlanLeavesStateIntact(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := &countingProvider{}
	controller, store := newTestController(t, provider)

	result, err := controller.Confirm(ctx, checkout.ConfirmRequest{
		Scope:       "scope-1",
		PlanID:      "enterprise",
		PaymentType: checkout.PaymentCredit,
		FormData:    validForm(),
	})
	require.NoError(t, err)
	assert.True(t, result.CustomPlan)
	assert.Zero(t, provider.calls.Load())

	// A sales inquiry is not a payment; the attempt stays resumable.
	state, err := store.Load(ctx, "scope-1")
	require.NoError(t, err)
	assert.Nil(t, state.PaymentLink)
}

func TestControllerResumeRehydratesForm(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := &countingProvider{link: &billing.CheckoutLink{URL: "https://pay.example/abc"}}
	controller, _ := newTestController(t, provider)

	_, err := controller.Confirm(ctx, checkout.ConfirmRequest{
		Scope:        "scope-1",
		PlanID:       "pro_plan",
		Installments: 2,
		PaymentType:  checkout.PaymentCredit,
		FormData:     validForm(),
	})
	require.NoError(t, err)

	result, err := controller.Resume(ctx, "scope-1", "pro_plan")
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, 2, result.Installments)
	assert.Equal(t, checkout.PaymentCredit, result.PaymentType)
	assert.Equal(t, validForm(), result.FormData)
	assert.True(t, result.OfferResume)
	assert.Equal(t, "https://pay.example/abc", result.PaymentLink)
}

// Scenario: a link stored eleven minutes ago rehydrates the form but is
// not offered for resumption.
func TestControllerResumeStaleLinkNotOffered(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := &countingProvider{}
	controller, store := newTestController(t, provider)

	link := "https://pay.example/old"
	state := sampleState("pro_plan", time.Now().UTC().Add(-11*time.Minute))
	state.PaymentLink = &link
	state.PaymentLinkAt = time.Now().UTC().Add(-11 * time.Minute)
	require.NoError(t, store.Save(ctx, "scope-1", state))

	result, err := controller.Resume(ctx, "scope-1", "pro_plan")
	require.NoError(t, err)
	assert.True(t, result.Found, "form data is still rehydrated")
	assert.False(t, result.OfferResume, "stale link must not be offered")
	assert.Empty(t, result.PaymentLink)
}

func TestControllerResumePlanMismatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	controller, store := newTestController(t, &countingProvider{})

	require.NoError(t, store.Save(ctx, "scope-1", sampleState("pro_plan", time.Now().UTC())))

	result, err := controller.Resume(ctx, "scope-1", "enterprise")
	require.NoError(t, err)
	assert.False(t, result.Found)
}

func TestControllerResumeNothingStored(t *testing.T) {
	t.Parallel()

	controller, _ := newTestController(t, &countingProvider{})

	result, err := controller.Resume(context.Background(), "scope-1", "pro_plan")
	require.NoError(t, err)
	assert.False(t, result.Found)
	assert.False(t, result.OfferResume)
}
