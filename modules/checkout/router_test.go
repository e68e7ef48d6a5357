package checkout_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexconsultoria/checkout/modules/billing"
	"github.com/apexconsultoria/checkout/modules/checkout"
)

func newTestRouter(t *testing.T, provider billing.Provider) (http.Handler, *checkout.MemoryRecoveryStore) {
	t.Helper()

	store := checkout.NewMemoryRecoveryStore()
	controller := checkout.NewController(store, newTestProcessor(t, provider), discardLogger())
	success := checkout.NewSuccessHandler(store, nil, nil, discardLogger())
	return checkout.Router(controller, success, discardLogger()), store
}

func TestRouterConfirmHappyPath(t *testing.T) {
	t.Parallel()

	provider := &countingProvider{link: &billing.CheckoutLink{URL: "https://pay.example/abc"}}
	router, _ := newTestRouter(t, provider)

	body := `{
		"plan_id": "pro_plan",
		"installments": 3,
		"payment_type": "pix",
		"email": "maria@example.com",
		"phone": "+5511998765432",
		"full_name": "Maria Souza",
		"tax_id": "529.982.247-25"
	}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(checkout.ScopeHeader, "scope-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://pay.example/abc")
	assert.Contains(t, rec.Body.String(), "qr_code")
}

func TestRouterConfirmRequiresScope(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t, &countingProvider{})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouterConfirmIncompleteRegistration(t *testing.T) {
	t.Parallel()

	provider := &countingProvider{}
	router, _ := newTestRouter(t, provider)

	body := `{"plan_id": "pro_plan", "payment_type": "credit", "email": "maria@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(checkout.ScopeHeader, "scope-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "dados de cadastro")
	assert.Zero(t, provider.calls.Load())
}

func TestRouterRecoveryRequiresPlan(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t, &countingProvider{})

	req := httptest.NewRequest(http.MethodGet, "/recovery", nil)
	req.Header.Set(checkout.ScopeHeader, "scope-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouterRecoveryReturnsStoredAttempt(t *testing.T) {
	t.Parallel()

	router, store := newTestRouter(t, &countingProvider{})

	link := "https://pay.example/abc"
	state := sampleState("pro_plan", time.Now().UTC())
	state.PaymentLink = &link
	state.PaymentLinkAt = time.Now().UTC()
	require.NoError(t, store.Save(context.Background(), "scope-1", state))

	req := httptest.NewRequest(http.MethodGet, "/recovery?plan=pro_plan", nil)
	req.Header.Set(checkout.ScopeHeader, "scope-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"found":true`)
	assert.Contains(t, rec.Body.String(), `"offer_resume":true`)
	assert.Contains(t, rec.Body.String(), link)
}

func TestRouterAbandonClearsState(t *testing.T) {
	t.Parallel()

	router, store := newTestRouter(t, &countingProvider{})
	require.NoError(t, store.Save(context.Background(), "scope-1", sampleState("pro_plan", time.Now().UTC())))

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	req.Header.Set(checkout.ScopeHeader, "scope-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	_, err := store.Load(context.Background(), "scope-1")
	assert.ErrorIs(t, err, checkout.ErrStateNotFound)
}

func TestRouterSuccess(t *testing.T) {
	t.Parallel()

	router, store := newTestRouter(t, &countingProvider{})
	require.NoError(t, store.Save(context.Background(), "scope-1", sampleState("pro_plan", time.Now().UTC())))

	req := httptest.NewRequest(http.MethodPost, "/success", nil)
	req.Header.Set(checkout.ScopeHeader, "scope-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"already_completed":false`)
}
