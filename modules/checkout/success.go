package checkout

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/apexconsultoria/checkout/modules/billing"
)

// CompleteResult is the confirmation payload shown after the provider
// redirects the user back.
type CompleteResult struct {
	// Status mirrors the subscription record when one is already
	// visible; a record still catching up reports "updated"
	// optimistically.
	Status string
	// AlreadyCompleted means this scope's success was processed before
	// and this call short-circuited to the same payload.
	AlreadyCompleted bool
}

// SuccessHandler finishes a checkout after the provider redirect. It only
// reads subscription state; the webhook reconciler owns every status
// transition.
type SuccessHandler struct {
	store     RecoveryStore
	subs      billing.SubscriptionStore
	customers billing.CustomerStore
	log       *slog.Logger
	now       func() time.Time
}

// NewSuccessHandler creates a SuccessHandler. The billing stores may be
// nil in test setups that only exercise the one-shot and cleanup paths.
func NewSuccessHandler(store RecoveryStore, subs billing.SubscriptionStore, customers billing.CustomerStore, log *slog.Logger) *SuccessHandler {
	if store == nil {
		panic("checkout: recovery store is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &SuccessHandler{
		store:     store,
		subs:      subs,
		customers: customers,
		log:       log,
		now:       time.Now,
	}
}

// Complete processes one return from the payment page. The first call for
// a scope reads the subscription optimistically, records the reported
// status in the completion marker and clears the recovery blob; repeats
// short-circuit to the same confirmation payload.
func (h *SuccessHandler) Complete(ctx context.Context, scope string) (*CompleteResult, error) {
	if scope == "" {
		return nil, ErrInvalidScope
	}

	if status, done, err := h.store.Completed(ctx, scope); err != nil {
		return nil, err
	} else if done {
		return &CompleteResult{Status: status, AlreadyCompleted: true}, nil
	}

	// The status must be read before the blob is cleared; the marker
	// remembers it for reloads.
	status := "updated"
	if s := h.readSubscriptionStatus(ctx, scope); s != "" {
		status = s
	}

	first, err := h.store.MarkCompleted(ctx, scope, status)
	if err != nil {
		return nil, err
	}
	if !first {
		// Lost a race with a concurrent return; report what won.
		if cached, done, err := h.store.Completed(ctx, scope); err == nil && done {
			status = cached
		}
		return &CompleteResult{Status: status, AlreadyCompleted: true}, nil
	}

	if err := h.store.ClearState(ctx, scope); err != nil {
		// The marker survives the failed clear, so a reload still
		// short-circuits; cleanup happens via TTL at worst.
		h.log.WarnContext(ctx, "failed to clear recovery state after success",
			slog.Any("error", err))
	}
	return &CompleteResult{Status: status}, nil
}

// readSubscriptionStatus resolves the subscription for the recovery
// state's customer. A still-pending record stays pending in the store;
// the caller reports "updated" without writing anything.
func (h *SuccessHandler) readSubscriptionStatus(ctx context.Context, scope string) string {
	if h.subs == nil || h.customers == nil {
		return ""
	}

	state, err := h.store.Load(ctx, scope)
	if err != nil || state.FormData.Email == "" {
		return ""
	}

	cust, err := h.customers.GetByEmail(ctx, state.FormData.Email)
	if err != nil {
		if !errors.Is(err, billing.ErrCustomerNotFound) {
			h.log.WarnContext(ctx, "failed to load customer on success",
				slog.Any("error", err))
		}
		return ""
	}

	sub, err := h.subs.GetByCustomer(ctx, cust.ID)
	if err != nil {
		if !errors.Is(err, billing.ErrSubscriptionNotFound) {
			h.log.WarnContext(ctx, "failed to load subscription on success",
				slog.Any("error", err))
		}
		return ""
	}

	if sub.Status == billing.StatusPending {
		return "updated"
	}
	return string(sub.Status)
}
