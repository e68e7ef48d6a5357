package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/apexconsultoria/checkout/pkg/statemachine"
)

// Checkout flow states and events. The machine is small on purpose: the
// browser only ever sees plan selection or a redirect in progress, and
// every failure lands the user back on plan selection for a manual retry.
const (
	StatePlan       statemachine.State = "plan"
	StateProcessing statemachine.State = "processing"

	EventConfirm    statemachine.Event = "confirm"
	EventLinkReady  statemachine.Event = "link_ready"
	EventCustomPlan statemachine.Event = "custom_plan"
	EventFail       statemachine.Event = "fail"
	EventRetry      statemachine.Event = "retry"
)

// newCheckoutMachine builds the transition table for one checkout attempt.
func newCheckoutMachine() *statemachine.Machine {
	m := statemachine.New(StatePlan)
	for _, t := range []statemachine.Transition{
		{From: StatePlan, To: StateProcessing, Event: EventConfirm},
		{From: StateProcessing, To: StateProcessing, Event: EventLinkReady},
		{From: StateProcessing, To: StateProcessing, Event: EventCustomPlan},
		{From: StateProcessing, To: StatePlan, Event: EventFail},
		{From: StatePlan, To: StateProcessing, Event: EventRetry},
	} {
		if err := m.AddTransition(t); err != nil {
			panic(fmt.Sprintf("checkout: invalid transition table: %v", err))
		}
	}
	return m
}

// ConfirmRequest is the client's plan + arrangement confirmation.
type ConfirmRequest struct {
	Scope        string
	PlanID       string
	Installments int
	PaymentType  PaymentType
	FormData     FormData
}

// ConfirmResult tells the client where to go next.
type ConfirmResult struct {
	URL        string
	CustomPlan bool
	QRCode     string
	ProcessID  string
}

// ResumeResult is the recovery-on-entry payload: the rehydrated form plus
// an optional offer to jump straight back to a still-fresh payment page.
type ResumeResult struct {
	Found        bool
	Installments int
	PaymentType  PaymentType
	FormData     FormData
	OfferResume  bool
	PaymentLink  string
}

// Controller orchestrates the checkout steps: persist recovery state,
// drive the state machine, call the processor, and store the resulting
// payment link.
type Controller struct {
	store     RecoveryStore
	processor *Processor
	log       *slog.Logger
	now       func() time.Time
}

// NewController creates a Controller.
func NewController(store RecoveryStore, processor *Processor, log *slog.Logger) *Controller {
	if store == nil {
		panic("checkout: recovery store is required")
	}
	if processor == nil {
		panic("checkout: processor is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Controller{
		store:     store,
		processor: processor,
		log:       log,
		now:       time.Now,
	}
}

// Confirm runs one checkout attempt for a scope. The recovery state is
// persisted before the provider is called, so a crash or abandoned
// redirect can always be resumed. Each attempt gets a fresh process id;
// retries supersede older attempts through last-write-wins saves.
func (c *Controller) Confirm(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error) {
	if req.Scope == "" {
		return nil, ErrInvalidScope
	}

	installments := req.Installments
	if installments < 1 {
		installments = 1
	}
	if !req.PaymentType.AllowsInstallments() {
		installments = 1
	}

	processID := uuid.NewString()
	now := c.now().UTC()

	state := RecoveryState{
		SchemaVersion: RecoverySchemaVersion,
		Timestamp:     now,
		PlanID:        req.PlanID,
		Installments:  installments,
		PaymentType:   req.PaymentType,
		ProcessID:     processID,
		FormData:      req.FormData,
	}
	if err := c.store.Save(ctx, req.Scope, state); err != nil {
		return nil, fmt.Errorf("persist recovery state: %w", err)
	}

	machine := newCheckoutMachine()
	if err := machine.Fire(ctx, EventConfirm, nil); err != nil {
		return nil, err
	}

	result, err := c.processor.ProcessPayment(ctx, ProcessRequest{
		PlanID:       req.PlanID,
		Installments: installments,
		PaymentType:  req.PaymentType,
		FormData:     req.FormData,
		ProcessID:    processID,
	})
	if err != nil {
		if fireErr := machine.Fire(ctx, EventFail, nil); fireErr != nil {
			c.log.ErrorContext(ctx, "state machine rejected fail transition",
				slog.String("process_id", processID),
				slog.Any("error", fireErr))
		}
		return nil, err
	}

	if result.CustomPlan {
		// A sales inquiry is not a payment; the state stays resumable.
		if err := machine.Fire(ctx, EventCustomPlan, nil); err != nil {
			return nil, err
		}
		return &ConfirmResult{URL: result.URL, CustomPlan: true, ProcessID: processID}, nil
	}

	if err := machine.Fire(ctx, EventLinkReady, nil); err != nil {
		return nil, err
	}

	state.PaymentLink = &result.URL
	state.PaymentLinkAt = c.now().UTC()
	if err := c.store.Save(ctx, req.Scope, state); err != nil {
		// The provider session exists; losing the stored link only costs
		// the resume offer, so the redirect still goes out.
		c.log.WarnContext(ctx, "failed to store payment link",
			slog.String("process_id", processID),
			slog.Any("error", err))
	}

	return &ConfirmResult{
		URL:       result.URL,
		QRCode:    result.QRCode,
		ProcessID: processID,
	}, nil
}

// Resume implements recovery-on-entry: rehydrate a previous attempt for
// the requested plan, and offer (never force) a jump back to the payment
// page when the stored link is still fresh.
func (c *Controller) Resume(ctx context.Context, scope, planID string) (*ResumeResult, error) {
	if scope == "" {
		return nil, ErrInvalidScope
	}
	if planID == "" {
		return nil, ErrPlanNotFound
	}

	state, err := c.store.Load(ctx, scope)
	if err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return &ResumeResult{}, nil
		}
		return nil, err
	}

	now := c.now().UTC()
	if !state.IsValid(planID, now) {
		return &ResumeResult{}, nil
	}

	result := &ResumeResult{
		Found:        true,
		Installments: state.Installments,
		PaymentType:  state.PaymentType,
		FormData:     state.FormData,
	}
	if state.HasFreshLink(now) {
		result.OfferResume = true
		result.PaymentLink = *state.PaymentLink
	}
	return result, nil
}

// Abandon clears a scope's recovery state on explicit restart.
func (c *Controller) Abandon(ctx context.Context, scope string) error {
	return c.store.Clear(ctx, scope)
}
