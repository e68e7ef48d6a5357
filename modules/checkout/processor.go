package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/apexconsultoria/checkout/modules/billing"
	"github.com/apexconsultoria/checkout/pkg/qrcode"
	"github.com/apexconsultoria/checkout/pkg/validator"
)

// ProcessorConfig carries the external URLs the processor hands out.
type ProcessorConfig struct {
	// ContactURL is the sales contact deep link for sales-assisted plans.
	ContactURL string `env:"CHECKOUT_CONTACT_URL,required"`
	SuccessURL string `env:"CHECKOUT_SUCCESS_URL,required"`
	CancelURL  string `env:"CHECKOUT_CANCEL_URL,required"`
}

// ProcessRequest is one attempt to turn a plan selection into a payment
// page.
type ProcessRequest struct {
	PlanID       string
	Installments int
	PaymentType  PaymentType
	FormData     FormData
	ProcessID    string
}

// ProcessResult is the outcome of a successful ProcessPayment call.
type ProcessResult struct {
	// CustomPlan means the plan is sales-assisted: URL points at the
	// contact channel and no provider session was created.
	CustomPlan bool
	URL        string
	// QRCode is a base64 PNG data URI of URL, set for pix payments.
	QRCode string
}

// Processor validates registration data and asks the billing provider for
// a hosted checkout link. It never writes recovery state; the controller
// owns persistence.
type Processor struct {
	catalog   *Catalog
	provider  billing.Provider
	customers billing.CustomerStore
	cfg       ProcessorConfig
	log       *slog.Logger
}

// NewProcessor creates a Processor. Catalog and provider are required;
// customers may be nil when account creation is handled elsewhere.
func NewProcessor(catalog *Catalog, provider billing.Provider, customers billing.CustomerStore, cfg ProcessorConfig, log *slog.Logger) *Processor {
	if catalog == nil {
		panic("checkout: catalog is required")
	}
	if provider == nil {
		panic("checkout: billing provider is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Processor{
		catalog:   catalog,
		provider:  provider,
		customers: customers,
		cfg:       cfg,
		log:       log,
	}
}

// ProcessPayment runs one checkout attempt. Validation failures return
// ErrIncompleteRegistration before any provider traffic; provider
// failures come back wrapped in ErrPaymentProvider with no automatic
// retry.
func (p *Processor) ProcessPayment(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	plan, err := p.catalog.Get(req.PlanID)
	if err != nil {
		return nil, err
	}

	if err := validateFormData(req.FormData); err != nil {
		return nil, errors.Join(ErrIncompleteRegistration, err)
	}

	if plan.SalesAssisted {
		return &ProcessResult{CustomPlan: true, URL: p.cfg.ContactURL}, nil
	}

	if p.customers != nil {
		if err := p.upsertCustomer(ctx, req.FormData); err != nil {
			return nil, err
		}
	}

	installments := req.Installments
	if !req.PaymentType.AllowsInstallments() {
		installments = 1
	}

	link, err := p.provider.CreateCheckoutLink(ctx, billing.CheckoutRequest{
		PriceID:      plan.PriceID(string(req.PaymentType)),
		PlanID:       plan.ID,
		ProcessID:    req.ProcessID,
		Installments: installments,
		PaymentType:  billing.PaymentType(req.PaymentType),
		Email:        req.FormData.Email,
		FullName:     req.FormData.FullName,
		TaxID:        req.FormData.TaxID,
		SuccessURL:   p.cfg.SuccessURL,
		CancelURL:    p.cfg.CancelURL,
	})
	if err != nil {
		p.log.ErrorContext(ctx, "checkout link creation failed",
			slog.String("process_id", req.ProcessID),
			slog.String("plan_id", req.PlanID),
			slog.Any("error", err))
		return nil, errors.Join(ErrPaymentProvider, err)
	}

	result := &ProcessResult{URL: link.URL}
	if req.PaymentType == PaymentPix {
		dataURI, err := qrcode.GenerateDataURI(link.URL, 256)
		if err != nil {
			// The link alone is still usable; the QR code is sugar.
			p.log.WarnContext(ctx, "failed to render pix qr code",
				slog.String("process_id", req.ProcessID),
				slog.Any("error", err))
		} else {
			result.QRCode = dataURI
		}
	}
	return result, nil
}

func (p *Processor) upsertCustomer(ctx context.Context, form FormData) error {
	now := time.Now().UTC()
	cust := &billing.Customer{
		ID:        uuid.New(),
		Email:     form.Email,
		Phone:     form.Phone,
		FullName:  form.FullName,
		TaxID:     form.TaxID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if form.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		cust.PasswordHash = string(hash)
	}
	if err := p.customers.UpsertByEmail(ctx, cust); err != nil {
		return fmt.Errorf("upsert customer: %w", err)
	}
	return nil
}

func validateFormData(form FormData) error {
	return validator.Apply(
		validator.Required("email", form.Email),
		validator.ValidEmail("email", form.Email),
		validator.Required("phone", form.Phone),
		validator.ValidPhone("phone", form.Phone),
		validator.Required("full_name", form.FullName),
		validator.Required("tax_id", form.TaxID),
		validator.ValidTaxID("tax_id", form.TaxID),
	)
}
