package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apexconsultoria/checkout/pkg/pg"
)

// PGSubscriptionStore persists subscriptions in Postgres.
type PGSubscriptionStore struct {
	pool *pgxpool.Pool
}

// NewPGSubscriptionStore creates a Postgres-backed SubscriptionStore.
func NewPGSubscriptionStore(pool *pgxpool.Pool) *PGSubscriptionStore {
	return &PGSubscriptionStore{pool: pool}
}

const subscriptionColumns = `id, customer_id, plan_id, status, installments, payment_type,
	current_period_end, provider, provider_customer_id, provider_sub_id,
	contract_accepted, contract_accepted_at, canceled_at, created_at, updated_at`

func scanSubscription(row interface{ Scan(...any) error }) (*Subscription, error) {
	var sub Subscription
	err := row.Scan(
		&sub.ID, &sub.CustomerID, &sub.PlanID, &sub.Status, &sub.Installments,
		&sub.PaymentType, &sub.CurrentPeriodEnd, &sub.Provider,
		&sub.ProviderCustomerID, &sub.ProviderSubID, &sub.ContractAccepted,
		&sub.ContractAcceptedAt, &sub.CanceledAt, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFound(err) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	return &sub, nil
}

func (s *PGSubscriptionStore) Get(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id)
	return scanSubscription(row)
}

func (s *PGSubscriptionStore) GetByProviderSubID(ctx context.Context, provider, providerSubID string) (*Subscription, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE provider = $1 AND provider_sub_id = $2`, provider, providerSubID)
	return scanSubscription(row)
}

func (s *PGSubscriptionStore) GetByCustomer(ctx context.Context, customerID uuid.UUID) (*Subscription, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE customer_id = $1 ORDER BY created_at DESC LIMIT 1`, customerID)
	return scanSubscription(row)
}

func (s *PGSubscriptionStore) Save(ctx context.Context, sub *Subscription) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO subscriptions (
			id, customer_id, plan_id, status, installments, payment_type,
			current_period_end, provider, provider_customer_id, provider_sub_id,
			contract_accepted, contract_accepted_at, canceled_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (id) DO UPDATE SET
			plan_id = EXCLUDED.plan_id,
			status = EXCLUDED.status,
			installments = EXCLUDED.installments,
			payment_type = EXCLUDED.payment_type,
			current_period_end = EXCLUDED.current_period_end,
			provider = EXCLUDED.provider,
			provider_customer_id = EXCLUDED.provider_customer_id,
			provider_sub_id = EXCLUDED.provider_sub_id,
			contract_accepted = EXCLUDED.contract_accepted,
			contract_accepted_at = EXCLUDED.contract_accepted_at,
			canceled_at = EXCLUDED.canceled_at,
			updated_at = EXCLUDED.updated_at`,
		sub.ID, sub.CustomerID, sub.PlanID, sub.Status, sub.Installments,
		sub.PaymentType, sub.CurrentPeriodEnd, sub.Provider,
		sub.ProviderCustomerID, sub.ProviderSubID, sub.ContractAccepted,
		sub.ContractAcceptedAt, sub.CanceledAt, sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}

// PGCustomerStore persists customers in Postgres.
type PGCustomerStore struct {
	pool *pgxpool.Pool
}

// NewPGCustomerStore creates a Postgres-backed CustomerStore.
func NewPGCustomerStore(pool *pgxpool.Pool) *PGCustomerStore {
	return &PGCustomerStore{pool: pool}
}

func (s *PGCustomerStore) GetByEmail(ctx context.Context, email string) (*Customer, error) {
	var cust Customer
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, phone, full_name, tax_id, password_hash, created_at, updated_at
		FROM customers WHERE email = $1`, email).Scan(
		&cust.ID, &cust.Email, &cust.Phone, &cust.FullName, &cust.TaxID,
		&cust.PasswordHash, &cust.CreatedAt, &cust.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFound(err) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer by email: %w", err)
	}
	return &cust, nil
}

func (s *PGCustomerStore) UpsertByEmail(ctx context.Context, cust *Customer) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO customers (id, email, phone, full_name, tax_id, password_hash, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (email) DO UPDATE SET
			phone = COALESCE(NULLIF(EXCLUDED.phone, ''), customers.phone),
			full_name = COALESCE(NULLIF(EXCLUDED.full_name, ''), customers.full_name),
			tax_id = COALESCE(NULLIF(EXCLUDED.tax_id, ''), customers.tax_id),
			updated_at = EXCLUDED.updated_at
		RETURNING id, phone, full_name, tax_id, password_hash, created_at`,
		cust.ID, cust.Email, cust.Phone, cust.FullName, cust.TaxID,
		cust.PasswordHash, cust.CreatedAt, cust.UpdatedAt,
	).Scan(&cust.ID, &cust.Phone, &cust.FullName, &cust.TaxID, &cust.PasswordHash, &cust.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert customer: %w", err)
	}
	return nil
}

// PGEventStore records processed webhook deliveries in Postgres.
type PGEventStore struct {
	pool *pgxpool.Pool
}

// NewPGEventStore creates a Postgres-backed EventStore.
func NewPGEventStore(pool *pgxpool.Pool) *PGEventStore {
	return &PGEventStore{pool: pool}
}

func (s *PGEventStore) Processed(ctx context.Context, provider, eventID string) (bool, error) {
	var done bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM webhook_events WHERE provider = $1 AND event_id = $2
		)`, provider, eventID,
	).Scan(&done)
	if err != nil {
		return false, fmt.Errorf("check event processed: %w", err)
	}
	return done, nil
}

func (s *PGEventStore) MarkProcessed(ctx context.Context, provider, eventID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO webhook_events (provider, event_id, processed_at)
		VALUES ($1, $2, now())
		ON CONFLICT (provider, event_id) DO NOTHING`,
		provider, eventID,
	)
	if err != nil {
		return fmt.Errorf("mark event processed: %w", err)
	}
	return nil
}
