package checkout

import (
	"context"
	"errors"
	"fmt"
)

// Plan describes a purchasable catalog entry. Prices are display strings
// as rendered on the pricing page; the provider-side price ids carry the
// billable amounts.
type Plan struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	MonthlyPrice  string   `yaml:"monthly_price"`
	AnnualPrice   string   `yaml:"annual_price"`
	Features      []string `yaml:"features"`
	Popular       bool     `yaml:"popular"`
	CTA           string   `yaml:"cta"`
	SalesAssisted bool     `yaml:"sales_assisted"`

	// PriceIDs maps a provider-specific price key (e.g. "monthly",
	// "annual", "pix") to the provider's price id.
	PriceIDs map[string]string `yaml:"price_ids"`
}

// PriceID returns the provider price id for a key, falling back to the
// "default" entry.
func (p Plan) PriceID(key string) string {
	if id, ok := p.PriceIDs[key]; ok {
		return id
	}
	return p.PriceIDs["default"]
}

// PlansSource loads the plan catalog. Implementations must return a map
// keyed by plan id.
type PlansSource interface {
	Load(ctx context.Context) (map[string]Plan, error)
}

// Catalog is the immutable set of purchasable plans. Built once at
// startup; read-only afterwards.
type Catalog struct {
	plans map[string]Plan
}

// NewCatalog loads and validates plans from a source.
func NewCatalog(ctx context.Context, src PlansSource) (*Catalog, error) {
	if src == nil {
		panic("checkout: PlansSource is required")
	}

	plans, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load plans: %w", err)
	}
	if err := validatePlans(plans); err != nil {
		return nil, err
	}

	return &Catalog{plans: plans}, nil
}

// Get returns the plan for an id, or ErrPlanNotFound.
func (c *Catalog) Get(planID string) (Plan, error) {
	plan, ok := c.plans[planID]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	return plan, nil
}

// All returns a copy of the catalog for listing surfaces.
func (c *Catalog) All() map[string]Plan {
	out := make(map[string]Plan, len(c.plans))
	for id, plan := range c.plans {
		out[id] = plan
	}
	return out
}

func validatePlans(plans map[string]Plan) error {
	if len(plans) == 0 {
		return errors.Join(ErrInvalidPlanConfiguration, errors.New("catalog is empty"))
	}
	for id, plan := range plans {
		if plan.ID != id {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan id mismatch: map key %s != plan.ID %s", id, plan.ID))
		}
		if !plan.SalesAssisted && len(plan.PriceIDs) == 0 {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has no price ids and is not sales-assisted", id))
		}
	}
	return nil
}

// StaticSource serves a fixed in-memory plan map.
type StaticSource map[string]Plan

func (s StaticSource) Load(_ context.Context) (map[string]Plan, error) {
	out := make(map[string]Plan, len(s))
	for id, plan := range s {
		out[id] = plan
	}
	return out, nil
}
