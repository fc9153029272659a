package checks

import (
	"context"
	"fmt"
)

// TenantIsolationCheck verifies multi-tenant data isolation: catalogs of two
// distinct companies must not overlap, and per-company reports must never
// surface another tenant's SKUs. Any cross-tenant leak is an immediate FAIL,
// not an accuracy score.
type TenantIsolationCheck struct{}

func (c *TenantIsolationCheck) ID() string { return "tenant_isolation" }

func (c *TenantIsolationCheck) Description() string {
	return "per-company reports never surface another tenant's data"
}

func (c *TenantIsolationCheck) Run(ctx context.Context, env *Env) (map[string]any, error) {
	companies, err := sampleCompanies(ctx, env)
	if err != nil {
		return nil, err
	}
	if len(companies) < 2 {
		return nil, Skipf("need at least two companies, found %d", len(companies))
	}

	a, b := companies[0], companies[1]

	aSKUs, err := tenantSKUs(ctx, env, a.ID)
	if err != nil {
		return nil, fmt.Errorf("company %s: %w", a.Name, err)
	}
	bSKUs, err := tenantSKUs(ctx, env, b.ID)
	if err != nil {
		return nil, fmt.Errorf("company %s: %w", b.Name, err)
	}

	// Seeded SKUs embed a company marker, so overlap means rows leaked
	// between tenants at write time.
	overlap := 0
	for sku := range aSKUs {
		if _, ok := bSKUs[sku]; ok {
			overlap++
		}
	}
	if overlap > 0 {
		return map[string]any{"overlapping_skus": overlap},
			fmt.Errorf("%d SKUs present in both %s and %s", overlap, a.Name, b.Name)
	}

	// Reports for company A must only reference company A's catalog.
	var report []DeadStockRow
	if err := env.DB.RPC(ctx, "get_dead_stock_report", map[string]any{"p_company_id": a.ID}, &report); err != nil {
		return nil, fmt.Errorf("company %s: %w", a.Name, err)
	}

	leaked := 0
	for _, row := range report {
		if _, ok := bSKUs[row.SKU]; ok {
			leaked++
		}
	}
	details := map[string]any{
		"companies_compared": 2,
		"catalog_a_size":     len(aSKUs),
		"catalog_b_size":     len(bSKUs),
	}
	if leaked > 0 {
		return details, fmt.Errorf("report for %s leaked %d SKUs belonging to %s", a.Name, leaked, b.Name)
	}
	return details, nil
}

func tenantSKUs(ctx context.Context, env *Env, companyID string) (map[string]struct{}, error) {
	var variants []Variant
	err := env.DB.From("product_variants").
		Select("sku").
		Eq("company_id", companyID).
		Execute(ctx, &variants)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch variants: %w", err)
	}
	skus := make(map[string]struct{}, len(variants))
	for _, v := range variants {
		skus[v.SKU] = struct{}{}
	}
	return skus, nil
}
