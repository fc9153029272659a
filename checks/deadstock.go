package checks

import (
	"context"
	"fmt"
	"time"
)

// DeadStockCheck validates the application's dead-stock report against a
// manual recomputation: a variant is dead stock when it still has inventory,
// is not deleted, and has had no sales inside the configured window.
type DeadStockCheck struct{}

func (c *DeadStockCheck) ID() string { return "dead_stock_accuracy" }

func (c *DeadStockCheck) Description() string {
	return "dead stock report matches manual recomputation from order history"
}

func (c *DeadStockCheck) Run(ctx context.Context, env *Env) (map[string]any, error) {
	companies, err := sampleCompanies(ctx, env)
	if err != nil {
		return nil, err
	}

	accuracies := make([]float64, 0, len(companies))
	for _, company := range companies {
		expected, err := c.expectedDeadStock(ctx, env, company.ID)
		if err != nil {
			return nil, fmt.Errorf("company %s: %w", company.Name, err)
		}

		var actual []DeadStockRow
		if err := env.DB.RPC(ctx, "get_dead_stock_report", map[string]any{"p_company_id": company.ID}, &actual); err != nil {
			return nil, fmt.Errorf("company %s: %w", company.Name, err)
		}

		actualSKUs := make([]string, 0, len(actual))
		for _, row := range actual {
			actualSKUs = append(actualSKUs, row.SKU)
		}

		accuracy := setAccuracy(expected, actualSKUs)
		accuracies = append(accuracies, accuracy)
		env.Log.WithFields(map[string]any{
			"company":  company.Name,
			"expected": len(expected),
			"reported": len(actualSKUs),
			"accuracy": accuracy,
		}).Debug("dead stock comparison")
	}

	avg := mean(accuracies)
	details := map[string]any{
		"companies_tested":      len(companies),
		"average_accuracy":      avg,
		"individual_accuracies": accuracies,
	}
	if avg < env.MinAccuracy {
		return details, fmt.Errorf("dead stock accuracy too low: %.1f%% < %.1f%%", avg*100, env.MinAccuracy*100)
	}
	return details, nil
}

// expectedDeadStock recomputes dead-stock SKUs from raw tables.
func (c *DeadStockCheck) expectedDeadStock(ctx context.Context, env *Env, companyID string) ([]string, error) {
	cutoff := time.Now().AddDate(0, 0, -deadStockDays(ctx, env, companyID))

	var variants []Variant
	err := env.DB.From("product_variants").
		Select("id,sku,inventory_quantity,cost").
		Eq("company_id", companyID).
		Gt("inventory_quantity", 0).
		IsNull("deleted_at").
		Execute(ctx, &variants)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch variants: %w", err)
	}

	var dead []string
	for _, v := range variants {
		sales, err := env.DB.From("order_line_items").
			Eq("company_id", companyID).
			Eq("variant_id", v.ID).
			Gte("created_at", cutoff.Format(time.RFC3339)).
			Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count sales for %s: %w", v.SKU, err)
		}
		if sales == 0 {
			dead = append(dead, v.SKU)
		}
	}
	return dead, nil
}
