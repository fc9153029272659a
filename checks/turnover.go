package checks

import (
	"context"
	"fmt"
	"time"
)

// turnoverWindowDays is the sales window for the turnover recomputation.
const turnoverWindowDays = 90

// turnoverTolerance is the accepted relative error between the recomputed
// ratio and the application's.
const turnoverTolerance = 0.10

// TurnoverCheck validates the inventory turnover ratio: cost of goods sold
// over the window divided by current inventory value at cost.
type TurnoverCheck struct{}

func (c *TurnoverCheck) ID() string { return "inventory_turnover_accuracy" }

func (c *TurnoverCheck) Description() string {
	return "inventory turnover ratio within tolerance of recomputation"
}

func (c *TurnoverCheck) Run(ctx context.Context, env *Env) (map[string]any, error) {
	companies, err := sampleCompanies(ctx, env)
	if err != nil {
		return nil, err
	}

	errors := make([]float64, 0, len(companies))
	compared := 0

	for _, company := range companies {
		expected, hasData, err := c.expectedTurnover(ctx, env, company.ID)
		if err != nil {
			return nil, fmt.Errorf("company %s: %w", company.Name, err)
		}
		if !hasData {
			continue
		}

		var rows []TurnoverRow
		if err := env.DB.RPC(ctx, "get_inventory_turnover", map[string]any{
			"p_company_id": company.ID,
			"p_days":       turnoverWindowDays,
		}, &rows); err != nil {
			return nil, fmt.Errorf("company %s: %w", company.Name, err)
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("company %s: turnover RPC returned no rows", company.Name)
		}

		relErr := relativeError(expected, rows[0].TurnoverRatio)
		errors = append(errors, relErr)
		compared++
		env.Log.WithFields(map[string]any{
			"company":  company.Name,
			"expected": expected,
			"reported": rows[0].TurnoverRatio,
			"rel_err":  relErr,
		}).Debug("turnover comparison")
	}

	if compared == 0 {
		return nil, Skipf("no companies with inventory and sales in window")
	}

	worst := 0.0
	for _, e := range errors {
		if e > worst {
			worst = e
		}
	}
	details := map[string]any{
		"companies_tested":    compared,
		"mean_relative_error": mean(errors),
		"max_relative_error":  worst,
	}
	if worst > turnoverTolerance {
		return details, fmt.Errorf("turnover ratio off by %.1f%% (tolerance %.0f%%)", worst*100, turnoverTolerance*100)
	}
	return details, nil
}

// expectedTurnover recomputes COGS / current inventory value. The second
// return is false when the company has no inventory or no sales in window.
func (c *TurnoverCheck) expectedTurnover(ctx context.Context, env *Env, companyID string) (float64, bool, error) {
	var variants []Variant
	err := env.DB.From("product_variants").
		Select("id,inventory_quantity,cost").
		Eq("company_id", companyID).
		IsNull("deleted_at").
		Execute(ctx, &variants)
	if err != nil {
		return 0, false, fmt.Errorf("failed to fetch variants: %w", err)
	}

	inventoryValue := 0.0
	costByVariant := make(map[string]float64, len(variants))
	for _, v := range variants {
		inventoryValue += float64(v.InventoryQuantity) * v.Cost
		costByVariant[v.ID] = v.Cost
	}
	if inventoryValue == 0 {
		return 0, false, nil
	}

	cutoff := time.Now().AddDate(0, 0, -turnoverWindowDays)
	var items []LineItem
	err = env.DB.From("order_line_items").
		Select("variant_id,quantity,created_at").
		Eq("company_id", companyID).
		Gte("created_at", cutoff.Format(time.RFC3339)).
		Execute(ctx, &items)
	if err != nil {
		return 0, false, fmt.Errorf("failed to fetch line items: %w", err)
	}

	cogs := 0.0
	for _, item := range items {
		cogs += float64(item.Quantity) * costByVariant[item.VariantID]
	}
	if cogs == 0 {
		return 0, false, nil
	}

	return cogs / inventoryValue, true, nil
}
