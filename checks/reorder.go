package checks

import (
	"context"
	"fmt"
)

// ReorderCheck validates the reorder suggestion report: a variant needs
// reordering when its inventory has fallen to its reorder point, and the
// suggested quantity must at least cover the configured reorder quantity.
type ReorderCheck struct{}

func (c *ReorderCheck) ID() string { return "reorder_suggestion_accuracy" }

func (c *ReorderCheck) Description() string {
	return "reorder suggestions match variants at or below their reorder point"
}

func (c *ReorderCheck) Run(ctx context.Context, env *Env) (map[string]any, error) {
	companies, err := sampleCompanies(ctx, env)
	if err != nil {
		return nil, err
	}

	accuracies := make([]float64, 0, len(companies))
	undersized := 0

	for _, company := range companies {
		var variants []Variant
		err := env.DB.From("product_variants").
			Select("id,sku,inventory_quantity,reorder_point,reorder_quantity").
			Eq("company_id", company.ID).
			Gt("reorder_point", 0).
			IsNull("deleted_at").
			Execute(ctx, &variants)
		if err != nil {
			return nil, fmt.Errorf("company %s: failed to fetch variants: %w", company.Name, err)
		}

		var expected []string
		reorderQty := make(map[string]int, len(variants))
		for _, v := range variants {
			if v.InventoryQuantity <= v.ReorderPoint {
				expected = append(expected, v.SKU)
				reorderQty[v.SKU] = v.ReorderQuantity
			}
		}

		var actual []ReorderRow
		if err := env.DB.RPC(ctx, "get_reorder_suggestions", map[string]any{"p_company_id": company.ID}, &actual); err != nil {
			return nil, fmt.Errorf("company %s: %w", company.Name, err)
		}

		actualSKUs := make([]string, 0, len(actual))
		for _, row := range actual {
			actualSKUs = append(actualSKUs, row.SKU)
			if want, ok := reorderQty[row.SKU]; ok && want > 0 && row.SuggestedQuantity < want {
				undersized++
			}
		}

		accuracies = append(accuracies, setAccuracy(expected, actualSKUs))
	}

	avg := mean(accuracies)
	details := map[string]any{
		"companies_tested":       len(companies),
		"average_accuracy":       avg,
		"individual_accuracies":  accuracies,
		"undersized_suggestions": undersized,
	}
	if avg < env.MinAccuracy {
		return details, fmt.Errorf("reorder accuracy too low: %.1f%% < %.1f%%", avg*100, env.MinAccuracy*100)
	}
	if undersized > 0 {
		return details, fmt.Errorf("%d suggestions below the configured reorder quantity", undersized)
	}
	return details, nil
}
