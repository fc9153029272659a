package checks

import (
	"context"
	"fmt"
	"sort"
)

// ABC class boundaries: cumulative revenue share up to 80% is class A, up to
// 95% class B, the tail class C.
const (
	abcClassABoundary = 0.80
	abcClassBBoundary = 0.95
)

// ABCAnalysisCheck validates the ABC classification: SKUs ranked by revenue
// should land in the same class the application assigns them.
type ABCAnalysisCheck struct{}

func (c *ABCAnalysisCheck) ID() string { return "abc_analysis_accuracy" }

func (c *ABCAnalysisCheck) Description() string {
	return "ABC classes match revenue-ranked recomputation from line items"
}

func (c *ABCAnalysisCheck) Run(ctx context.Context, env *Env) (map[string]any, error) {
	companies, err := sampleCompanies(ctx, env)
	if err != nil {
		return nil, err
	}

	accuracies := make([]float64, 0, len(companies))
	for _, company := range companies {
		expected, err := c.expectedClasses(ctx, env, company.ID)
		if err != nil {
			return nil, fmt.Errorf("company %s: %w", company.Name, err)
		}
		if len(expected) == 0 {
			continue // No sales; nothing to classify for this company
		}

		var actual []ABCRow
		if err := env.DB.RPC(ctx, "get_abc_analysis", map[string]any{"p_company_id": company.ID}, &actual); err != nil {
			return nil, fmt.Errorf("company %s: %w", company.Name, err)
		}

		matches := 0
		total := 0
		seen := make(map[string]struct{}, len(actual))
		for _, row := range actual {
			seen[row.SKU] = struct{}{}
			total++
			if expected[row.SKU] == row.Category {
				matches++
			}
		}
		// Expected SKUs the application failed to classify count against it.
		for sku := range expected {
			if _, ok := seen[sku]; !ok {
				total++
			}
		}

		if total > 0 {
			accuracies = append(accuracies, float64(matches)/float64(total))
		}
	}

	if len(accuracies) == 0 {
		return nil, Skipf("no companies with sales to classify")
	}

	avg := mean(accuracies)
	details := map[string]any{
		"companies_tested":      len(accuracies),
		"average_accuracy":      avg,
		"individual_accuracies": accuracies,
	}
	if avg < env.MinAccuracy {
		return details, fmt.Errorf("ABC accuracy too low: %.1f%% < %.1f%%", avg*100, env.MinAccuracy*100)
	}
	return details, nil
}

// expectedClasses recomputes per-SKU ABC classes from line-item revenue.
func (c *ABCAnalysisCheck) expectedClasses(ctx context.Context, env *Env, companyID string) (map[string]string, error) {
	revenue, err := revenueBySKU(ctx, env, companyID)
	if err != nil {
		return nil, err
	}
	if len(revenue) == 0 {
		return nil, nil
	}

	type skuRevenue struct {
		sku     string
		revenue float64
	}
	ranked := make([]skuRevenue, 0, len(revenue))
	total := 0.0
	for sku, r := range revenue {
		ranked = append(ranked, skuRevenue{sku, r})
		total += r
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].revenue != ranked[j].revenue {
			return ranked[i].revenue > ranked[j].revenue
		}
		return ranked[i].sku < ranked[j].sku // Stable ordering for revenue ties
	})

	classes := make(map[string]string, len(ranked))
	cumulative := 0.0
	for _, entry := range ranked {
		cumulative += entry.revenue
		share := cumulative / total
		switch {
		case share <= abcClassABoundary:
			classes[entry.sku] = "A"
		case share <= abcClassBBoundary:
			classes[entry.sku] = "B"
		default:
			classes[entry.sku] = "C"
		}
	}
	return classes, nil
}

// revenueBySKU aggregates line-item revenue per SKU for a company.
func revenueBySKU(ctx context.Context, env *Env, companyID string) (map[string]float64, error) {
	var items []LineItem
	err := env.DB.From("order_line_items").
		Select("variant_id,quantity,price").
		Eq("company_id", companyID).
		Execute(ctx, &items)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch line items: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	var variants []Variant
	err = env.DB.From("product_variants").
		Select("id,sku").
		Eq("company_id", companyID).
		Execute(ctx, &variants)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch variants: %w", err)
	}

	skuByVariant := make(map[string]string, len(variants))
	for _, v := range variants {
		skuByVariant[v.ID] = v.SKU
	}

	revenue := make(map[string]float64)
	for _, item := range items {
		sku, ok := skuByVariant[item.VariantID]
		if !ok {
			continue // Line item referencing a purged variant
		}
		revenue[sku] += float64(item.Quantity) * item.Price
	}
	return revenue, nil
}
