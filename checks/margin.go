package checks

import (
	"context"
	"fmt"
)

// marginTolerance is the accepted relative error for the aggregate margin.
const marginTolerance = 1e-6

// MarginCheck validates the aggregate margin figure: per-variant margin
// (price - cost) / price, weighted by line-item revenue.
type MarginCheck struct{}

func (c *MarginCheck) ID() string { return "margin_analysis_accuracy" }

func (c *MarginCheck) Description() string {
	return "revenue-weighted margin matches recomputation from line items"
}

func (c *MarginCheck) Run(ctx context.Context, env *Env) (map[string]any, error) {
	companies, err := sampleCompanies(ctx, env)
	if err != nil {
		return nil, err
	}

	compared := 0
	worst := 0.0

	for _, company := range companies {
		expected, hasData, err := c.expectedMargin(ctx, env, company.ID)
		if err != nil {
			return nil, fmt.Errorf("company %s: %w", company.Name, err)
		}
		if !hasData {
			continue
		}

		var rows []MarginRow
		if err := env.DB.RPC(ctx, "get_margin_analysis", map[string]any{"p_company_id": company.ID}, &rows); err != nil {
			return nil, fmt.Errorf("company %s: %w", company.Name, err)
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("company %s: margin RPC returned no rows", company.Name)
		}

		relErr := relativeError(expected, rows[0].AverageMargin)
		if relErr > worst {
			worst = relErr
		}
		compared++
	}

	if compared == 0 {
		return nil, Skipf("no companies with priced sales")
	}

	details := map[string]any{
		"companies_tested":   compared,
		"max_relative_error": worst,
	}
	if worst > marginTolerance {
		return details, fmt.Errorf("aggregate margin off by %.2g (tolerance %.0g)", worst, marginTolerance)
	}
	return details, nil
}

// expectedMargin recomputes the revenue-weighted margin. The second return
// is false when the company has no revenue.
func (c *MarginCheck) expectedMargin(ctx context.Context, env *Env, companyID string) (float64, bool, error) {
	var items []LineItem
	err := env.DB.From("order_line_items").
		Select("variant_id,quantity,price,cost").
		Eq("company_id", companyID).
		Execute(ctx, &items)
	if err != nil {
		return 0, false, fmt.Errorf("failed to fetch line items: %w", err)
	}

	revenue := 0.0
	profit := 0.0
	for _, item := range items {
		lineRevenue := float64(item.Quantity) * item.Price
		revenue += lineRevenue
		profit += lineRevenue - float64(item.Quantity)*item.Cost
	}
	if revenue == 0 {
		return 0, false, nil
	}
	return profit / revenue, true, nil
}
