// Package checks contains the business-logic validations the harness runs
// against a deployment: each check recomputes a business metric from raw
// table data and scores it against the application's own answer.
package checks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aiventory/invoqa/apiclient"
	"github.com/aiventory/invoqa/supa"
)

// ErrSkip marks a check that could not run because its preconditions were
// not met (no seeded data, feature disabled). Wrap it with context:
//
//	fmt.Errorf("%w: no companies with orders", ErrSkip)
var ErrSkip = errors.New("check skipped")

// Skipf builds an ErrSkip-wrapped error.
func Skipf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrSkip}, args...)...)
}

// Thresholds are the performance bounds the harness holds the application to.
type Thresholds struct {
	APIResponse time.Duration
	PageLoad    time.Duration
	DBQuery     time.Duration
}

// DefaultThresholds mirrors the values the harness has always used.
func DefaultThresholds() Thresholds {
	return Thresholds{
		APIResponse: 5 * time.Second,
		PageLoad:    10 * time.Second,
		DBQuery:     2 * time.Second,
	}
}

// Env carries the collaborators and tuning knobs shared by every check.
type Env struct {
	API *apiclient.Client
	DB  *supa.Client
	Log logrus.FieldLogger

	Thresholds      Thresholds
	SampleCompanies int     // Companies sampled per check
	MinAccuracy     float64 // Minimum mean accuracy for comparison checks
}

// Check is a single executable validation. Run returns supplementary
// measurements for the outcome's details blob; a nil error is a PASS, an
// ErrSkip-wrapped error a SKIP, anything else a FAIL.
type Check interface {
	ID() string
	Description() string
	Run(ctx context.Context, env *Env) (map[string]any, error)
}

// All returns every known check in a stable order.
func All() []Check {
	return []Check{
		&DeadStockCheck{},
		&ReorderCheck{},
		&ABCAnalysisCheck{},
		&TurnoverCheck{},
		&MarginCheck{},
		&TenantIsolationCheck{},
		&AIChatCheck{},
		&APIResponseTimeCheck{},
	}
}

// ByID looks a check up by its identifier.
func ByID(id string) (Check, bool) {
	for _, c := range All() {
		if c.ID() == id {
			return c, true
		}
	}
	return nil, false
}

// sampleCompanies fetches the newest seeded companies, bounded by the
// configured sample size.
func sampleCompanies(ctx context.Context, env *Env) ([]Company, error) {
	limit := env.SampleCompanies
	if limit <= 0 {
		limit = 3
	}

	var companies []Company
	err := env.DB.From("companies").
		Select("id,name,created_at").
		OrderDesc("created_at").
		Limit(limit).
		Execute(ctx, &companies)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch companies: %w", err)
	}
	if len(companies) == 0 {
		return nil, Skipf("no companies in database")
	}
	return companies, nil
}

// deadStockDays reads the company's configured dead-stock window, falling
// back to 90 days when unset.
func deadStockDays(ctx context.Context, env *Env, companyID string) int {
	var settings []CompanySettings
	err := env.DB.From("company_settings").
		Select("dead_stock_days").
		Eq("company_id", companyID).
		Limit(1).
		Execute(ctx, &settings)
	if err != nil || len(settings) == 0 || settings[0].DeadStockDays <= 0 {
		return 90
	}
	return settings[0].DeadStockDays
}
