package checks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiventory/invoqa/apiclient"
	"github.com/aiventory/invoqa/retry"
	"github.com/aiventory/invoqa/supa"
)

// fakeBackend emulates just enough PostgREST surface for the checks: table
// reads filtered by company_id / variant_id, exact counts, and RPCs.
type fakeBackend struct {
	companies  []map[string]any
	settings   map[string][]map[string]any // company_id -> company_settings rows
	variants   map[string][]map[string]any // company_id -> product_variants rows
	lineItems  map[string][]map[string]any // company_id -> order_line_items rows
	salesCount map[string]int              // variant_id -> matching line item count
	rpc        map[string]func(companyID string) any
}

func (b *fakeBackend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/rest/v1/rpc/") {
			name := strings.TrimPrefix(r.URL.Path, "/rest/v1/rpc/")
			var params map[string]any
			json.NewDecoder(r.Body).Decode(&params)
			companyID, _ := params["p_company_id"].(string)

			fn, ok := b.rpc[name]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprintf(w, `{"message":"unknown function %s"}`, name)
				return
			}
			json.NewEncoder(w).Encode(fn(companyID))
			return
		}

		table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
		q := r.URL.Query()
		companyID := strings.TrimPrefix(q.Get("company_id"), "eq.")

		switch table {
		case "companies":
			json.NewEncoder(w).Encode(b.companies)
		case "company_settings":
			rows := b.settings[companyID]
			if rows == nil {
				rows = []map[string]any{}
			}
			json.NewEncoder(w).Encode(rows)
		case "product_variants":
			json.NewEncoder(w).Encode(b.variants[companyID])
		case "order_line_items":
			if r.Header.Get("Prefer") == "count=exact" {
				variantID := strings.TrimPrefix(q.Get("variant_id"), "eq.")
				w.Header().Set("Content-Range", fmt.Sprintf("0-0/%d", b.salesCount[variantID]))
				w.Write([]byte("[]"))
				return
			}
			json.NewEncoder(w).Encode(b.lineItems[companyID])
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintf(w, `{"message":"unknown table %s"}`, table)
		}
	})
}

func newTestEnv(t *testing.T, backend *fakeBackend, api http.Handler) *Env {
	t.Helper()

	dbSrv := httptest.NewServer(backend.handler())
	t.Cleanup(dbSrv.Close)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	policy := retry.Policy{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}

	env := &Env{
		DB:              supa.New(dbSrv.URL, "key", policy, log),
		Log:             log,
		Thresholds:      DefaultThresholds(),
		SampleCompanies: 3,
		MinAccuracy:     0.8,
	}

	if api != nil {
		apiSrv := httptest.NewServer(api)
		t.Cleanup(apiSrv.Close)
		client, err := apiclient.New(apiSrv.URL, policy, log)
		require.NoError(t, err)
		env.API = client
	}
	return env
}

func singleCompanyBackend() *fakeBackend {
	return &fakeBackend{
		companies: []map[string]any{
			{"id": "c1", "name": "TechGear Electronics", "created_at": time.Now().Format(time.RFC3339)},
		},
		settings: map[string][]map[string]any{},
		variants: map[string][]map[string]any{
			"c1": {
				{"id": "v-dead", "sku": "SKU-DEAD", "inventory_quantity": 10, "cost": 5.0, "reorder_point": 0},
				{"id": "v-hot", "sku": "SKU-HOT", "inventory_quantity": 5, "cost": 3.0, "reorder_point": 0},
			},
		},
		salesCount: map[string]int{"v-dead": 0, "v-hot": 12},
		lineItems:  map[string][]map[string]any{},
		rpc:        map[string]func(string) any{},
	}
}

func TestAllChecksHaveUniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for _, c := range All() {
		assert.False(t, seen[c.ID()], "duplicate check id %s", c.ID())
		assert.NotEmpty(t, c.Description())
		seen[c.ID()] = true
	}
	assert.Len(t, seen, 8)
}

func TestByID(t *testing.T) {
	c, ok := ByID("dead_stock_accuracy")
	require.True(t, ok)
	assert.Equal(t, "dead_stock_accuracy", c.ID())

	_, ok = ByID("nonexistent_check")
	assert.False(t, ok)
}

func TestDeadStockCheckPasses(t *testing.T) {
	backend := singleCompanyBackend()
	backend.rpc["get_dead_stock_report"] = func(companyID string) any {
		return []map[string]any{{"sku": "SKU-DEAD", "quantity": 10}}
	}

	env := newTestEnv(t, backend, nil)
	details, err := (&DeadStockCheck{}).Run(context.Background(), env)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, details["average_accuracy"], 1e-9)
	assert.Equal(t, 1, details["companies_tested"])
}

func TestDeadStockCheckFailsOnDisagreement(t *testing.T) {
	backend := singleCompanyBackend()
	// Application reports the actively selling variant as dead stock.
	backend.rpc["get_dead_stock_report"] = func(companyID string) any {
		return []map[string]any{{"sku": "SKU-HOT"}}
	}

	env := newTestEnv(t, backend, nil)
	details, err := (&DeadStockCheck{}).Run(context.Background(), env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accuracy too low")
	assert.Less(t, details["average_accuracy"].(float64), 0.8)
}

func TestDeadStockCheckHonorsCompanyWindow(t *testing.T) {
	backend := singleCompanyBackend()
	backend.settings["c1"] = []map[string]any{{"dead_stock_days": 30}}
	backend.rpc["get_dead_stock_report"] = func(companyID string) any {
		return []map[string]any{{"sku": "SKU-DEAD"}}
	}

	env := newTestEnv(t, backend, nil)
	_, err := (&DeadStockCheck{}).Run(context.Background(), env)
	require.NoError(t, err)
}

func TestChecksSkipWithoutCompanies(t *testing.T) {
	backend := &fakeBackend{companies: []map[string]any{}}
	env := newTestEnv(t, backend, nil)

	_, err := (&DeadStockCheck{}).Run(context.Background(), env)
	require.ErrorIs(t, err, ErrSkip)
}

func TestReorderCheckPasses(t *testing.T) {
	backend := singleCompanyBackend()
	backend.variants["c1"] = []map[string]any{
		{"id": "v-low", "sku": "SKU-LOW", "inventory_quantity": 2, "reorder_point": 5, "reorder_quantity": 20},
		{"id": "v-ok", "sku": "SKU-OK", "inventory_quantity": 50, "reorder_point": 5, "reorder_quantity": 20},
	}
	backend.rpc["get_reorder_suggestions"] = func(companyID string) any {
		return []map[string]any{{"sku": "SKU-LOW", "current_quantity": 2, "suggested_quantity": 25}}
	}

	env := newTestEnv(t, backend, nil)
	details, err := (&ReorderCheck{}).Run(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, 0, details["undersized_suggestions"])
}

func TestReorderCheckFlagsUndersizedSuggestions(t *testing.T) {
	backend := singleCompanyBackend()
	backend.variants["c1"] = []map[string]any{
		{"id": "v-low", "sku": "SKU-LOW", "inventory_quantity": 2, "reorder_point": 5, "reorder_quantity": 20},
	}
	backend.rpc["get_reorder_suggestions"] = func(companyID string) any {
		return []map[string]any{{"sku": "SKU-LOW", "suggested_quantity": 3}}
	}

	env := newTestEnv(t, backend, nil)
	_, err := (&ReorderCheck{}).Run(context.Background(), env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "below the configured reorder quantity")
}

func TestABCAnalysisCheckPasses(t *testing.T) {
	backend := singleCompanyBackend()
	backend.variants["c1"] = []map[string]any{
		{"id": "v1", "sku": "SKU-A", "inventory_quantity": 1},
		{"id": "v2", "sku": "SKU-B", "inventory_quantity": 1},
		{"id": "v3", "sku": "SKU-C", "inventory_quantity": 1},
	}
	// Revenues 800 / 150 / 50: shares 80%, 95%, 100% -> classes A, B, C.
	backend.lineItems["c1"] = []map[string]any{
		{"variant_id": "v1", "quantity": 8, "price": 100.0},
		{"variant_id": "v2", "quantity": 3, "price": 50.0},
		{"variant_id": "v3", "quantity": 1, "price": 50.0},
	}
	backend.rpc["get_abc_analysis"] = func(companyID string) any {
		return []map[string]any{
			{"sku": "SKU-A", "category": "A"},
			{"sku": "SKU-B", "category": "B"},
			{"sku": "SKU-C", "category": "C"},
		}
	}

	env := newTestEnv(t, backend, nil)
	details, err := (&ABCAnalysisCheck{}).Run(context.Background(), env)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, details["average_accuracy"], 1e-9)
}

func TestABCAnalysisCheckFailsOnMisclassification(t *testing.T) {
	backend := singleCompanyBackend()
	backend.variants["c1"] = []map[string]any{
		{"id": "v1", "sku": "SKU-A", "inventory_quantity": 1},
		{"id": "v2", "sku": "SKU-B", "inventory_quantity": 1},
	}
	backend.lineItems["c1"] = []map[string]any{
		{"variant_id": "v1", "quantity": 8, "price": 100.0},
		{"variant_id": "v2", "quantity": 1, "price": 10.0},
	}
	backend.rpc["get_abc_analysis"] = func(companyID string) any {
		return []map[string]any{
			{"sku": "SKU-A", "category": "C"},
			{"sku": "SKU-B", "category": "A"},
		}
	}

	env := newTestEnv(t, backend, nil)
	_, err := (&ABCAnalysisCheck{}).Run(context.Background(), env)
	require.Error(t, err)
}

func TestTurnoverCheckPasses(t *testing.T) {
	backend := singleCompanyBackend()
	backend.variants["c1"] = []map[string]any{
		{"id": "v1", "sku": "SKU-1", "inventory_quantity": 10, "cost": 10.0},
	}
	// COGS = 5 * 10 = 50; inventory value = 100; expected ratio 0.5.
	backend.lineItems["c1"] = []map[string]any{
		{"variant_id": "v1", "quantity": 5, "created_at": time.Now().AddDate(0, 0, -10).Format(time.RFC3339)},
	}
	backend.rpc["get_inventory_turnover"] = func(companyID string) any {
		return []map[string]any{{"turnover_ratio": 0.52}}
	}

	env := newTestEnv(t, backend, nil)
	details, err := (&TurnoverCheck{}).Run(context.Background(), env)
	require.NoError(t, err)
	assert.Less(t, details["max_relative_error"].(float64), turnoverTolerance)
}

func TestTurnoverCheckFailsOutsideTolerance(t *testing.T) {
	backend := singleCompanyBackend()
	backend.variants["c1"] = []map[string]any{
		{"id": "v1", "sku": "SKU-1", "inventory_quantity": 10, "cost": 10.0},
	}
	backend.lineItems["c1"] = []map[string]any{
		{"variant_id": "v1", "quantity": 5, "created_at": time.Now().AddDate(0, 0, -10).Format(time.RFC3339)},
	}
	backend.rpc["get_inventory_turnover"] = func(companyID string) any {
		return []map[string]any{{"turnover_ratio": 2.0}}
	}

	env := newTestEnv(t, backend, nil)
	_, err := (&TurnoverCheck{}).Run(context.Background(), env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "turnover ratio off")
}

func TestMarginCheckPasses(t *testing.T) {
	backend := singleCompanyBackend()
	// Revenue 200, profit 80: margin 0.4.
	backend.lineItems["c1"] = []map[string]any{
		{"variant_id": "v1", "quantity": 2, "price": 100.0, "cost": 60.0},
	}
	backend.rpc["get_margin_analysis"] = func(companyID string) any {
		return []map[string]any{{"average_margin": 0.4}}
	}

	env := newTestEnv(t, backend, nil)
	_, err := (&MarginCheck{}).Run(context.Background(), env)
	require.NoError(t, err)
}

func TestTenantIsolationCheckDetectsLeak(t *testing.T) {
	backend := singleCompanyBackend()
	backend.companies = append(backend.companies,
		map[string]any{"id": "c2", "name": "Fashion Forward Co", "created_at": time.Now().Format(time.RFC3339)})
	backend.variants["c2"] = []map[string]any{
		{"id": "v-f1", "sku": "SKU-FASHION", "inventory_quantity": 3},
	}
	// Report for company A surfaces company B's SKU.
	backend.rpc["get_dead_stock_report"] = func(companyID string) any {
		return []map[string]any{{"sku": "SKU-FASHION"}}
	}

	env := newTestEnv(t, backend, nil)
	_, err := (&TenantIsolationCheck{}).Run(context.Background(), env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leaked")
}

func TestTenantIsolationCheckPasses(t *testing.T) {
	backend := singleCompanyBackend()
	backend.companies = append(backend.companies,
		map[string]any{"id": "c2", "name": "Fashion Forward Co", "created_at": time.Now().Format(time.RFC3339)})
	backend.variants["c2"] = []map[string]any{
		{"id": "v-f1", "sku": "SKU-FASHION", "inventory_quantity": 3},
	}
	backend.rpc["get_dead_stock_report"] = func(companyID string) any {
		return []map[string]any{{"sku": "SKU-DEAD"}}
	}

	env := newTestEnv(t, backend, nil)
	_, err := (&TenantIsolationCheck{}).Run(context.Background(), env)
	require.NoError(t, err)
}

func TestTenantIsolationCheckSkipsSingleTenant(t *testing.T) {
	env := newTestEnv(t, singleCompanyBackend(), nil)
	_, err := (&TenantIsolationCheck{}).Run(context.Background(), env)
	require.ErrorIs(t, err, ErrSkip)
}

func TestAIChatCheckPasses(t *testing.T) {
	backend := singleCompanyBackend()
	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"response": "Your dead stock includes SKU-DEAD with 10 units on hand.",
		})
	})

	env := newTestEnv(t, backend, api)
	details, err := (&AIChatCheck{}).Run(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, true, details["grounded"])
}

func TestAIChatCheckFailsOnUngroundedResponse(t *testing.T) {
	backend := singleCompanyBackend()
	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"response": "I cannot help with that."})
	})

	env := newTestEnv(t, backend, api)
	_, err := (&AIChatCheck{}).Run(context.Background(), env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not reference any catalog SKU")
}

func TestAPIResponseTimeCheckPasses(t *testing.T) {
	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	env := newTestEnv(t, singleCompanyBackend(), api)
	details, err := (&APIResponseTimeCheck{}).Run(context.Background(), env)
	require.NoError(t, err)
	assert.Contains(t, details, "latencies_ms")
}

func TestAPIChecksSkipWithoutBaseURL(t *testing.T) {
	env := newTestEnv(t, singleCompanyBackend(), nil)
	require.Nil(t, env.API)

	_, err := (&AIChatCheck{}).Run(context.Background(), env)
	require.ErrorIs(t, err, ErrSkip)

	_, err = (&APIResponseTimeCheck{}).Run(context.Background(), env)
	require.ErrorIs(t, err, ErrSkip)
}

func TestAPIResponseTimeCheckFailsOverThreshold(t *testing.T) {
	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	env := newTestEnv(t, singleCompanyBackend(), api)
	env.Thresholds.APIResponse = time.Millisecond
	_, err := (&APIResponseTimeCheck{}).Run(context.Background(), env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "threshold")
}
