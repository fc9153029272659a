package invoqa

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiventory/invoqa/reporting"
	"github.com/aiventory/invoqa/types"
)

// emptyDeployment serves an empty PostgREST surface and a healthy API, so
// every data-dependent check skips and the latency probe passes.
func emptyDeployment(t *testing.T) (dbURL, apiURL string) {
	t.Helper()

	db := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(db.Close)

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": []}`))
	}))
	t.Cleanup(api.Close)

	return db.URL, api.URL
}

func harnessConfig(t *testing.T, dbURL, apiURL string) *Config {
	t.Helper()
	return &Config{
		BaseURL:         apiURL,
		SupabaseURL:     dbURL,
		ServiceKey:      "service-key",
		RunOnce:         true,
		AllowSkips:      true,
		SampleCompanies: 3,
		MinAccuracy:     0.8,
		ReportDir:       t.TempDir(),
		HistoryDB:       filepath.Join(t.TempDir(), "history.db"),
		Log:             testLogger(),
	}
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(context.Background(), nil, "test", func(error) {})
	assert.ErrorContains(t, err, "config")
}

func TestNewValidatesConfig(t *testing.T) {
	cfg := &Config{Log: testLogger()}
	_, err := New(context.Background(), cfg, "test", func(error) {})
	assert.ErrorContains(t, err, "supabase url")
}

func TestHarnessRunOnce(t *testing.T) {
	dbURL, apiURL := emptyDeployment(t)
	cfg := harnessConfig(t, dbURL, apiURL)

	shutdownCalled := make(chan struct{})
	h, err := New(context.Background(), cfg, "test", func(error) { close(shutdownCalled) })
	require.NoError(t, err)

	require.NoError(t, h.Start(context.Background()))
	<-shutdownCalled

	result := h.Result()
	require.NotNil(t, result)
	assert.Equal(t, types.CheckStatusPass, result.Status)

	// All three artifact formats plus their latest aliases exist
	for _, name := range []string{
		fmt.Sprintf("test_results_%s.json", result.RunID),
		"test_results_latest.json",
		fmt.Sprintf("test_report_%s.html", result.RunID),
		"test_report_latest.html",
		fmt.Sprintf("test_report_%s.xlsx", result.RunID),
		"test_report_latest.xlsx",
	} {
		_, err := os.Stat(filepath.Join(cfg.ReportDir, name))
		assert.NoError(t, err, "expected artifact %s", name)
	}

	// The persisted JSON parses back into the recorded outcomes
	summary, outcomes, err := reporting.ParseReport(filepath.Join(cfg.ReportDir, "test_results_latest.json"))
	require.NoError(t, err)
	assert.Equal(t, summary.TotalChecks, len(outcomes))
	assert.Zero(t, summary.Failed)

	require.NoError(t, h.Stop(context.Background()))
	assert.True(t, h.Stopped())
}

func TestHarnessRunOnceFailureReturnsCheckFailure(t *testing.T) {
	db := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(db.Close)

	cfg := harnessConfig(t, db.URL, "")
	cfg.BaseURL = ""
	cfg.AllowSkips = false // empty deployment now fails every data check
	cfg.HistoryDB = ""

	h, err := New(context.Background(), cfg, "test", func(error) {})
	require.NoError(t, err)

	err = h.Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsCheckFailureError(err))
	assert.Equal(t, types.CheckStatusFail, h.Result().Status)

	require.NoError(t, h.Stop(context.Background()))
}

func TestHarnessUnreachableDatabaseIsRuntimeError(t *testing.T) {
	cfg := harnessConfig(t, "http://127.0.0.1:1", "")
	cfg.BaseURL = ""
	cfg.HistoryDB = ""

	h, err := New(context.Background(), cfg, "test", func(error) {})
	require.NoError(t, err)

	err = h.Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsRuntimeError(err))
}
