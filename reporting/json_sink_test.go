package reporting

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiventory/invoqa/types"
)

func seededReporter(t *testing.T) *Reporter {
	t.Helper()
	r := NewReporter()
	require.NoError(t, r.Record("login_test", types.CheckStatusPass, 500*time.Millisecond))
	require.NoError(t, r.Record("checkout_test", types.CheckStatusFail, 1200*time.Millisecond,
		WithError("assert 200 == 404"),
		WithDetails(map[string]any{"expected": float64(200), "actual": float64(404)})))
	require.NoError(t, r.Record("logout_test", types.CheckStatusSkip, 0))
	return r
}

func TestJSONSinkRoundTrip(t *testing.T) {
	r := seededReporter(t)
	dir := t.TempDir()

	path, err := NewJSONSink(dir).Persist(BuildReportData(r, "run-1"))
	require.NoError(t, err)

	summary, outcomes, err := ParseReport(path)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalChecks)
	assert.Equal(t, 1, summary.Passed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Skipped)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "checkout_test", summary.Errors[0].Check)

	require.Len(t, outcomes, 3)
	assert.Equal(t, "login_test", outcomes[0].Name)
	assert.Equal(t, types.CheckStatusPass, outcomes[0].Status)
	assert.Equal(t, "checkout_test", outcomes[1].Name)
	assert.Equal(t, "assert 200 == 404", outcomes[1].Error)
	assert.Equal(t, map[string]any{"expected": float64(200), "actual": float64(404)}, outcomes[1].Details)
	assert.Equal(t, "logout_test", outcomes[2].Name)
	assert.Equal(t, types.CheckStatusSkip, outcomes[2].Status)
}

func TestJSONSinkSchema(t *testing.T) {
	r := seededReporter(t)
	dir := t.TempDir()

	path, err := NewJSONSink(dir).Persist(BuildReportData(r, "run-schema"))
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Contains(t, doc, "summary")
	require.Contains(t, doc, "results")

	summary := doc["summary"].(map[string]any)
	for _, key := range []string{"total_tests", "passed", "failed", "skipped", "pass_rate",
		"total_duration", "average_duration", "start_time", "end_time", "errors"} {
		assert.Contains(t, summary, key)
	}
	assert.Equal(t, float64(3), summary["total_tests"])

	results := doc["results"].([]any)
	require.Len(t, results, 3)
	first := results[0].(map[string]any)
	for _, key := range []string{"test_name", "status", "duration", "timestamp", "error"} {
		assert.Contains(t, first, key)
	}
	assert.Equal(t, "PASS", first["status"])
	assert.Nil(t, first["error"])
	assert.InDelta(t, 0.5, first["duration"], 1e-9)
}

func TestPersistTwiceProducesIdenticalResults(t *testing.T) {
	r := seededReporter(t)
	data := BuildReportData(r, "run-idem")

	firstDir := t.TempDir()
	secondDir := t.TempDir()

	firstPath, err := NewJSONSink(firstDir).Persist(data)
	require.NoError(t, err)
	secondPath, err := NewJSONSink(secondDir).Persist(data)
	require.NoError(t, err)

	_, firstOutcomes, err := ParseReport(firstPath)
	require.NoError(t, err)
	_, secondOutcomes, err := ParseReport(secondPath)
	require.NoError(t, err)

	assert.Equal(t, firstOutcomes, secondOutcomes)
}

func TestJSONSinkRefreshesLatestAlias(t *testing.T) {
	dir := t.TempDir()
	sink := NewJSONSink(dir)

	r := seededReporter(t)
	_, err := sink.Persist(BuildReportData(r, "run-a"))
	require.NoError(t, err)

	require.NoError(t, r.Record("extra_check", types.CheckStatusPass, time.Millisecond))
	_, err = sink.Persist(BuildReportData(r, "run-b"))
	require.NoError(t, err)

	_, outcomes, err := ParseReport(filepath.Join(dir, jsonLatestName))
	require.NoError(t, err)
	assert.Len(t, outcomes, 4)
}

func TestJSONSinkSurfacesIOErrors(t *testing.T) {
	dir := t.TempDir()
	// A file standing where the sink wants a directory.
	bad := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(bad, []byte("x"), 0644))

	r := seededReporter(t)
	_, err := NewJSONSink(filepath.Join(bad, "reports")).Persist(BuildReportData(r, "run-err"))
	require.Error(t, err)
}

func TestJSONSinkEmptyRun(t *testing.T) {
	dir := t.TempDir()
	path, err := NewJSONSink(dir).Persist(BuildReportData(NewReporter(), "run-empty"))
	require.NoError(t, err)

	summary, outcomes, err := ParseReport(path)
	require.NoError(t, err)
	assert.Zero(t, summary.TotalChecks)
	assert.Zero(t, summary.PassRate)
	assert.Empty(t, outcomes)
}
