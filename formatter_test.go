package invoqa

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiventory/invoqa/runner"
	"github.com/aiventory/invoqa/types"
)

func TestConsoleResultFormatter(t *testing.T) {
	var buf bytes.Buffer
	formatter := &ConsoleResultFormatter{out: &buf}

	result := &runner.RunResult{
		RunID:    "run-1",
		Status:   types.CheckStatusFail,
		Duration: 3200 * time.Millisecond,
		Suites: []runner.SuiteStats{
			{Name: "accuracy", Total: 2, Passed: 1, Failed: 1},
			{Name: "perf", Total: 1, Skipped: 1},
		},
	}
	outcomes := []types.CheckOutcome{
		{Name: "dead_stock_accuracy", Status: types.CheckStatusPass, Duration: 800 * time.Millisecond},
		{Name: "margin_analysis_accuracy", Status: types.CheckStatusFail, Duration: 500 * time.Millisecond, Error: "average margin off by 0.2"},
		{Name: "api_response_time", Status: types.CheckStatusSkip, Duration: 0, Error: "check skipped: no API client"},
	}

	require.NoError(t, formatter.FormatResults(result, outcomes))
	rendered := buf.String()

	assert.Contains(t, rendered, "accuracy")
	assert.Contains(t, rendered, "perf")
	assert.Contains(t, rendered, "dead_stock_accuracy")
	assert.Contains(t, rendered, "margin_analysis_accuracy")
	assert.Contains(t, rendered, "average margin off by 0.2")
	assert.Contains(t, rendered, "✓ pass")
	assert.Contains(t, rendered, "✗ fail")
	assert.Contains(t, rendered, "- skip")
}

func TestBoolToInt(t *testing.T) {
	assert.Equal(t, 1, boolToInt(true))
	assert.Equal(t, 0, boolToInt(false))
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "✓ pass", resultString(types.CheckStatusPass))
	assert.Equal(t, "- skip", resultString(types.CheckStatusSkip))
	assert.Equal(t, "✗ fail", resultString(types.CheckStatusFail))
}
