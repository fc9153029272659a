package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckStatusValid(t *testing.T) {
	assert.True(t, CheckStatusPass.Valid())
	assert.True(t, CheckStatusFail.Valid())
	assert.True(t, CheckStatusSkip.Valid())
	assert.False(t, CheckStatus("pass").Valid())
	assert.False(t, CheckStatus("ERROR").Valid())
	assert.False(t, CheckStatus("").Valid())
}

func TestParseCheckStatus(t *testing.T) {
	s, err := ParseCheckStatus("PASS")
	require.NoError(t, err)
	assert.Equal(t, CheckStatusPass, s)

	_, err = ParseCheckStatus("passed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid check status")
}

func TestRunSummaryHasFailures(t *testing.T) {
	s := RunSummary{TotalChecks: 3, Passed: 3}
	assert.False(t, s.HasFailures())

	s.Failed = 1
	assert.True(t, s.HasFailures())
}

func TestRunSummaryZeroValue(t *testing.T) {
	var s RunSummary
	assert.Zero(t, s.TotalChecks)
	assert.Zero(t, s.PassRate)
	assert.Zero(t, s.AverageDuration)
	assert.Empty(t, s.Errors)
	assert.Equal(t, time.Duration(0), s.TotalDuration)
}
