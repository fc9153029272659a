package invoqa

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuntimeError(t *testing.T) {
	inner := errors.New("database unreachable")
	err := NewRuntimeError(inner)

	assert.True(t, IsRuntimeError(err))
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "runtime error")

	// Wrapped RuntimeErrors are still detected
	wrapped := fmt.Errorf("failed to start: %w", err)
	assert.True(t, IsRuntimeError(wrapped))

	assert.False(t, IsRuntimeError(nil))
	assert.False(t, IsRuntimeError(inner))
}

func TestCheckFailureError(t *testing.T) {
	err := NewCheckFailureError("2 checks failed")

	assert.True(t, IsCheckFailureError(err))
	assert.Contains(t, err.Error(), "check failure")
	assert.Contains(t, err.Error(), "2 checks failed")

	wrapped := fmt.Errorf("run finished: %w", err)
	assert.True(t, IsCheckFailureError(wrapped))

	assert.False(t, IsCheckFailureError(nil))
	assert.False(t, IsCheckFailureError(errors.New("plain")))
	assert.False(t, IsRuntimeError(err))
}
