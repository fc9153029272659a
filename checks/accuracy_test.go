package checks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetAccuracy(t *testing.T) {
	tests := []struct {
		name     string
		expected []string
		actual   []string
		want     float64
	}{
		{"both empty", nil, nil, 1.0},
		{"identical", []string{"a", "b"}, []string{"b", "a"}, 1.0},
		{"disjoint", []string{"a"}, []string{"b"}, 0.0},
		{"half overlap", []string{"a", "b"}, []string{"b", "c"}, 1.0 / 3.0},
		{"actual empty", []string{"a", "b"}, nil, 0.0},
		{"expected empty", nil, []string{"a"}, 0.0},
		{"duplicates collapse", []string{"a", "a", "b"}, []string{"a", "b"}, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, setAccuracy(tt.expected, tt.actual), 1e-9)
		})
	}
}

func TestMean(t *testing.T) {
	assert.Zero(t, mean(nil))
	assert.InDelta(t, 2.0, mean([]float64{1, 2, 3}), 1e-9)
}

func TestRelativeError(t *testing.T) {
	assert.Zero(t, relativeError(0, 0))
	assert.InDelta(t, 1.0, relativeError(0, 5), 1e-9)
	assert.InDelta(t, 0.1, relativeError(10, 11), 1e-9)
	assert.InDelta(t, 0.1, relativeError(10, 9), 1e-9)
}
