package reporting

import (
	"fmt"
	"time"

	"github.com/aiventory/invoqa/types"
)

// Reporter accumulates check outcomes over the lifetime of a single run and
// derives summary statistics from them on demand. It is append-only: outcomes
// are never mutated after recording, and insertion order is preserved.
//
// A Reporter is not safe for concurrent use; the runner records outcomes from
// a single goroutine. Sharded execution should give each worker its own
// Reporter and combine them with Merge at the end.
type Reporter struct {
	startTime time.Time
	outcomes  []types.CheckOutcome
	now       func() time.Time // Injectable clock for tests
}

// RecordOption customizes a single recorded outcome.
type RecordOption func(*types.CheckOutcome)

// WithError attaches a failure description to the outcome.
func WithError(err string) RecordOption {
	return func(o *types.CheckOutcome) {
		o.Error = err
	}
}

// WithDetails attaches free-form supplementary measurements to the outcome.
// The map is treated as opaque data and serialized verbatim.
func WithDetails(details map[string]any) RecordOption {
	return func(o *types.CheckOutcome) {
		o.Details = details
	}
}

// NewReporter creates a Reporter. The run start time is captured here, once.
func NewReporter() *Reporter {
	return &Reporter{
		startTime: time.Now(),
		now:       time.Now,
	}
}

// Record validates and appends a new outcome. An unknown status or a negative
// duration is a caller error and is rejected rather than coerced into a
// valid-looking summary.
func (r *Reporter) Record(name string, status types.CheckStatus, duration time.Duration, opts ...RecordOption) error {
	if !status.Valid() {
		return fmt.Errorf("record %q: invalid status %q", name, status)
	}
	if duration < 0 {
		return fmt.Errorf("record %q: negative duration %s", name, duration)
	}

	outcome := types.CheckOutcome{
		Name:      name,
		Status:    status,
		Duration:  duration,
		Timestamp: r.now(),
	}
	for _, opt := range opts {
		opt(&outcome)
	}

	r.outcomes = append(r.outcomes, outcome)
	return nil
}

// Outcomes returns the recorded outcomes in insertion order. The returned
// slice is a copy; callers cannot mutate recorded state through it.
func (r *Reporter) Outcomes() []types.CheckOutcome {
	out := make([]types.CheckOutcome, len(r.outcomes))
	copy(out, r.outcomes)
	return out
}

// Len returns the number of recorded outcomes.
func (r *Reporter) Len() int {
	return len(r.outcomes)
}

// StartTime returns the time the Reporter was constructed.
func (r *Reporter) StartTime() time.Time {
	return r.startTime
}

// Summarize folds the accumulated outcomes into a RunSummary. It is a pure
// function of the recorded sequence: an empty run yields all-zero counts and
// rates without dividing by zero.
func (r *Reporter) Summarize() types.RunSummary {
	summary := types.RunSummary{
		StartTime: r.startTime,
		EndTime:   r.now(),
		Errors:    []types.CheckError{},
	}

	for _, o := range r.outcomes {
		summary.TotalChecks++
		summary.TotalDuration += o.Duration

		switch o.Status {
		case types.CheckStatusPass:
			summary.Passed++
		case types.CheckStatusFail:
			summary.Failed++
			summary.Errors = append(summary.Errors, types.CheckError{
				Check: o.Name,
				Error: o.Error,
			})
		case types.CheckStatusSkip:
			summary.Skipped++
		}
	}

	if summary.TotalChecks > 0 {
		summary.PassRate = float64(summary.Passed) / float64(summary.TotalChecks) * 100
		summary.AverageDuration = summary.TotalDuration / time.Duration(summary.TotalChecks)
	}

	return summary
}

// Merge combines several per-worker reporters into one. Outcome sequences are
// concatenated in the order the reporters are given; the merged start time is
// the earliest of the inputs. Summaries recompute cleanly because Summarize
// is a pure fold over the sequence.
func Merge(reporters ...*Reporter) *Reporter {
	merged := NewReporter()
	for _, r := range reporters {
		if r == nil {
			continue
		}
		if r.startTime.Before(merged.startTime) {
			merged.startTime = r.startTime
		}
		merged.outcomes = append(merged.outcomes, r.outcomes...)
	}
	return merged
}
