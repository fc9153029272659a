package types

import (
	"fmt"
	"time"
)

// CheckStatus represents the possible results of an executed check.
type CheckStatus string

const (
	CheckStatusPass CheckStatus = "PASS"
	CheckStatusFail CheckStatus = "FAIL"
	CheckStatusSkip CheckStatus = "SKIP"
)

// Valid reports whether the status is one of the three recognized values.
func (s CheckStatus) Valid() bool {
	switch s {
	case CheckStatusPass, CheckStatusFail, CheckStatusSkip:
		return true
	}
	return false
}

// ParseCheckStatus converts a raw string into a CheckStatus, rejecting
// anything outside the three recognized values.
func ParseCheckStatus(raw string) (CheckStatus, error) {
	s := CheckStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("invalid check status %q (want PASS, FAIL or SKIP)", raw)
	}
	return s, nil
}

// CheckOutcome captures the result of a single executed check. Outcomes are
// immutable once recorded; the reporter preserves insertion order.
type CheckOutcome struct {
	Name      string
	Status    CheckStatus
	Duration  time.Duration
	Timestamp time.Time
	Error     string         // Meaningful only when Status is FAIL
	Details   map[string]any // Free-form supplementary measurements
}

// CheckError is a (check name, error text) pair kept for every FAIL outcome.
type CheckError struct {
	Check string
	Error string
}

// RunSummary holds aggregate statistics derived from a sequence of outcomes.
// It is recomputed on demand, never stored incrementally.
type RunSummary struct {
	TotalChecks     int
	Passed          int
	Failed          int
	Skipped         int
	PassRate        float64 // Percent in [0,100]; 0 for an empty run
	TotalDuration   time.Duration
	AverageDuration time.Duration
	StartTime       time.Time
	EndTime         time.Time
	Errors          []CheckError
}

// HasFailures reports whether any recorded check failed.
func (s RunSummary) HasFailures() bool {
	return s.Failed > 0
}
