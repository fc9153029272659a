// Package runner executes configured suites against a deployment and
// records every check outcome into a single reporter.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/aiventory/invoqa/checks"
	"github.com/aiventory/invoqa/metrics"
	"github.com/aiventory/invoqa/registry"
	"github.com/aiventory/invoqa/reporting"
	"github.com/aiventory/invoqa/types"
)

const defaultCheckTimeout = 60 * time.Second

// Config contains runner construction parameters.
type Config struct {
	Registry *registry.Registry
	Env      *checks.Env
	Log      logrus.FieldLogger

	RunID       string // Generated when empty
	TargetSuite string // Empty runs every configured suite

	// DefaultTimeout bounds each check that has no per-check override.
	DefaultTimeout time.Duration

	// AllowSkips lets checks with unmet preconditions report SKIP.
	// When false a skipped check is recorded as a failure.
	AllowSkips bool
}

// SuiteStats aggregates the outcomes of one executed suite.
type SuiteStats struct {
	Name    string
	Total   int
	Passed  int
	Failed  int
	Skipped int
}

// RunResult describes a completed run across all executed suites.
type RunResult struct {
	RunID    string
	Status   types.CheckStatus
	Suites   []SuiteStats
	Duration time.Duration
}

// Runner executes the checks of one or all suites sequentially.
type Runner struct {
	registry *registry.Registry
	env      *checks.Env
	log      logrus.FieldLogger

	runID       string
	targetSuite string
	timeout     time.Duration
	allowSkips  bool
}

// NewRunner validates the config and builds a runner.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Registry == nil {
		return nil, errors.New("runner requires a registry")
	}
	if cfg.Env == nil {
		return nil, errors.New("runner requires a check environment")
	}
	if cfg.Log == nil {
		cfg.Log = logrus.New()
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = defaultCheckTimeout
	}
	if cfg.TargetSuite != "" {
		if _, err := cfg.Registry.Suite(cfg.TargetSuite); err != nil {
			return nil, err
		}
	}

	return &Runner{
		registry:    cfg.Registry,
		env:         cfg.Env,
		log:         cfg.Log,
		runID:       cfg.RunID,
		targetSuite: cfg.TargetSuite,
		timeout:     cfg.DefaultTimeout,
		allowSkips:  cfg.AllowSkips,
	}, nil
}

// RunID returns the identifier stamped on this run's outcomes and artifacts.
func (r *Runner) RunID() string {
	return r.runID
}

// Run executes the target suites and records each outcome into rep.
// It returns an error only for runtime problems; check failures are
// reflected in the result status, not the error.
func (r *Runner) Run(ctx context.Context, rep *reporting.Reporter) (*RunResult, error) {
	suites := r.registry.Suites()
	if r.targetSuite != "" {
		suite, err := r.registry.Suite(r.targetSuite)
		if err != nil {
			return nil, err
		}
		suites = []registry.Suite{suite}
	}

	started := time.Now()
	result := &RunResult{RunID: r.runID}

	for _, suite := range suites {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run aborted: %w", err)
		}
		stats, err := r.runSuite(ctx, suite, rep)
		if err != nil {
			return nil, err
		}
		result.Suites = append(result.Suites, stats)
	}

	result.Duration = time.Since(started)
	result.Status = r.overallStatus(result.Suites)
	return result, nil
}

func (r *Runner) runSuite(ctx context.Context, suite registry.Suite, rep *reporting.Reporter) (SuiteStats, error) {
	log := r.log.WithField("suite", suite.Name)
	log.WithField("checks", len(suite.Checks)).Info("running suite")

	stats := SuiteStats{Name: suite.Name}
	for _, entry := range suite.Checks {
		check, ok := checks.ByID(entry.ID)
		if !ok {
			return stats, fmt.Errorf("suite %q references unknown check %q", suite.Name, entry.ID)
		}

		status, duration, err := r.runCheck(ctx, check, entry, rep)
		if err != nil {
			return stats, err
		}

		stats.Total++
		switch status {
		case types.CheckStatusPass:
			stats.Passed++
		case types.CheckStatusFail:
			stats.Failed++
		case types.CheckStatusSkip:
			stats.Skipped++
		}
		metrics.RecordCheck(r.runID, suite.Name, entry.ID, string(status), duration)
	}
	return stats, nil
}

func (r *Runner) runCheck(ctx context.Context, check checks.Check, entry registry.CheckEntry, rep *reporting.Reporter) (types.CheckStatus, time.Duration, error) {
	env := *r.env
	if entry.MinAccuracy > 0 {
		env.MinAccuracy = entry.MinAccuracy
	}

	timeout := r.timeout
	if entry.Timeout.Std() > 0 {
		timeout = entry.Timeout.Std()
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log := r.log.WithField("check", check.ID())
	log.Debug("running check")

	started := time.Now()
	details, err := execute(checkCtx, check, &env)
	duration := time.Since(started)

	status := types.CheckStatusPass
	var opts []reporting.RecordOption
	switch {
	case err == nil:
		log.WithField("duration", duration).Info("check passed")
	case errors.Is(err, checks.ErrSkip) && r.allowSkips:
		status = types.CheckStatusSkip
		opts = append(opts, reporting.WithError(err.Error()))
		log.WithField("reason", err.Error()).Warn("check skipped")
	default:
		status = types.CheckStatusFail
		opts = append(opts, reporting.WithError(err.Error()))
		log.WithField("error", err.Error()).Error("check failed")
	}
	if len(details) > 0 {
		opts = append(opts, reporting.WithDetails(details))
	}

	if err := rep.Record(check.ID(), status, duration, opts...); err != nil {
		return status, duration, fmt.Errorf("failed to record %s: %w", check.ID(), err)
	}
	return status, duration, nil
}

// execute runs a single check, converting a panic into a failure so one
// misbehaving check cannot take the whole run down.
func execute(ctx context.Context, check checks.Check, env *checks.Env) (details map[string]any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("check panicked: %v", rec)
		}
	}()
	return check.Run(ctx, env)
}

func (r *Runner) overallStatus(suites []SuiteStats) types.CheckStatus {
	total, skipped := 0, 0
	for _, s := range suites {
		if s.Failed > 0 {
			return types.CheckStatusFail
		}
		total += s.Total
		skipped += s.Skipped
	}
	if total > 0 && skipped == total {
		return types.CheckStatusSkip
	}
	return types.CheckStatusPass
}
