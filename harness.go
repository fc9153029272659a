// Package invoqa validates the business logic of a multi-tenant inventory
// platform: it runs accuracy and performance checks against a live
// deployment, reports the outcomes, and persists them as JSON, HTML, and
// XLSX artifacts.
package invoqa

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/aiventory/invoqa/apiclient"
	"github.com/aiventory/invoqa/checks"
	"github.com/aiventory/invoqa/exitcodes"
	"github.com/aiventory/invoqa/history"
	"github.com/aiventory/invoqa/metrics"
	"github.com/aiventory/invoqa/registry"
	"github.com/aiventory/invoqa/reporting"
	"github.com/aiventory/invoqa/retry"
	"github.com/aiventory/invoqa/runner"
	"github.com/aiventory/invoqa/supa"
	"github.com/aiventory/invoqa/types"
)

// Harness wires the registry, the check environment, the runner, and the
// report sinks together, and runs them once or on an interval.
type Harness struct {
	ctx       context.Context
	config    *Config
	version   string
	registry  *registry.Registry
	env       *checks.Env
	scheduler RunScheduler
	formatter ResultFormatter
	history   *history.Store
	result    *runner.RunResult

	shutdownCallback func(error) // Callback to signal application shutdown
}

func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*Harness, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	config.Log.WithFields(logrus.Fields{
		"baseURL":     config.BaseURL,
		"suiteFile":   config.SuiteFile,
		"runInterval": config.RunInterval,
		"runOnce":     config.RunOnce,
		"allowSkips":  config.AllowSkips,
	}).Debug("Creating harness with config")

	reg, err := registry.NewRegistry(registry.Config{
		Log:       config.Log,
		SuiteFile: config.SuiteFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	policy := retry.DefaultPolicy()
	env := &checks.Env{
		DB:              supa.New(config.SupabaseURL, config.ServiceKey, policy, config.Log),
		Log:             config.Log,
		Thresholds:      checks.DefaultThresholds(),
		SampleCompanies: config.SampleCompanies,
		MinAccuracy:     config.MinAccuracy,
	}
	if config.BaseURL != "" {
		api, err := apiclient.New(config.BaseURL, policy, config.Log)
		if err != nil {
			return nil, fmt.Errorf("failed to create API client: %w", err)
		}
		env.API = api
	}

	var store *history.Store
	if config.HistoryDB != "" {
		store, err = history.Open(config.HistoryDB, config.Log)
		if err != nil {
			return nil, fmt.Errorf("failed to open run history: %w", err)
		}
	}

	h := &Harness{
		ctx:              ctx,
		config:           config,
		version:          version,
		registry:         reg,
		env:              env,
		formatter:        NewConsoleResultFormatter(),
		history:          store,
		shutdownCallback: shutdownCallback,
	}
	h.scheduler = NewDefaultRunScheduler(config.RunInterval, config.RunOnce, config.Log)
	h.scheduler.RegisterCallback(h.runChecks)

	config.Log.Info("harness created")
	return h, nil
}

// Start runs the checks, once or periodically at the configured interval.
func (h *Harness) Start(ctx context.Context) error {
	// Panics anywhere below are runtime errors, exit code 2
	defer func() {
		if r := recover(); r != nil {
			h.config.Log.WithField("error", r).Error("Runtime error occurred")
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	h.ctx = ctx

	if h.config.RunOnce {
		h.config.Log.Info("Starting invoqa in run-once mode")
	} else {
		h.config.Log.WithField("interval", h.config.RunInterval).Info("Starting invoqa in continuous mode")
	}

	if err := h.scheduler.Start(ctx); err != nil {
		h.config.Log.WithError(err).Error("Runtime error running checks")
		if IsRuntimeError(err) {
			return err
		}
		return NewRuntimeError(err)
	}

	// In run-once mode the scheduler has already executed the single run
	if h.config.RunOnce {
		h.config.Log.Info("Checks completed, exiting (run-once mode)")

		if h.result != nil && h.result.Status == types.CheckStatusFail {
			h.config.Log.Warn("Run-once completed with failures, returning exit code 1")
			return NewCheckFailureError(fmt.Sprintf("run %s finished with failed checks", h.result.RunID))
		}

		go func() {
			h.shutdownCallback(nil)
		}()
		return nil // Success (exit code 0)
	}

	h.config.Log.Debug("invoqa started successfully")
	return nil
}

// runChecks validates the environment, executes the target suites, and
// fans the outcomes out to every configured sink.
func (h *Harness) runChecks() error {
	if err := h.validateEnvironment(); err != nil {
		metrics.RecordError("environment validation failed")
		return NewRuntimeError(err)
	}

	reporter := reporting.NewReporter()
	run, err := runner.NewRunner(runner.Config{
		Registry:       h.registry,
		Env:            h.env,
		Log:            h.config.Log,
		RunID:          uuid.NewString(),
		TargetSuite:    h.config.TargetSuite,
		DefaultTimeout: h.config.DefaultTimeout,
		AllowSkips:     h.config.AllowSkips,
	})
	if err != nil {
		return NewRuntimeError(err)
	}

	h.config.Log.WithField("run_id", run.RunID()).Info("Running all checks...")
	result, err := run.Run(h.ctx, reporter)
	if err != nil {
		h.config.Log.WithError(err).Error("Runtime error running checks")
		metrics.RecordError("run failed")
		return NewRuntimeError(err)
	}
	h.result = result

	summary := reporter.Summarize()
	metrics.RecordRun(result.RunID, summary.Passed, summary.Failed, summary.Skipped, summary.PassRate)

	if err := h.persistReports(reporter, result.RunID); err != nil {
		return NewRuntimeError(err)
	}
	if h.history != nil {
		if err := h.history.Save(h.ctx, result.RunID, summary); err != nil {
			// History is advisory, a failed save should not fail the run
			h.config.Log.WithError(err).Warn("failed to save run history")
		}
	}

	if err := h.formatter.FormatResults(result, reporter.Outcomes()); err != nil {
		return NewRuntimeError(err)
	}
	reporting.NewConsolePrinter().PrintSummary(summary)

	h.config.Log.WithFields(logrus.Fields{
		"run_id": result.RunID,
		"status": result.Status,
	}).Info("Run completed")
	return nil
}

// validateEnvironment confirms the services under test are reachable before
// any check runs, so misconfiguration fails fast with a runtime error.
func (h *Harness) validateEnvironment() error {
	if err := h.env.DB.Ping(h.ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	companies, err := h.env.DB.From("companies").Select("id").Count(h.ctx)
	if err != nil {
		h.config.Log.WithError(err).Warn("could not count companies")
	} else if companies == 0 {
		h.config.Log.Warn("no seeded companies, data checks will skip; run 'invoqa seed' first")
	}
	if h.env.API != nil && h.config.TestEmail != "" {
		if err := h.env.API.Login(h.ctx, h.config.TestEmail, h.config.TestPassword); err != nil {
			return fmt.Errorf("login failed for %s: %w", h.config.TestEmail, err)
		}
	}
	return nil
}

// persistReports writes the JSON, HTML, and XLSX artifacts for a run.
func (h *Harness) persistReports(reporter *reporting.Reporter, runID string) error {
	data := reporting.BuildReportData(reporter, runID)

	jsonSink := reporting.NewJSONSink(h.config.ReportDir)
	jsonPath, err := jsonSink.Persist(data)
	if err != nil {
		return fmt.Errorf("failed to persist JSON report: %w", err)
	}

	htmlSink, err := reporting.NewHTMLSink(h.config.ReportDir)
	if err != nil {
		return fmt.Errorf("failed to create HTML sink: %w", err)
	}
	htmlPath, err := htmlSink.Persist(data)
	if err != nil {
		return fmt.Errorf("failed to persist HTML report: %w", err)
	}

	xlsxSink := reporting.NewXLSXSink(h.config.ReportDir)
	xlsxPath, err := xlsxSink.Persist(data)
	if err != nil {
		return fmt.Errorf("failed to persist XLSX report: %w", err)
	}

	h.config.Log.WithFields(logrus.Fields{
		"json": jsonPath,
		"html": htmlPath,
		"xlsx": xlsxPath,
	}).Info("reports written")
	return nil
}

// Result returns the outcome of the most recent run.
func (h *Harness) Result() *runner.RunResult {
	return h.result
}

// Stop stops the harness.
func (h *Harness) Stop(ctx context.Context) error {
	h.config.Log.Info("Stopping invoqa")

	if err := h.scheduler.Stop(); err != nil {
		return err
	}
	if h.history != nil {
		if err := h.history.Close(); err != nil {
			h.config.Log.WithError(err).Warn("failed to close run history")
		}
	}

	h.config.Log.Info("invoqa stopped successfully")
	return nil
}

// Stopped returns true if the harness is stopped.
func (h *Harness) Stopped() bool {
	return h.scheduler.Stopped()
}
