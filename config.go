package invoqa

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/aiventory/invoqa/flags"
)

// Config holds the application configuration
type Config struct {
	BaseURL      string // Application under test
	SupabaseURL  string // Supabase project URL
	ServiceKey   string // Supabase service role key
	TestEmail    string // Account used for authenticated API checks
	TestPassword string //

	SuiteFile   string        // Path to the suite config, empty for the default suite
	TargetSuite string        // Suite to run, empty for all
	RunInterval time.Duration // Interval between runs
	RunOnce     bool          // Indicates if the service should exit after one run
	AllowSkips  bool          // Allow checks to be skipped instead of failing when preconditions are not met

	DefaultTimeout  time.Duration // Default timeout for individual checks, can be overridden per check
	SampleCompanies int           // Companies sampled per accuracy check
	MinAccuracy     float64       // Minimum mean accuracy for comparison checks

	ReportDir string // Directory for JSON, HTML, and XLSX artifacts
	HistoryDB string // SQLite history path, empty disables history

	Log logrus.FieldLogger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log logrus.FieldLogger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	minAccuracy := ctx.Float64(flags.MinAccuracy.Name)
	if minAccuracy <= 0 || minAccuracy > 1 {
		return nil, fmt.Errorf("min-accuracy %v outside (0,1]", minAccuracy)
	}

	suiteFile := ctx.String(flags.SuiteFile.Name)
	if suiteFile != "" {
		var err error
		suiteFile, err = filepath.Abs(suiteFile)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for suite config '%s': %w", ctx.String(flags.SuiteFile.Name), err)
		}
	}

	reportDir, err := filepath.Abs(ctx.String(flags.ReportDir.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for report directory '%s': %w", ctx.String(flags.ReportDir.Name), err)
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)
	runOnce := runInterval == 0

	cfg := &Config{
		BaseURL:         ctx.String(flags.BaseURL.Name),
		SupabaseURL:     ctx.String(flags.SupabaseURL.Name),
		ServiceKey:      ctx.String(flags.ServiceKey.Name),
		TestEmail:       ctx.String(flags.TestEmail.Name),
		TestPassword:    ctx.String(flags.TestPassword.Name),
		SuiteFile:       suiteFile,
		TargetSuite:     ctx.String(flags.Suite.Name),
		RunInterval:     runInterval,
		RunOnce:         runOnce,
		AllowSkips:      ctx.Bool(flags.AllowSkips.Name),
		DefaultTimeout:  ctx.Duration(flags.DefaultTimeout.Name),
		SampleCompanies: ctx.Int(flags.SampleCompanies.Name),
		MinAccuracy:     minAccuracy,
		ReportDir:       reportDir,
		HistoryDB:       ctx.String(flags.HistoryDB.Name),
		Log:             log,
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations the harness cannot run with.
func (c *Config) Validate() error {
	if c.SupabaseURL == "" {
		return errors.New("supabase url is required")
	}
	if c.ServiceKey == "" {
		return errors.New("service key is required")
	}
	return nil
}
