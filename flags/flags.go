// Package flags declares the CLI flags of the harness. Every flag is also
// settable through an INVOQA_ prefixed environment variable.
package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "INVOQA"

func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	BaseURL = &cli.StringFlag{
		Name:    "base-url",
		Value:   "",
		EnvVars: prefixEnvVars("BASE_URL"),
		Usage:   "Base URL of the application under test (eg. 'http://localhost:3000')",
	}
	SupabaseURL = &cli.StringFlag{
		Name:    "supabase-url",
		Value:   "",
		EnvVars: append(prefixEnvVars("SUPABASE_URL"), "NEXT_PUBLIC_SUPABASE_URL"),
		Usage:   "URL of the Supabase project backing the application",
	}
	ServiceKey = &cli.StringFlag{
		Name:    "service-key",
		Value:   "",
		EnvVars: append(prefixEnvVars("SERVICE_KEY"), "SUPABASE_SERVICE_ROLE_KEY"),
		Usage:   "Supabase service role key used for direct table reads",
	}
	SuiteFile = &cli.StringFlag{
		Name:    "suites",
		Value:   "",
		EnvVars: prefixEnvVars("SUITES"),
		Usage:   "Path to suite config file (eg. 'suites.yaml'). Omit to run every check.",
	}
	Suite = &cli.StringFlag{
		Name:    "suite",
		Value:   "",
		EnvVars: prefixEnvVars("SUITE"),
		Usage:   "Suite to run (eg. 'accuracy'). Omit to run all configured suites.",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: prefixEnvVars("RUN_INTERVAL"),
		Usage:   "Interval between runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
	AllowSkips = &cli.BoolFlag{
		Name:    "allow-skips",
		Usage:   "Allow checks to be skipped when preconditions aren't met",
		Value:   false,
		EnvVars: prefixEnvVars("ALLOW_SKIPS"),
	}
	ReportDir = &cli.StringFlag{
		Name:    "report-dir",
		Value:   "reports",
		EnvVars: prefixEnvVars("REPORT_DIR"),
		Usage:   "Directory to write JSON, HTML, and XLSX reports into",
	}
	HistoryDB = &cli.StringFlag{
		Name:    "history-db",
		Value:   "",
		EnvVars: prefixEnvVars("HISTORY_DB"),
		Usage:   "Path to the SQLite run history database. Omit to disable history.",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
		Usage:   "Log level (trace, debug, info, warn, error)",
	}
	LogFormat = &cli.StringFlag{
		Name:    "log-format",
		Value:   "text",
		EnvVars: prefixEnvVars("LOG_FORMAT"),
		Usage:   "Log format (text, json)",
	}
	EnvFile = &cli.StringFlag{
		Name:    "env-file",
		Value:   "",
		EnvVars: prefixEnvVars("ENV_FILE"),
		Usage:   "Path to a .env file to load before reading configuration",
	}
	DefaultTimeout = &cli.DurationFlag{
		Name:    "default-timeout",
		Value:   0,
		EnvVars: prefixEnvVars("DEFAULT_TIMEOUT"),
		Usage:   "Default timeout for individual checks, can be overridden per check in the suite file",
	}
	SampleCompanies = &cli.IntFlag{
		Name:    "sample-companies",
		Value:   3,
		EnvVars: prefixEnvVars("SAMPLE_COMPANIES"),
		Usage:   "Number of companies sampled per accuracy check",
	}
	MinAccuracy = &cli.Float64Flag{
		Name:    "min-accuracy",
		Value:   0.8,
		EnvVars: prefixEnvVars("MIN_ACCURACY"),
		Usage:   "Minimum mean accuracy for comparison checks (0..1)",
	}
	TestEmail = &cli.StringFlag{
		Name:    "test-email",
		Value:   "",
		EnvVars: append(prefixEnvVars("TEST_EMAIL"), "TEST_USER_EMAIL"),
		Usage:   "Email of the account used for authenticated API checks",
	}
	TestPassword = &cli.StringFlag{
		Name:    "test-password",
		Value:   "",
		EnvVars: append(prefixEnvVars("TEST_PASSWORD"), "TEST_USER_PASSWORD"),
		Usage:   "Password of the account used for authenticated API checks",
	}

	// Seeding knobs, used by the seed subcommand.
	SeedCompanies = &cli.IntFlag{
		Name:    "companies",
		Value:   5,
		EnvVars: prefixEnvVars("SEED_COMPANIES"),
		Usage:   "Companies to ensure exist when seeding",
	}
	SeedOrders = &cli.IntFlag{
		Name:    "orders",
		Value:   20,
		EnvVars: prefixEnvVars("SEED_ORDERS"),
		Usage:   "Orders generated per seeded company",
	}
	SeedHistoryDays = &cli.IntFlag{
		Name:    "history-days",
		Value:   180,
		EnvVars: prefixEnvVars("SEED_HISTORY_DAYS"),
		Usage:   "Order dates are spread over this many days",
	}
	SeedDeadStock = &cli.Float64Flag{
		Name:    "dead-stock-fraction",
		Value:   0.2,
		EnvVars: prefixEnvVars("SEED_DEAD_STOCK_FRACTION"),
		Usage:   "Share of seeded variants left with zero sales",
	}
	SeedValue = &cli.Uint64Flag{
		Name:    "seed",
		Value:   0,
		EnvVars: prefixEnvVars("SEED"),
		Usage:   "Deterministic seed for generated data (0 = random)",
	}
)

var requiredFlags = []cli.Flag{
	SupabaseURL,
	ServiceKey,
}

var optionalFlags = []cli.Flag{
	BaseURL,
	SuiteFile,
	Suite,
	RunInterval,
	AllowSkips,
	ReportDir,
	HistoryDB,
	LogLevel,
	LogFormat,
	EnvFile,
	DefaultTimeout,
	SampleCompanies,
	MinAccuracy,
	TestEmail,
	TestPassword,
}

var Flags []cli.Flag

func init() {
	Flags = append(requiredFlags, optionalFlags...)
}

// SeedFlags are the extra flags of the seed subcommand.
var SeedFlags = []cli.Flag{
	SeedCompanies,
	SeedOrders,
	SeedHistoryDays,
	SeedDeadStock,
	SeedValue,
}

// CheckRequired validates that the required flags are set, either on the
// command line or through the environment.
func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		name := f.Names()[0]
		if !ctx.IsSet(name) && ctx.String(name) == "" {
			return fmt.Errorf("flag %s is required", name)
		}
	}
	return nil
}
