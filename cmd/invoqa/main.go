package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	invoqa "github.com/aiventory/invoqa"
	"github.com/aiventory/invoqa/flags"
	"github.com/aiventory/invoqa/history"
	"github.com/aiventory/invoqa/retry"
	"github.com/aiventory/invoqa/seed"
	"github.com/aiventory/invoqa/service"
	"github.com/aiventory/invoqa/supa"
)

var (
	Version   = "v0.3.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	// Load .env before the CLI resolves flag env vars, matching how the
	// deployment stores its Supabase credentials.
	_ = godotenv.Load()

	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "invoqa"
	app.Usage = "Business logic validation service for AIVentory deployments"
	app.Description = "invoqa recomputes inventory analytics from raw data and checks the application's answers"
	app.Flags = flags.Flags
	app.Action = run
	app.Commands = []*cli.Command{
		{
			Name:   "seed",
			Usage:  "Populate the deployment with synthetic commerce data",
			Flags:  append([]cli.Flag{flags.SupabaseURL, flags.ServiceKey, flags.LogLevel, flags.LogFormat}, flags.SeedFlags...),
			Action: runSeed,
		},
		{
			Name:  "history",
			Usage: "Show recent run summaries from the history database",
			Flags: []cli.Flag{
				flags.HistoryDB,
				&cli.IntFlag{Name: "limit", Value: 10, Usage: "Number of runs to show"},
			},
			Action: runHistory,
		},
	}
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			if invoqa.IsRuntimeError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), 2))
			} else if invoqa.IsCheckFailureError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), 1))
			} else {
				cli.HandleExitCoder(cli.Exit(err.Error(), 1))
			}
		}
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("Application failed")
	}
}

func newLogger(ctx *cli.Context) (*logrus.Logger, error) {
	log := logrus.New()
	level, err := logrus.ParseLevel(ctx.String(flags.LogLevel.Name))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	log.SetLevel(level)
	if ctx.String(flags.LogFormat.Name) == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log, nil
}

func run(cctx *cli.Context) error {
	if envFile := cctx.String(flags.EnvFile.Name); envFile != "" {
		if err := godotenv.Overload(envFile); err != nil {
			return invoqa.NewRuntimeError(fmt.Errorf("failed to load env file %s: %w", envFile, err))
		}
	}

	log, err := newLogger(cctx)
	if err != nil {
		return invoqa.NewRuntimeError(err)
	}

	cfg, err := invoqa.NewConfig(cctx, log)
	if err != nil {
		return invoqa.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	ctx, stop := signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	harness, err := invoqa.New(ctx, cfg, Version, func(error) { cancel() })
	if err != nil {
		return invoqa.NewRuntimeError(fmt.Errorf("failed to create harness: %w", err))
	}

	if cfg.RunOnce {
		err := harness.Start(ctx)
		_ = harness.Stop(ctx)
		return err
	}

	// Continuous mode also serves healthz and metrics
	svc := service.New(log)
	svc.Start(ctx)
	defer svc.Shutdown()

	if err := harness.Start(ctx); err != nil {
		_ = harness.Stop(ctx)
		return err
	}

	<-ctx.Done()
	return harness.Stop(context.Background())
}

func runSeed(cctx *cli.Context) error {
	log, err := newLogger(cctx)
	if err != nil {
		return invoqa.NewRuntimeError(err)
	}
	if err := flags.CheckRequired(cctx); err != nil {
		return invoqa.NewRuntimeError(err)
	}

	db := supa.New(cctx.String(flags.SupabaseURL.Name), cctx.String(flags.ServiceKey.Name), retry.DefaultPolicy(), log)
	seeder, err := seed.New(seed.Config{
		DB:                db,
		Log:               log,
		Companies:         cctx.Int(flags.SeedCompanies.Name),
		OrdersPerCompany:  cctx.Int(flags.SeedOrders.Name),
		HistoryDays:       cctx.Int(flags.SeedHistoryDays.Name),
		DeadStockFraction: cctx.Float64(flags.SeedDeadStock.Name),
		Seed:              cctx.Uint64(flags.SeedValue.Name),
	})
	if err != nil {
		return invoqa.NewRuntimeError(err)
	}

	stats, err := seeder.Run(cctx.Context)
	if err != nil {
		return invoqa.NewRuntimeError(err)
	}

	log.WithFields(logrus.Fields{
		"companies_seeded":  stats.CompaniesSeeded,
		"companies_skipped": stats.CompaniesSkipped,
		"products":          stats.Products,
		"variants":          stats.Variants,
		"orders":            stats.Orders,
		"line_items":        stats.LineItems,
	}).Info("seeding finished")
	return nil
}

func runHistory(cctx *cli.Context) error {
	path := cctx.String(flags.HistoryDB.Name)
	if path == "" {
		return invoqa.NewRuntimeError(errors.New("history-db is required"))
	}

	log := logrus.New()
	store, err := history.Open(path, log)
	if err != nil {
		return invoqa.NewRuntimeError(err)
	}
	defer store.Close()

	entries, err := store.Recent(cctx.Context, cctx.Int("limit"))
	if err != nil {
		return invoqa.NewRuntimeError(err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Recent Runs")
	t.AppendHeader(table.Row{"Run ID", "Started", "Checks", "Passed", "Failed", "Skipped", "Pass Rate", "Duration"})
	for _, e := range entries {
		t.AppendRow(table.Row{
			e.RunID,
			e.StartedAt.Format("2006-01-02 15:04:05"),
			e.Total,
			e.Passed,
			e.Failed,
			e.Skipped,
			fmt.Sprintf("%.1f%%", e.PassRate),
			e.TotalDuration,
		})
	}
	t.Render()
	return nil
}
