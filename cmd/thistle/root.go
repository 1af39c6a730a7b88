package main

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/thistle/config"
	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/logging"
)

var version = "dev"

// app carries what every command needs once config is loaded
type app struct {
	cfg        *config.Config
	benchmarks config.Benchmarks
	logger     ectologger.Logger
	flush      func()
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "thistle",
		Short:         "Supplier negotiation and decision service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.flush != nil {
				a.flush()
			}
		},
	}

	root.AddCommand(newServeCommand(a), newMigrateCommand(a), newDecideCommand(a))
	return root
}

func (a *app) init() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	benchmarks, err := cfg.LoadBenchmarks()
	if err != nil {
		return err
	}
	logger, flush, err := logging.NewLogger(logging.Config{
		AppName: cfg.AppName,
		Level:   cfg.LogLevel,
		Pretty:  cfg.PrettyLogs,
	})
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.benchmarks = benchmarks
	a.logger = logger
	a.flush = flush
	return nil
}

func (a *app) connect(ctx context.Context) (database.DB, error) {
	db, err := database.Connect(ctx, a.cfg.Database(), a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func (a *app) migrate(db database.DB) error {
	return database.NewMigrationService(a.logger, a.cfg.Migration()).Migrate(db.DBx().DB, a.cfg.DatabaseName)
}
