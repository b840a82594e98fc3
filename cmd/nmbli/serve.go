package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/nmbli/concierge/internal/config"
	"github.com/nmbli/concierge/internal/db"
	"github.com/nmbli/concierge/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and round scheduler",
		Long:  "Connects to the database, migrates tables, starts the negotiation scheduler, and serves the HTTP API until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "nmbli.yaml", "path to config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gdb, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		return err
	}
	fmt.Fprintf(out, "Database ready (%s)\n", cfg.DB.Driver)

	orch, engine, parser, notifier := buildStack(cfg, gdb)

	stop := engine.StartScheduler(time.Duration(cfg.Rounds.TickIntervalSec) * time.Second)
	defer stop()
	fmt.Fprintf(out, "Round scheduler running every %ds\n", cfg.Rounds.TickIntervalSec)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return server.Start(ctx, server.StartOpts{
		DB:           gdb,
		Port:         cfg.Server.Port,
		Orchestrator: orch,
		Engine:       engine,
		Parser:       parser,
		Notifier:     notifier,
		Out:          out,
	})
}
