/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/friendsincode/vakt/internal/cache"
	"github.com/friendsincode/vakt/internal/config"
	"github.com/friendsincode/vakt/internal/db"
	"github.com/friendsincode/vakt/internal/eventbus"
	"github.com/friendsincode/vakt/internal/events"
	"github.com/friendsincode/vakt/internal/hours"
	"github.com/friendsincode/vakt/internal/leadership"
	"github.com/friendsincode/vakt/internal/logging"
	"github.com/friendsincode/vakt/internal/models"
	"github.com/friendsincode/vakt/internal/server"
	"github.com/friendsincode/vakt/internal/store"
	"github.com/friendsincode/vakt/internal/telemetry"
	"github.com/friendsincode/vakt/internal/trigger"
	"github.com/friendsincode/vakt/internal/version"
)

var (
	logger zerolog.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "vakt",
	Short: "Vakt - business hours engine",
	Long:  "Vakt evaluates weekly business-hours schedules and keeps agent availability in sync with them.",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the hours engine",
	Long:  "Start the trigger scheduler, lifecycle hooks, and ops endpoint",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = logging.Setup(cfg.Environment)

	if cfg.ServerUTCOffsetOverride {
		hours.OverrideServerUTCOffset(cfg.ServerUTCOffsetHours)
	}
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	database, err := db.Connect(cfg, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.Close(database) }()

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info().Msg("migrations applied")
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logger.Info().Str("version", version.Version).Msg("Vakt starting")

	tracerProvider, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		ServiceName:    "vakt",
		ServiceVersion: version.Version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRate:     cfg.TracingSampleRate,
	}, logger)
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown tracer provider")
		}
	}()

	database, err := db.Connect(cfg, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.Close(database) }()

	if err := db.RegisterCallbacks(database); err != nil {
		return fmt.Errorf("register db callbacks: %w", err)
	}
	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	schedules := store.NewScheduleStore(database, logger)
	agents := store.NewAgentStore(database, logger)
	openSet := cache.New(cache.Config{
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
	}, logger)
	defer func() { _ = openSet.Close() }()

	engine := hours.NewEngine(schedules, agents, openSet, logger)
	editor := hours.NewScheduleEditor(schedules, engine, logger)

	registry := hours.NewRegistry()
	registry.Register(models.KindShared, hours.Strategies{Editor: editor, Behavior: engine})
	registry.Register(models.KindTeam, hours.Strategies{Editor: hours.NewTeamEditor(editor), Behavior: engine})

	bus := events.NewBus()

	// Publisher used by the trigger scheduler; the NATS bridge replaces
	// it when configured so firings reach every instance.
	var publisher events.Publisher = bus
	if cfg.NATSUrl != "" {
		bridgeCfg := eventbus.DefaultConfig()
		bridgeCfg.URL = cfg.NATSUrl
		bridge, err := eventbus.NewBridge(bridgeCfg, bus, logger)
		if err != nil {
			return fmt.Errorf("connect event bridge: %w", err)
		}
		defer bridge.Close()
		publisher = bridge
	}

	hooks := hours.NewHooks(bus, registry, logger)
	hooks.Start(context.Background())
	defer hooks.Stop()

	triggers := trigger.New(engine, publisher, cfg.TriggerRefresh, logger)

	var leaderReporter server.LeaderReporter
	if cfg.LeaderElectionEnabled {
		electionCfg := leadership.DefaultConfig()
		electionCfg.RedisAddr = cfg.RedisAddr
		electionCfg.RedisPassword = cfg.RedisPassword
		electionCfg.RedisDB = cfg.RedisDB
		electionCfg.InstanceID = cfg.InstanceID

		election, err := leadership.NewElection(electionCfg, logger)
		if err != nil {
			return fmt.Errorf("initialize leader election: %w", err)
		}

		la := trigger.NewLeaderAware(triggers, election, logger)
		if err := la.Start(context.Background()); err != nil {
			return fmt.Errorf("start leader-aware trigger scheduler: %w", err)
		}
		defer func() { _ = la.Stop() }()
		leaderReporter = la
	} else {
		if err := triggers.Start(context.Background()); err != nil {
			return fmt.Errorf("start trigger scheduler: %w", err)
		}
		defer triggers.Stop()
	}

	ops := server.NewOps(cfg.OpsBind, database, openSet, leaderReporter, logger)
	go func() {
		if err := ops.Start(); err != nil {
			logger.Fatal().Err(err).Msg("ops server error")
		}
	}()

	poolCtx, poolCancel := context.WithCancel(context.Background())
	defer poolCancel()
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-poolCtx.Done():
				return
			case <-ticker.C:
				db.UpdateConnectionMetrics(database)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down gracefully...")

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ops.Shutdown(timeoutCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("Vakt stopped")
	return nil
}
