package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"territoryd/pkg/bus"
	"territoryd/pkg/db"
	"territoryd/pkg/telemetry"
	"territoryd/services/api"
	"territoryd/services/session"
)

const serviceName = "territoryd"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "territoryd",
		Short:         "Session coordination service for field outreach tracking",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newSweepCommand())
	cmd.AddCommand(newMigrateCommand())
	return cmd
}

func setupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the expiry sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func serve() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()
	setupLogging()

	cfg, err := LoadConfig(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	shutdownTracing, err := telemetry.Init(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown tracing")
		}
	}()

	pool, err := db.Open(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	orm, err := db.OpenORM(cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("connect orm: %w", err)
	}
	defer func() {
		if err := db.CloseORM(orm); err != nil {
			log.Error().Err(err).Msg("close orm")
		}
	}()

	// The bus is optional: without NATS the service still serves CRUD and
	// join traffic, it just cannot push live updates.
	var eventBus *bus.Bus
	if cfg.NATSURL != "" {
		eventBus, err = bus.Connect(cfg.NATSURL, log.Logger)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer eventBus.Close()
	} else {
		log.Warn().Msg("NATS_URL not set; live update channel disabled")
	}

	store, err := session.NewPostgresStore(pool)
	if err != nil {
		return err
	}

	managerCfg := &session.ManagerConfig{
		Store:        store,
		Lifetime:     cfg.SessionLifetime,
		CodeLength:   cfg.CodeLength,
		CodeAttempts: cfg.CodeAttempts,
		Logger:       log.Logger,
	}
	if eventBus != nil {
		managerCfg.Bus = eventBus
	}

	manager, err := session.NewManager(managerCfg)
	if err != nil {
		return err
	}

	resolver, err := session.NewResolver(&session.ResolverConfig{
		Store:  store,
		Logger: log.Logger,
	})
	if err != nil {
		return err
	}

	var live *session.Channel
	if eventBus != nil {
		live, err = session.NewChannel(eventBus, log.Logger)
		if err != nil {
			return err
		}
	}

	sweeper, err := session.NewSweeper(manager, cfg.SweepInterval, log.Logger)
	if err != nil {
		return err
	}
	go sweeper.Run(ctx)

	app, err := api.New(&api.Store{DB: pool, ORM: orm, Bus: eventBus}, manager, resolver, live, api.Config{
		OperatorToken:  cfg.OperatorToken,
		AllowedOrigins: cfg.AllowedOrigins,
	}, log.Logger)
	if err != nil {
		return err
	}

	routes, err := app.Routes()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           telemetry.Middleware(serviceName)(routes),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("starting territoryd")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func newSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "End expired sessions once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			_ = godotenv.Load()
			setupLogging()

			cfg, err := LoadConfig(ctx)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			pool, err := db.Open(ctx, cfg.DBDSN)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()

			store, err := session.NewPostgresStore(pool)
			if err != nil {
				return err
			}

			manager, err := session.NewManager(&session.ManagerConfig{
				Store:  store,
				Logger: log.Logger,
			})
			if err != nil {
				return err
			}

			ended, err := manager.Sweep(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "ended %d expired sessions\n", ended)
			return nil
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			_ = godotenv.Load()
			setupLogging()

			cfg, err := LoadConfig(ctx)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			pool, err := db.Open(ctx, cfg.DBDSN)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()

			return db.Migrate(ctx, pool)
		},
	}
}
