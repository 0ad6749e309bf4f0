// atm runs the card-terminal ledger: schema migration, demo provisioning and
// the interactive terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ruralpay/atm/internal/config"
	"github.com/ruralpay/atm/internal/database"
	"github.com/ruralpay/atm/internal/journal"
	"github.com/ruralpay/atm/internal/logging"
	"github.com/ruralpay/atm/internal/metrics"
	"github.com/ruralpay/atm/internal/services"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev" // set by the linker

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds a fresh command tree so tests do not share flag state
func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "atm",
		Short: "Card terminal backed by a transactional ledger",
		Long: `atm authenticates a card against stored card data and lets the holder
withdraw, deposit, transfer between their own accounts, check the balance
and change the PIN. Every balance change is recorded as a ledger entry in
the same transaction.

Configuration comes from an optional file (--config) and ATM_* environment
variables, e.g. ATM_DATABASE_DRIVER=postgres.`,
		SilenceUsage: true,
		Version:      version,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")

	cmd.AddCommand(newMigrateCmd(&cfgFile))
	cmd.AddCommand(newSeedCmd(&cfgFile))
	cmd.AddCommand(newRunCmd(&cfgFile))
	return cmd
}

func newMigrateCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the ledger schema if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *cfgFile)
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func newSeedCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Provision the demo owners, accounts and cards",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *cfgFile)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.provisioning.SeedDemoData(cmd.Context())
			if errors.Is(err, services.ErrDuplicate) {
				return fmt.Errorf("demo data already present: %w", err)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, account := range result.Accounts {
				card := result.Cards[i]
				fmt.Fprintf(out, "account %d (%s, %s) card %s\n",
					account.ID, account.Type, account.Balance, card.Number)
			}
			return nil
		},
	}
}

func newRunCmd(cfgFile *string) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the interactive terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *cfgFile)
			if err != nil {
				return err
			}
			defer a.Close()

			if metricsAddr != "" {
				srv := serveMetrics(metricsAddr, a.logger)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			c := newConsole(cmd.InOrStdin(), cmd.OutOrStdout(), a.terminal)
			return c.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address, e.g. :9090")
	return cmd
}

// app holds everything a subcommand needs. Close releases it in reverse
// order of construction.
type app struct {
	cfg          *config.Config
	logger       *logging.Logger
	db           *database.DB
	redis        *redis.Client
	terminal     *services.Terminal
	provisioning *services.ProvisioningService
}

func newApp(ctx context.Context, cfgFile string) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logger.Level
	logCfg.Format = cfg.Logger.Format
	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	recorder := metrics.NewPrometheusRecorder(cfg.Metrics.Namespace)
	if err := recorder.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Warn("metrics registration failed", zap.Error(err))
	}

	redisClient := database.NewRedis(ctx, cfg.Redis, logger)
	sink := journal.Multi{
		journal.NewAuditLogger(logger),
		journal.NewRedisJournal(redisClient, journal.RedisConfig{
			Key:    cfg.Redis.Key,
			MaxLen: cfg.Redis.MaxLen,
		}, logger),
	}

	opts := []services.Option{
		services.WithRetryPolicy(services.RetryPolicyFromConfig(cfg.Ledger)),
		services.WithJournal(sink),
		services.WithMetrics(recorder),
		services.WithLogger(logger),
	}

	auth := services.NewAuthService(db, opts...)
	ledger := services.NewLedgerService(db, opts...)
	directory := services.NewDirectoryService(db, opts...)

	return &app{
		cfg:          cfg,
		logger:       logger,
		db:           db,
		redis:        redisClient,
		terminal:     services.NewTerminal(auth, ledger, directory),
		provisioning: services.NewProvisioningService(db, opts...),
	}, nil
}

func (a *app) Close() {
	a.terminal.CloseSession()
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func serveMetrics(addr string, logger *logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return srv
}
