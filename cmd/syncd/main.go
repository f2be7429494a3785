package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tradesync/internal/backend"
	"tradesync/internal/config"
	"tradesync/internal/poller"
	"tradesync/internal/storage"
	"tradesync/internal/storage/postgres"
	"tradesync/internal/store"
)

func main() {
	root := &cobra.Command{
		Use:          "syncd",
		Short:        "DEX front-end data synchronizer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the polling coordinator",
		RunE:  runSync,
	}

	runCmd.Flags().String("backend", "", "backend gateway base URL")
	runCmd.Flags().Int("max-retries", 2, "maximum fetch retry attempts")
	runCmd.Flags().Duration("retry-backoff", 200*time.Millisecond, "initial retry backoff")
	runCmd.Flags().Duration("fast-interval", time.Second, "active-market poll interval")
	runCmd.Flags().Duration("medium-interval", 8*time.Second, "visible-market poll interval")
	runCmd.Flags().Duration("slow-interval", 15*time.Second, "user-data poll interval")
	runCmd.Flags().Duration("fetch-timeout", 10*time.Second, "per-fetch timeout")
	runCmd.Flags().Duration("prune-ttl", 30*time.Minute, "entity staleness TTL")
	runCmd.Flags().String("active-market", "", "market to track on the fast tier")
	runCmd.Flags().StringSlice("visible-market", nil, "markets to register as visible (comma-separated)")
	runCmd.Flags().String("principal", "", "acting user principal")
	runCmd.Flags().String("journal", "", "price journal JSONL path (empty disables)")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN for the price journal (empty disables)")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSync(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.BackendURL == "" {
		return fmt.Errorf("backend url is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := backend.NewHTTPClient(cfg.BackendURL,
		backend.WithTimeout(cfg.FetchTimeout),
		backend.WithRetries(cfg.MaxRetries, cfg.RetryBackoff),
		backend.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("build backend client: %w", err)
	}

	entityStore := store.New(logger)

	if sink, closeSink, err := newJournal(ctx, cfg); err != nil {
		return err
	} else if sink != nil {
		defer closeSink()
		recorder := storage.NewRecorder(entityStore, sink, logger)
		entityStore.Subscribe(recorder.OnUpdate)
	}

	coordinator := poller.New(poller.Config{
		FastInterval:   cfg.FastInterval,
		MediumInterval: cfg.MediumInterval,
		SlowInterval:   cfg.SlowInterval,
		FetchTimeout:   cfg.FetchTimeout,
		PruneTTL:       cfg.PruneTTL,
	}, client, entityStore, poller.Handlers{}, logger)

	if cfg.Principal != "" {
		coordinator.SetIdentity(cfg.Principal)
	}
	if cfg.ActiveMarket != "" {
		coordinator.SetActiveMarket(cfg.ActiveMarket)
	}
	for _, marketID := range cfg.VisibleMarkets {
		coordinator.RegisterMarket(marketID)
	}

	logger.Info("syncd start",
		zap.String("backend", cfg.BackendURL),
		zap.String("active_market", cfg.ActiveMarket),
		zap.Int("visible_markets", len(cfg.VisibleMarkets)),
		zap.Bool("authenticated", cfg.Principal != ""),
		zap.Bool("journal", cfg.JournalPath != "" || cfg.PGDSN != ""),
	)

	if err := coordinator.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	coordinator.Stop()
	return nil
}

func newJournal(ctx context.Context, cfg config.Config) (storage.Storage, func(), error) {
	if cfg.PGDSN != "" {
		pgStore, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return pgStore, pgStore.Close, nil
	}
	if cfg.JournalPath != "" {
		return storage.NewJsonlStorage(cfg.JournalPath), func() {}, nil
	}
	return nil, nil, nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
