package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/iudanet/docsync/internal/config"
	"github.com/iudanet/docsync/internal/logger"
	"github.com/iudanet/docsync/internal/server"
	"github.com/iudanet/docsync/internal/server/metrics"
	"github.com/iudanet/docsync/internal/server/notify"
	"github.com/iudanet/docsync/internal/server/storage"
	"github.com/iudanet/docsync/internal/server/storage/mongo"
	"github.com/iudanet/docsync/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadServer(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	// Show version and exit if requested
	if cfg.ShowVersion {
		printVersion()
		return nil
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Failed to close storage", "error", err)
		}
	}()
	log.Info("Storage opened", "driver", cfg.Storage.Driver)

	notifier := notify.New(log)
	opts := server.Options{
		Store:    store,
		Metrics:  metrics.New(),
		Notifier: notifier,
		Version:  Version,
	}

	// Сигналы изменений между экземплярами сервера
	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL,
			nats.Name("docsync-server"),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			return fmt.Errorf("failed to connect to nats: %w", err)
		}
		defer nc.Close()

		bridge := notify.NewBridge(notifier, nc, log)
		if err := bridge.Start(); err != nil {
			return err
		}
		defer func() {
			if err := bridge.Stop(); err != nil {
				log.Error("Failed to stop nats bridge", "error", err)
			}
		}()
		opts.Broadcaster = bridge
		log.Info("Change signals shared over NATS", "url", cfg.NATS.URL)
	}

	log.Info("Starting docsync server", "version", Version, "addr", cfg.HTTP.Addr)

	return server.New(log, cfg, opts).Run(ctx)
}

func openStorage(ctx context.Context, cfg *config.ServerConfig) (storage.DocumentStore, error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		return sqlite.New(ctx, cfg.Storage.SQLitePath)
	case config.DriverMongo:
		return mongo.New(ctx, cfg.Storage.MongoURI, cfg.Storage.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func printVersion() {
	fmt.Printf("docsync server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
