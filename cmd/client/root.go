package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	clientapi "github.com/iudanet/docsync/internal/client/api"
	"github.com/iudanet/docsync/internal/client/cli"
	"github.com/iudanet/docsync/internal/client/iocli"
	"github.com/iudanet/docsync/internal/client/replication"
	"github.com/iudanet/docsync/internal/client/storage/boltdb"
	"github.com/iudanet/docsync/internal/config"
	"github.com/iudanet/docsync/internal/logger"
)

// app состояние, общее для всех команд одного запуска
type app struct {
	cfg   *config.ClientConfig
	store *boltdb.Storage
	cli   *cli.Cli

	configPath string
	serverURL  string
	dbPath     string
	logLevel   string
	batchSize  int
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "docsync-client",
		Short:         "Local document store replicated with a docsync server",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd)
		},
	}
	root.SetVersionTemplate(versionTemplate())

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to YAML config file")
	flags.StringVar(&a.serverURL, "server", "", "Server URL (default http://localhost:3001)")
	flags.StringVar(&a.dbPath, "db", "", "Path to local database (default docsync-client.db)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.IntVar(&a.batchSize, "batch-size", 0, "Documents per pull request")

	root.AddCommand(
		newPutCmd(a),
		newDeleteCmd(a),
		newListCmd(a),
		newSyncCmd(a),
		newReplicateCmd(a),
		newStatusCmd(a),
		newResetCmd(a),
	)
	return root
}

// open собирает конфигурацию и открывает локальную базу
func (a *app) open(cmd *cobra.Command) error {
	cfg, err := config.LoadClient(a.configPath)
	if err != nil {
		return err
	}

	// Явно заданные флаги перекрывают файл и окружение
	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.ServerURL = a.serverURL
	}
	if flags.Changed("db") {
		cfg.DBPath = a.dbPath
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("batch-size") {
		cfg.BatchSize = a.batchSize
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return err
	}

	store, err := boltdb.New(cmd.Context(), cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	a.store = store

	apiClient := clientapi.NewClient(cfg.ServerURL, cfg.RequestTimeout)
	apiClient.SetStreamIdleTimeout(cfg.StreamIdleTimeout)
	opts := replication.Options{
		BatchSize:     cfg.BatchSize,
		RetryInterval: cfg.RetryInterval,
		PollInterval:  cfg.PollInterval,
		Live:          true,
	}

	a.cli = cli.New(iocli.NewStdio(), store, func(collection string) cli.Replicator {
		return replication.New(collection, apiClient, store, log, opts)
	})
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	store := a.store
	a.store = nil
	if err := store.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
