package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/ashureev/cohub/internal/config"
	"github.com/ashureev/cohub/internal/store"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

type options struct {
	envFile string
	dbPath  string
	verbose bool
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "cohubctl",
		Short: "Operate a CoHub dashboard database",
		Long: `cohubctl talks to the same SQLite database as the CoHub server.

Quick Start:
  cohubctl seed fixtures.yaml          # Load payments, issues, residents, properties
  cohubctl payments                    # List payments as the dashboard shows them
  cohubctl ask "status of John Smith"  # Run one message through the assistant
  cohubctl health --addr localhost:9090`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load()
		},
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (overrides DB_PATH)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(
		newAskCmd(opts),
		newSeedCmd(opts),
		newPaymentsCmd(opts),
		newHealthCmd(opts),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (o *options) load() error {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", o.envFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	o.cfg = cfg
	return nil
}

func (o *options) openStore() (store.Repository, error) {
	repo, err := store.NewSQLite(o.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", o.cfg.DBPath, err)
	}
	return repo, nil
}
