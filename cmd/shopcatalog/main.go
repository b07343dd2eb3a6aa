// Command shopcatalog crawls shop catalog pages, sorts the items into
// categories and keeps one Postgres table per category.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
	_ "time/tzdata" // schedule time zones in minimal containers

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-shop-catalog/catalog"
	"github.com/aluiziolira/go-shop-catalog/config"
	"github.com/aluiziolira/go-shop-catalog/database"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootOptions are the flags shared by every command.
type rootOptions struct {
	envFile     string
	catalogFile string
	databaseURL string
	timeZone    string
	verbose     bool

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "shopcatalog",
		Short:         "Crawl a shop catalog into per-category tables",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.envFile, "env-file", ".env", "Environment file loaded before reading configuration")
	flags.StringVarP(&opts.catalogFile, "config", "c", "", "Catalog YAML file (urls, selectors, categories)")
	flags.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flags.StringVar(&opts.timeZone, "tz", "", "Time zone for the daily schedule (overrides TZ)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(
		newServeCmd(opts),
		newScrapeNowCmd(opts),
		newCategoriesCmd(opts),
		newItemsCmd(opts),
		newExportCmd(opts),
	)
	return cmd
}

// load builds the runtime config from defaults, the env file, the
// environment and finally flags.
func (o *rootOptions) load(cmd *cobra.Command) error {
	logger, level := newLogger(o.verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := config.LoadEnv(o.envFile); err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	if err := config.ApplyEnv(cfg); err != nil {
		return fmt.Errorf("invalid environment: %w", err)
	}
	if o.catalogFile != "" {
		cfg.CatalogFile = o.catalogFile
	}
	if o.databaseURL != "" {
		cfg.DatabaseURL = o.databaseURL
	}
	if o.timeZone != "" {
		cfg.TimeZone = o.timeZone
	}
	cfg.Verbose = o.verbose

	o.cfg = cfg
	return nil
}

// openStore connects to Postgres and returns the dataset store.
func (o *rootOptions) openStore(ctx context.Context) (*database.DatasetStore, *sqlx.DB, error) {
	db, err := database.NewPostgresConnection(ctx, o.cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return database.NewDatasetStore(db), db, nil
}

func (o *rootOptions) newReader(store catalog.ReadStore) *catalog.Reader {
	return catalog.NewReader(store, o.cfg.CacheSize, o.cfg.CacheTTL)
}

func closeDB(db *sqlx.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		slog.Error("close database", slog.Any("error", err))
	}
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
