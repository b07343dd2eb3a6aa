package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-shop-catalog/catalog"
	"github.com/aluiziolira/go-shop-catalog/config"
	"github.com/aluiziolira/go-shop-catalog/models"
	"github.com/aluiziolira/go-shop-catalog/pipeline"
	"github.com/aluiziolira/go-shop-catalog/scraper"
)

// crawlOptions are the crawler tuning flags of serve and scrape-now.
type crawlOptions struct {
	parallelism     int
	maxPages        int
	maxRetries      int
	timeout         time.Duration
	continueOnError bool
}

func (c *crawlOptions) register(cmd *cobra.Command) {
	defaults := config.DefaultConfig()
	flags := cmd.Flags()
	flags.IntVar(&c.parallelism, "parallel", 0, "Concurrent page fetches (default from SHOPCATALOG_PARALLEL or 1)")
	flags.IntVar(&c.maxPages, "max-pages", -1, "Maximum pages per run, 0 for unbounded (default from SHOPCATALOG_MAX_PAGES or 0)")
	flags.IntVar(&c.maxRetries, "max-retries", defaults.MaxRetries, "Retry attempts for transient fetch failures")
	flags.DurationVar(&c.timeout, "timeout", defaults.Timeout, "Per-request timeout")
	flags.BoolVar(&c.continueOnError, "continue-on-error", false, "Skip pages that fail to fetch instead of aborting the run")
}

func (c *crawlOptions) apply(cfg *config.Config) {
	if c.parallelism > 0 {
		cfg.Parallelism = c.parallelism
	}
	if c.maxPages >= 0 {
		cfg.MaxPages = c.maxPages
	}
	cfg.MaxRetries = c.maxRetries
	cfg.Timeout = c.timeout
	cfg.ContinueOnFetchError = c.continueOnError
}

// buildIngestor wires crawler, synchronizer and reader cache invalidation.
// Run metrics are registered on reg when it is non-nil; the returned
// gatherer serves the crawler's own metrics.
func buildIngestor(cfg *config.Config, store catalog.Store, reader *catalog.Reader, reg prometheus.Registerer) (*pipeline.Ingestor, prometheus.Gatherer, error) {
	s, err := scraper.NewScraper(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initialising scraper: %w", err)
	}

	opts := []pipeline.Option{
		pipeline.WithMetrics(pipeline.NewRunMetrics(reg)),
	}
	if reader != nil {
		opts = append(opts, pipeline.WithSyncHook(func(*catalog.SyncReport) {
			reader.Invalidate()
		}))
	}

	loader := config.FileLoader{Path: cfg.CatalogFile}
	return pipeline.NewIngestor(loader, s, catalog.NewSynchronizer(store), opts...), s.Metrics.Registry, nil
}

func newScrapeNowCmd(root *rootOptions) *cobra.Command {
	crawl := &crawlOptions{}
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "scrape-now",
		Short: "Run one ingestion immediately",
		Long: `Crawl every configured URL, categorize the items and replace the stored
catalog with the result. With --dry-run the catalog is synced into memory and
only summarised, leaving the database untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := root.cfg
			crawl.apply(cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var (
				store  catalog.Store
				memory *catalog.MemoryStore
			)
			if dryRun {
				memory = catalog.NewMemoryStore()
				store = memory
			} else {
				dbStore, db, err := root.openStore(ctx)
				if err != nil {
					return err
				}
				defer closeDB(db)
				store = dbStore
			}

			ingestor, _, err := buildIngestor(cfg, store, nil, nil)
			if err != nil {
				return err
			}

			slog.Info("starting scrape",
				slog.String("catalog", cfg.CatalogFile),
				slog.Int("workers", cfg.Parallelism),
				slog.Bool("dry_run", dryRun),
			)
			result, runErr := ingestor.Run(ctx)
			if result != nil {
				printRunSummary(cmd.OutOrStdout(), result)
			}
			if memory != nil && runErr == nil {
				printDryRun(ctx, cmd.OutOrStdout(), memory)
			}
			return runErr
		},
	}

	crawl.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Sync into memory and print the categorized result")
	return cmd
}

func printRunSummary(w io.Writer, result *models.RunResult) {
	separator := "--------------------------------------------------"
	fmt.Fprintln(w, separator)
	switch result.State {
	case models.RunDone:
		fmt.Fprintln(w, "Ingestion complete")
	case models.RunPartiallyFailed:
		fmt.Fprintln(w, "Ingestion partially applied, re-run to finish the update")
	default:
		fmt.Fprintln(w, "Ingestion failed, stored catalog unchanged")
	}
	fmt.Fprintf(w, "  State:          %s\n", result.State)
	fmt.Fprintf(w, "  Pages:          %d\n", result.PageCount)
	fmt.Fprintf(w, "  Items:          %d\n", result.ItemCount)
	fmt.Fprintf(w, "  Categories:     %d\n", result.CategoryCount)
	fmt.Fprintf(w, "  Synced:         %d\n", result.CategoriesSynced)
	fmt.Fprintf(w, "  Dropped:        %d\n", result.DatasetsDropped)
	if len(result.FailedURLs) > 0 {
		fmt.Fprintf(w, "  Failed URLs:    %d\n", len(result.FailedURLs))
	}
	fmt.Fprintf(w, "  Duration:       %s\n", formatDuration(result.EndTime.Sub(result.StartTime)))
	if result.Err != nil {
		fmt.Fprintf(w, "  Error:          %v\n", result.Err)
	}
	fmt.Fprintln(w, separator)
}

func printDryRun(ctx context.Context, w io.Writer, store *catalog.MemoryStore) {
	ids, _ := store.ListDatasets(ctx)
	for _, id := range ids {
		fmt.Fprintf(w, "%-40s %5d items\n", catalog.DisplayName(id)+" ("+id+")", len(store.Rows(id)))
	}
}
