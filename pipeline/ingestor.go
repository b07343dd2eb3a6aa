// Package pipeline runs catalog ingestion end to end and exports the stored
// catalog.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aluiziolira/go-shop-catalog/catalog"
	"github.com/aluiziolira/go-shop-catalog/categorizer"
	"github.com/aluiziolira/go-shop-catalog/config"
	"github.com/aluiziolira/go-shop-catalog/models"
	"github.com/aluiziolira/go-shop-catalog/scraper"
)

var (
	// ErrRunInProgress is returned when a run is triggered while another is
	// still executing.
	ErrRunInProgress = errors.New("pipeline: ingestion run already in progress")
	// ErrNothingCrawled is returned when every page failed under the soft
	// crawl policy; the stored catalog is left untouched.
	ErrNothingCrawled = errors.New("pipeline: no page was crawled successfully")
)

// CatalogLoader supplies the crawl plan and category rules for a run.
type CatalogLoader interface {
	Load() (*config.Catalog, error)
}

// Crawler collects items from seeds and their pagination.
type Crawler interface {
	CrawlAll(ctx context.Context, seeds []string, plan scraper.Plan) (*models.CrawlResult, error)
}

// Syncer makes persisted datasets mirror a categorized catalog.
type Syncer interface {
	Sync(ctx context.Context, catalog *models.CategorizedCatalog) (*catalog.SyncReport, error)
}

// SyncHook is called after a run that changed persisted data.
type SyncHook func(report *catalog.SyncReport)

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithMetrics records run outcomes on m.
func WithMetrics(m *RunMetrics) Option {
	return func(in *Ingestor) { in.metrics = m }
}

// WithSyncHook registers fn to run after every run that touched the catalog.
func WithSyncHook(fn SyncHook) Option {
	return func(in *Ingestor) { in.hooks = append(in.hooks, fn) }
}

// Ingestor composes crawl, categorize and sync into one run. At most one run
// executes at a time; concurrent triggers are rejected.
type Ingestor struct {
	loader  CatalogLoader
	crawler Crawler
	syncer  Syncer
	metrics *RunMetrics
	hooks   []SyncHook

	running atomic.Bool

	mu    sync.Mutex // guards state/last
	state models.RunState
	last  *models.RunResult
}

// NewIngestor wires the run collaborators together.
func NewIngestor(loader CatalogLoader, crawler Crawler, syncer Syncer, opts ...Option) *Ingestor {
	in := &Ingestor{
		loader:  loader,
		crawler: crawler,
		syncer:  syncer,
		state:   models.RunIdle,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// State returns the step the current or most recent run is in.
func (in *Ingestor) State() models.RunState {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.state
}

// LastResult returns the outcome of the most recent finished run, or nil.
func (in *Ingestor) LastResult() *models.RunResult {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.last
}

// Running reports whether a run is executing.
func (in *Ingestor) Running() bool {
	return in.running.Load()
}

// Run executes one ingestion. A crawl failure leaves the stored catalog
// untouched; a storage failure stops the sync and keeps whatever datasets
// were already refreshed. The returned result is non-nil unless the run was
// rejected with ErrRunInProgress, and its Err matches the returned error.
func (in *Ingestor) Run(ctx context.Context) (*models.RunResult, error) {
	if !in.running.CompareAndSwap(false, true) {
		in.metrics.IncRejected()
		return nil, ErrRunInProgress
	}
	defer in.running.Store(false)

	result := &models.RunResult{StartTime: time.Now()}
	in.setState(models.RunIdle)

	err := in.run(ctx, result)
	result.EndTime = time.Now()
	result.Err = err
	switch {
	case err == nil:
		result.State = models.RunDone
	case result.CatalogChanged():
		result.State = models.RunPartiallyFailed
	default:
		result.State = models.RunFailed
	}
	in.finish(result)
	return result, err
}

func (in *Ingestor) run(ctx context.Context, result *models.RunResult) error {
	cat, err := in.loader.Load()
	if err != nil {
		return fmt.Errorf("load catalog config: %w", err)
	}
	plan, err := scraper.NewPlan(cat.Scrape.Selectors, cat.Scrape.PaginationTokens)
	if err != nil {
		return fmt.Errorf("compile selectors: %w", err)
	}

	in.setState(models.RunCrawling)
	slog.Info("ingestion crawl started", slog.Int("seeds", len(cat.Scrape.URLs)))
	crawl, err := in.crawler.CrawlAll(ctx, cat.Scrape.URLs, plan)
	if crawl != nil {
		result.PageCount = crawl.PageCount
		result.ItemCount = len(crawl.Items)
		result.FailedURLs = crawl.FailedURLs
	}
	if err != nil {
		return fmt.Errorf("crawl: %w", err)
	}
	if len(crawl.FailedURLs) > 0 && crawl.PageCount <= len(crawl.FailedURLs) {
		return ErrNothingCrawled
	}

	in.setState(models.RunCategorizing)
	grouped := categorizer.New(cat.Categories, cat.DefaultCategory).Group(crawl.Items)
	result.CategoryCount = grouped.Len()

	in.setState(models.RunSyncing)
	report, err := in.syncer.Sync(ctx, grouped)
	if report != nil {
		result.CategoriesSynced = len(report.Synced)
		result.DatasetsDropped = len(report.Dropped)
		if report.Changed() {
			for _, hook := range in.hooks {
				hook(report)
			}
		}
	}
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return nil
}

func (in *Ingestor) setState(state models.RunState) {
	in.mu.Lock()
	in.state = state
	in.mu.Unlock()
}

func (in *Ingestor) finish(result *models.RunResult) {
	in.mu.Lock()
	in.state = result.State
	in.last = result
	in.mu.Unlock()

	in.metrics.ObserveRun(result)

	attrs := []any{
		slog.String("state", string(result.State)),
		slog.Int("pages", result.PageCount),
		slog.Int("items", result.ItemCount),
		slog.Int("categories", result.CategoryCount),
		slog.Int("synced", result.CategoriesSynced),
		slog.Int("dropped", result.DatasetsDropped),
		slog.Int("failed_urls", len(result.FailedURLs)),
		slog.Duration("duration", result.EndTime.Sub(result.StartTime)),
	}
	if result.Err != nil {
		slog.Error("ingestion run failed", append(attrs, slog.Any("error", result.Err))...)
		return
	}
	slog.Info("ingestion run finished", attrs...)
}
