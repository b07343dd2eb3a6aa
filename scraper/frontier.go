package scraper

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aluiziolira/go-shop-catalog/models"
)

// frontier is a FIFO queue of pages to crawl. A URL is marked seen when it
// is first queued, so every URL is handed out at most once and a crawl over
// a cyclic page graph pops exactly as many pages as it has distinct URLs.
type frontier struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    []string
	seen     map[string]struct{}
	inflight int
	popped   int
	maxPages int
	stopped  bool
}

func newFrontier(seeds []string, maxPages int) *frontier {
	f := &frontier{
		seen:     make(map[string]struct{}),
		maxPages: maxPages,
	}
	f.cond = sync.NewCond(&f.mu)
	f.pushLocked(seeds)
	return f
}

// next blocks until a page is available or the crawl is over.
func (f *frontier) next() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		if f.stopped {
			return "", false
		}
		if f.maxPages > 0 && f.popped >= f.maxPages {
			return "", false
		}
		if len(f.queue) > 0 {
			pageURL := f.queue[0]
			f.queue = f.queue[1:]
			f.inflight++
			f.popped++
			return pageURL, true
		}
		if f.inflight == 0 {
			return "", false
		}
		f.cond.Wait()
	}
}

// done marks one handed-out page finished and queues its unseen links.
func (f *frontier) done(links []string) {
	f.mu.Lock()
	f.pushLocked(links)
	f.inflight--
	f.mu.Unlock()
	f.cond.Broadcast()
}

func (f *frontier) stop() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
	f.cond.Broadcast()
}

func (f *frontier) pushLocked(links []string) {
	for _, link := range links {
		if _, ok := f.seen[link]; ok {
			continue
		}
		f.seen[link] = struct{}{}
		f.queue = append(f.queue, link)
	}
}

func (f *frontier) pops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.popped
}

func (f *frontier) pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// crawlRun accumulates the output of one CrawlAll call across workers.
type crawlRun struct {
	mu           sync.Mutex
	items        []models.Item
	requests     int
	retries      int
	failedURLs   []string
	errorsByType map[string]int
	err          error
}

func (r *crawlRun) addPage(page *Page) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, page.Items...)
	r.requests += page.Attempts
	if page.Attempts > 1 {
		r.retries += page.Attempts - 1
	}
}

func (r *crawlRun) addFailure(page *Page, pageURL string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if page != nil {
		r.requests += page.Attempts
		if page.Attempts > 1 {
			r.retries += page.Attempts - 1
		}
	}
	r.failedURLs = append(r.failedURLs, pageURL)
	r.errorsByType[errorTypeLabel(err)]++
}

func (r *crawlRun) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		r.err = err
	}
}

// CrawlAll crawls seeds and every same-host pagination link reachable from
// them, breadth first. With Parallelism 1 pages are fetched strictly in
// frontier order; with more workers item order across pages is not defined.
// The first fetch failure aborts the crawl unless ContinueOnFetchError is set.
func (s *Scraper) CrawlAll(ctx context.Context, seeds []string, plan Plan) (*models.CrawlResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	f := newFrontier(seeds, s.cfg.MaxPages)
	run := &crawlRun{errorsByType: make(map[string]int)}

	workers := s.cfg.Parallelism
	if workers <= 0 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.crawlWorker(ctx, f, run, plan)
		}()
	}
	wg.Wait()

	if remaining := f.pending(); remaining > 0 && run.err == nil && s.cfg.MaxPages > 0 {
		slog.Warn("crawl stopped at max pages",
			slog.Int("max_pages", s.cfg.MaxPages),
			slog.Int("unvisited", remaining),
		)
	}

	result := &models.CrawlResult{
		Items:        run.items,
		StartTime:    start,
		EndTime:      time.Now(),
		PageCount:    f.pops(),
		RequestCount: run.requests,
		RetryCount:   run.retries,
		FailedURLs:   run.failedURLs,
		ErrorsByType: run.errorsByType,
	}
	return result, run.err
}

func (s *Scraper) crawlWorker(ctx context.Context, f *frontier, run *crawlRun, plan Plan) {
	for {
		pageURL, ok := f.next()
		if !ok {
			return
		}
		if err := ctx.Err(); err != nil {
			run.fail(err)
			f.done(nil)
			f.stop()
			return
		}

		page, err := s.CrawlPage(ctx, pageURL, plan)
		if err != nil {
			run.addFailure(page, pageURL, err)
			var fetchErr *FetchError
			if s.cfg.ContinueOnFetchError && errors.As(err, &fetchErr) {
				slog.Warn("skipping failed page",
					slog.String("url", pageURL),
					slog.String("category", fetchErr.Kind()),
				)
				f.done(nil)
				continue
			}
			run.fail(err)
			f.done(nil)
			f.stop()
			return
		}

		run.addPage(page)
		f.done(page.Links)
	}
}
