package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/go-shop-catalog/config"
	"github.com/aluiziolira/go-shop-catalog/models"
	"github.com/aluiziolira/go-shop-catalog/parser"
)

// Plan is what a crawl extracts from every page.
type Plan struct {
	Selectors        *parser.Selectors
	PaginationTokens []string
}

// NewPlan compiles selectors into a Plan.
func NewPlan(selectors models.CrawlSelectors, paginationTokens []string) (Plan, error) {
	compiled, err := parser.CompileSelectors(selectors)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Selectors: compiled, PaginationTokens: paginationTokens}, nil
}

// Page is what one catalog page yielded.
type Page struct {
	URL          string
	Items        []models.Item
	Links        []string
	CardSelector string
	Skipped      int
	Attempts     int
}

// Scraper fetches catalog pages through a colly collector and extracts
// item cards and pagination links from them.
type Scraper struct {
	cfg       *config.Config
	collector *colly.Collector
	Metrics   *Metrics
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user agent cannot be empty")
	}

	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	return &Scraper{
		cfg:       cfg,
		collector: collector,
		Metrics:   NewMetrics(),
	}, nil
}

// WithTransport replaces the HTTP transport used for page fetches.
func (s *Scraper) WithTransport(rt http.RoundTripper) {
	s.collector.WithTransport(rt)
}

// CrawlPage fetches pageURL and extracts its item cards and same-host
// pagination links. A page whose markup matches no card selector yields no
// items and no error; a failed fetch yields a *FetchError.
func (s *Scraper) CrawlPage(ctx context.Context, pageURL string, plan Plan) (*Page, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}

	body, attempts, err := s.fetch(ctx, pageURL)
	if err != nil {
		return &Page{URL: pageURL, Attempts: attempts}, err
	}
	s.Metrics.IncPages()

	page, err := extractPage(base, body, plan)
	if err != nil {
		s.Metrics.IncError(errorTypeLabel(err))
		slog.Warn("unparseable page treated as empty",
			slog.String("url", pageURL),
			slog.Any("error", err),
		)
		return &Page{URL: pageURL, Attempts: attempts}, nil
	}
	page.Attempts = attempts

	s.Metrics.AddItems(len(page.Items))
	s.Metrics.AddSkipped(page.Skipped)
	slog.Debug("page crawled",
		slog.String("url", pageURL),
		slog.String("card_selector", page.CardSelector),
		slog.Int("items", len(page.Items)),
		slog.Int("skipped", page.Skipped),
		slog.Int("links", len(page.Links)),
	)
	return page, nil
}

func (s *Scraper) fetch(ctx context.Context, pageURL string) ([]byte, int, error) {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, attempt - 1, err
		}

		body, err := s.fetchOnce(pageURL)
		if err == nil {
			return body, attempt, nil
		}

		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			s.Metrics.IncError(fetchErr.Kind())
		}
		if attempt > s.cfg.MaxRetries || !retryable(err) {
			return nil, attempt, err
		}

		s.Metrics.IncRetries()
		delay := s.backoff(attempt)
		slog.Debug("retrying page fetch",
			slog.String("url", pageURL),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.Any("error", err),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, attempt, ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *Scraper) fetchOnce(pageURL string) ([]byte, error) {
	c := s.collector.Clone()

	var (
		body   []byte
		status int
	)
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	s.Metrics.IncRequest("started")
	start := time.Now()
	err := c.Visit(pageURL)
	s.Metrics.ObserveDuration(time.Since(start))

	if err != nil {
		s.Metrics.IncRequest("failed")
		slog.Error("page fetch failed",
			slog.String("url", pageURL),
			slog.Int("status", status),
			slog.Any("error", err),
		)
		return nil, &FetchError{URL: pageURL, Status: status, Err: err}
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		s.Metrics.IncRequest("failed")
		return nil, &FetchError{URL: pageURL, Status: status, Err: fmt.Errorf("unexpected status")}
	}
	s.Metrics.IncRequest("completed")
	return body, nil
}

func (s *Scraper) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := s.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := s.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

func retryable(err error) bool {
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		return false
	}
	switch fetchErr.Kind() {
	case "timeout", "connection", "rate_limited":
		return true
	case "http_status":
		return fetchErr.Status >= http.StatusInternalServerError
	default:
		return false
	}
}

func extractPage(base *url.URL, body []byte, plan Plan) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{URL: base.String(), Err: err}
	}

	page := &Page{URL: base.String()}
	if plan.Selectors == nil {
		return page, nil
	}
	sel := plan.Selectors

	cards, expr := sel.Card.All(doc.Selection)
	page.CardSelector = expr
	if cards != nil {
		cards.Each(func(_ int, card *goquery.Selection) {
			item, ok := extractItem(base, card, sel)
			if !ok {
				page.Skipped++
				return
			}
			page.Items = append(page.Items, item)
		})
	}

	page.Links = paginationLinks(base, doc, plan.PaginationTokens)
	return page, nil
}

func extractItem(base *url.URL, card *goquery.Selection, sel *parser.Selectors) (models.Item, bool) {
	titleEl := sel.Title.First(card)
	priceEl := sel.Price.First(card)
	if titleEl == nil || priceEl == nil {
		return models.Item{}, false
	}

	item := models.Item{
		Title: parser.NormalizeText(titleEl.Text()),
		Price: parser.NormalizeText(priceEl.Text()),
	}
	if sel.LinkFromTitle {
		if href, ok := titleEl.Attr("href"); ok {
			if abs := resolve(base, href); abs != nil {
				item.URL = abs.String()
			}
		}
	}
	if err := parser.ValidateItem(&item); err != nil {
		return models.Item{}, false
	}
	return item, true
}

func paginationLinks(base *url.URL, doc *goquery.Document, tokens []string) []string {
	var links []string
	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		if !parser.IsPaginationText(a.Text(), tokens) {
			return
		}
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		abs := resolve(base, href)
		if abs == nil || !strings.EqualFold(abs.Host, base.Host) {
			return
		}
		abs.Fragment = ""
		abs.RawFragment = ""
		links = append(links, abs.String())
	})
	return links
}

func resolve(base *url.URL, href string) *url.URL {
	href = strings.TrimSpace(href)
	if href == "" {
		return nil
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil
	}
	return base.ResolveReference(ref)
}
