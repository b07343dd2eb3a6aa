package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aluiziolira/go-shop-catalog/models"
	"github.com/aluiziolira/go-shop-catalog/parser"
)

// DefaultCategory receives items no rule matched when the file names none.
const DefaultCategory = "Other"

// Catalog is the per-run crawl and categorization plan read from YAML.
type Catalog struct {
	Scrape          Scrape                `yaml:"scrape"`
	Categories      []models.CategoryRule `yaml:"categories"`
	DefaultCategory string                `yaml:"default_category"`
}

// Scrape describes what to crawl and when.
type Scrape struct {
	URLs             []string              `yaml:"urls"`
	DailyTime        string                `yaml:"daily_time"`
	Selectors        models.CrawlSelectors `yaml:"selectors"`
	PaginationTokens []string              `yaml:"pagination_tokens"`
}

// ParseCatalog decodes and validates a catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	cat := &Catalog{}
	cat.Scrape.Selectors.LinkFromTitle = true

	if err := yaml.Unmarshal(data, cat); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if cat.DefaultCategory == "" {
		cat.DefaultCategory = DefaultCategory
	}
	if cat.Scrape.PaginationTokens == nil {
		cat.Scrape.PaginationTokens = parser.DefaultPaginationTokens
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

// LoadCatalogFile reads and validates the catalog file at path.
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	cat, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

// Validate ensures the catalog can drive a crawl.
func (c *Catalog) Validate() error {
	if len(c.Scrape.URLs) == 0 {
		return fmt.Errorf("scrape urls cannot be empty")
	}
	for _, raw := range c.Scrape.URLs {
		parsed, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid scrape url %q: %w", raw, err)
		}
		if parsed.Host == "" {
			return fmt.Errorf("scrape url %q must include a host", raw)
		}
	}
	sel := c.Scrape.Selectors
	if len(sel.Card) == 0 || len(sel.Title) == 0 || len(sel.Price) == 0 {
		return fmt.Errorf("card, title and price selectors are required")
	}
	if _, err := parser.CompileSelectors(sel); err != nil {
		return fmt.Errorf("selectors: %w", err)
	}
	if c.Scrape.DailyTime != "" {
		if _, _, err := ParseDailyTime(c.Scrape.DailyTime); err != nil {
			return err
		}
	}
	for i, rule := range c.Categories {
		if strings.TrimSpace(rule.Name) == "" {
			return fmt.Errorf("category %d has no name", i)
		}
	}
	return nil
}

// ParseDailyTime parses an HH:MM wall-clock time.
func ParseDailyTime(value string) (hour, minute int, err error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok {
		return 0, 0, fmt.Errorf("daily time %q must be HH:MM", value)
	}
	hour, err = strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("daily time %q has invalid hour", value)
	}
	minute, err = strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("daily time %q has invalid minute", value)
	}
	return hour, minute, nil
}

// FileLoader re-reads the catalog file on every Load so edits apply to the
// next run without a restart.
type FileLoader struct {
	Path string
}

// Load reads the catalog file.
func (l FileLoader) Load() (*Catalog, error) {
	return LoadCatalogFile(l.Path)
}
