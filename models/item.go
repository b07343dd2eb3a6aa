// Package models defines data structures shared by the crawler, categorizer and synchronizer.
package models

import "time"

// Item is one product listing extracted from a catalog page card.
type Item struct {
	Title string `csv:"title" json:"title"`
	Price string `csv:"price" json:"price"`
	// URL is empty when link extraction is disabled or the title has no href.
	URL string `csv:"url" json:"url,omitempty"`
}

// CrawlSelectors holds the ordered selector fallback chains for card extraction.
type CrawlSelectors struct {
	Card          []string `yaml:"card" json:"card"`
	Title         []string `yaml:"title" json:"title"`
	Price         []string `yaml:"price" json:"price"`
	LinkFromTitle bool     `yaml:"link_from_title" json:"link_from_title"`
}

// CategoryRule maps title keywords to a category name. A rule without
// keywords acts as a wildcard fallback.
type CategoryRule struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// CrawlResult holds the overall result of one catalog crawl.
type CrawlResult struct {
	Items        []Item
	StartTime    time.Time
	EndTime      time.Time
	PageCount    int
	RequestCount int
	RetryCount   int
	FailedURLs   []string
	ErrorsByType map[string]int
}
