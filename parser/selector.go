package parser

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/aluiziolira/go-shop-catalog/models"
)

// Chain is an ordered list of compiled CSS selectors tried first to last.
type Chain struct {
	exprs    []string
	matchers []cascadia.Selector
}

// Compile parses every expression up front so a bad selector is reported
// as a configuration error instead of failing mid-crawl.
func Compile(exprs []string) (Chain, error) {
	chain := Chain{
		exprs:    make([]string, 0, len(exprs)),
		matchers: make([]cascadia.Selector, 0, len(exprs)),
	}
	for _, expr := range exprs {
		m, err := cascadia.Compile(expr)
		if err != nil {
			return Chain{}, fmt.Errorf("compile selector %q: %w", expr, err)
		}
		chain.exprs = append(chain.exprs, expr)
		chain.matchers = append(chain.matchers, m)
	}
	return chain, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(exprs ...string) Chain {
	chain, err := Compile(exprs)
	if err != nil {
		panic(err)
	}
	return chain
}

// Len returns the number of selectors in the chain.
func (c Chain) Len() int {
	return len(c.matchers)
}

// First returns the first element under root matched by the earliest
// selector in the chain that matches anything, or nil.
func (c Chain) First(root *goquery.Selection) *goquery.Selection {
	if root == nil {
		return nil
	}
	for _, m := range c.matchers {
		if found := root.FindMatcher(m); found.Length() > 0 {
			return found.First()
		}
	}
	return nil
}

// All returns every element matched by the earliest selector in the chain
// that matches at least one element, along with that selector's expression.
func (c Chain) All(root *goquery.Selection) (*goquery.Selection, string) {
	if root == nil {
		return nil, ""
	}
	for i, m := range c.matchers {
		if found := root.FindMatcher(m); found.Length() > 0 {
			return found, c.exprs[i]
		}
	}
	return nil, ""
}

// Selectors is the compiled form of models.CrawlSelectors.
type Selectors struct {
	Card          Chain
	Title         Chain
	Price         Chain
	LinkFromTitle bool
}

// CompileSelectors compiles every chain of cfg.
func CompileSelectors(cfg models.CrawlSelectors) (*Selectors, error) {
	card, err := Compile(cfg.Card)
	if err != nil {
		return nil, fmt.Errorf("card: %w", err)
	}
	title, err := Compile(cfg.Title)
	if err != nil {
		return nil, fmt.Errorf("title: %w", err)
	}
	price, err := Compile(cfg.Price)
	if err != nil {
		return nil, fmt.Errorf("price: %w", err)
	}
	return &Selectors{
		Card:          card,
		Title:         title,
		Price:         price,
		LinkFromTitle: cfg.LinkFromTitle,
	}, nil
}
