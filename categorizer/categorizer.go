// Package categorizer assigns catalog items to categories using ordered
// keyword rules.
package categorizer

import (
	"strings"

	"github.com/aluiziolira/go-shop-catalog/models"
)

// Categorizer holds a prepared rule list. It is safe for concurrent use.
type Categorizer struct {
	rules    []rule
	fallback string
}

type rule struct {
	name     string
	keywords []string
}

// New prepares rules for matching. fallback names the category used when
// no rule matches and no wildcard rule exists.
func New(rules []models.CategoryRule, fallback string) *Categorizer {
	c := &Categorizer{
		rules:    make([]rule, 0, len(rules)),
		fallback: fallback,
	}
	for _, r := range rules {
		keywords := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			keywords = append(keywords, strings.ToLower(kw))
		}
		c.rules = append(c.rules, rule{name: r.Name, keywords: keywords})
	}
	return c
}

// Category returns the category for title. The first rule with a keyword
// contained in the lower-cased title wins. Rules without keywords never
// match directly; the first of them is used when no keyword rule matches.
func (c *Categorizer) Category(title string) string {
	t := strings.ToLower(title)

	wildcard := ""
	haveWildcard := false
	for _, r := range c.rules {
		if len(r.keywords) == 0 {
			if !haveWildcard {
				wildcard = r.name
				haveWildcard = true
			}
			continue
		}
		for _, kw := range r.keywords {
			if strings.Contains(t, kw) {
				return r.name
			}
		}
	}
	if haveWildcard {
		return wildcard
	}
	return c.fallback
}

// Group builds a catalog from items in crawl order.
func (c *Categorizer) Group(items []models.Item) *models.CategorizedCatalog {
	catalog := models.NewCategorizedCatalog()
	for _, item := range items {
		catalog.Add(c.Category(item.Title), item)
	}
	return catalog
}

// Categorize is the functional form of Categorizer.Category.
func Categorize(item models.Item, rules []models.CategoryRule, fallback string) string {
	return New(rules, fallback).Category(item.Title)
}
