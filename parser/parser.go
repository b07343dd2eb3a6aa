package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aluiziolira/go-shop-catalog/models"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	pageNumberRe = regexp.MustCompile(`^[0-9]{1,3}$`)
)

// DefaultPaginationTokens match "next page" style anchors.
var DefaultPaginationTokens = []string{"next", "more", "след", "далее"}

// ValidateItem ensures the crawler captured the required fields.
func ValidateItem(item *models.Item) error {
	if item == nil {
		return fmt.Errorf("item is nil")
	}
	if item.Title == "" {
		return fmt.Errorf("item missing title")
	}
	if item.Price == "" {
		return fmt.Errorf("item missing price for %s", item.Title)
	}
	return nil
}

// NormalizeText collapses whitespace runs to a single space and trims the ends.
func NormalizeText(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// IsPaginationText reports whether anchor text looks like a pagination link:
// a 1-3 digit page number or text containing one of tokens.
func IsPaginationText(text string, tokens []string) bool {
	text = strings.ToLower(NormalizeText(text))
	if text == "" {
		return false
	}
	if pageNumberRe.MatchString(text) {
		return true
	}
	for _, token := range tokens {
		token = strings.ToLower(strings.TrimSpace(token))
		if token != "" && strings.Contains(text, token) {
			return true
		}
	}
	return false
}
