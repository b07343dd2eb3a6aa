package parser

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-shop-catalog/models"
)

func TestValidateItem(t *testing.T) {
	tests := []struct {
		name    string
		item    *models.Item
		wantErr bool
	}{
		{
			name:    "valid item",
			item:    &models.Item{Title: "Red Shoes", Price: "19.99", URL: "https://shop.test/p/1"},
			wantErr: false,
		},
		{
			name:    "valid without url",
			item:    &models.Item{Title: "Red Shoes", Price: "19.99"},
			wantErr: false,
		},
		{
			name:    "missing title",
			item:    &models.Item{Price: "19.99"},
			wantErr: true,
		},
		{
			name:    "missing price",
			item:    &models.Item{Title: "Red Shoes"},
			wantErr: true,
		},
		{
			name:    "nil item",
			item:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateItem(tt.item)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateItem() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "surrounding whitespace", input: "  Red Shoes  ", expected: "Red Shoes"},
		{name: "inner runs", input: "Red \n\t  Shoes", expected: "Red Shoes"},
		{name: "non-breaking layout", input: "\n  19.99 \n", expected: "19.99"},
		{name: "already clean", input: "Blue Hat", expected: "Blue Hat"},
		{name: "empty string", input: "", expected: ""},
		{name: "only whitespace", input: " \t\n ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeText(tt.input); got != tt.expected {
				t.Errorf("NormalizeText(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsPaginationText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{name: "single digit", input: "2", expected: true},
		{name: "three digits", input: " 120 ", expected: true},
		{name: "four digits", input: "1200", expected: false},
		{name: "next", input: "Next »", expected: true},
		{name: "more", input: "Show more", expected: true},
		{name: "russian next", input: "Следующая", expected: true},
		{name: "product link", input: "Red Shoes", expected: false},
		{name: "digits with text", input: "2 items", expected: false},
		{name: "empty", input: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPaginationText(tt.input, DefaultPaginationTokens); got != tt.expected {
				t.Errorf("IsPaginationText(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsPaginationTextCustomTokens(t *testing.T) {
	if IsPaginationText("Weiter", nil) {
		t.Fatalf("no tokens should only match page numbers")
	}
	if !IsPaginationText("Weiter", []string{"WEITER"}) {
		t.Fatalf("tokens should match case-insensitively")
	}
}

const cardsHTML = `<html><body>
<div class="grid">
  <div class="tile"><a class="name" href="/p/1">Red Shoes</a><span class="cost">19.99</span></div>
  <div class="tile"><h2>Blue Hat</h2><span class="price">5.00</span></div>
</div>
</body></html>`

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func TestChainFirstFallsBackInOrder(t *testing.T) {
	doc := mustDoc(t, cardsHTML)
	tiles := doc.Find(".tile")

	title := MustCompile("a.name", "h2")
	price := MustCompile(".price", ".cost")

	first := tiles.Eq(0)
	if got := title.First(first); got == nil || got.Text() != "Red Shoes" {
		t.Fatalf("first tile title = %v, want Red Shoes", got)
	}
	if got := price.First(first); got == nil || got.Text() != "19.99" {
		t.Fatalf("first tile price should fall back to .cost")
	}

	second := tiles.Eq(1)
	if got := title.First(second); got == nil || got.Text() != "Blue Hat" {
		t.Fatalf("second tile title should fall back to h2")
	}
	if got := MustCompile(".missing", "em").First(second); got != nil {
		t.Fatalf("expected no match, got %q", got.Text())
	}
}

func TestChainAllPicksFirstMatchingSelector(t *testing.T) {
	doc := mustDoc(t, cardsHTML)

	cards, expr := MustCompile("article.product", ".tile", ".grid").All(doc.Selection)
	if expr != ".tile" {
		t.Fatalf("winning selector = %q, want .tile", expr)
	}
	if cards.Length() != 2 {
		t.Fatalf("cards = %d, want 2", cards.Length())
	}

	if cards, _ := MustCompile("article.product").All(doc.Selection); cards != nil {
		t.Fatalf("expected nil selection when nothing matches")
	}
	if cards, _ := (Chain{}).All(doc.Selection); cards != nil {
		t.Fatalf("empty chain should match nothing")
	}
}

func TestCompileRejectsInvalidSelector(t *testing.T) {
	if _, err := Compile([]string{"div", "a[href"}); err == nil {
		t.Fatalf("expected compile error for malformed selector")
	}
	if _, err := CompileSelectors(models.CrawlSelectors{Card: []string{"div"}, Title: []string{"h2[class"}}); err == nil || !strings.Contains(err.Error(), "title") {
		t.Fatalf("expected title compile error, got %v", err)
	}
}
