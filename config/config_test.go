package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "zero parallelism",
			mutate: func(cfg *Config) {
				cfg.Parallelism = 0
			},
			wantErr: "parallelism",
		},
		{
			name: "negative max pages",
			mutate: func(cfg *Config) {
				cfg.MaxPages = -1
			},
			wantErr: "max pages",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "backoff above max",
			mutate: func(cfg *Config) {
				cfg.RetryBackoff = 5 * time.Second
				cfg.RetryBackoffMax = time.Second
			},
			wantErr: "retry backoff",
		},
		{
			name: "empty database url",
			mutate: func(cfg *Config) {
				cfg.DatabaseURL = ""
			},
			wantErr: "database URL",
		},
		{
			name: "unknown time zone",
			mutate: func(cfg *Config) {
				cfg.TimeZone = "Mars/Olympus"
			},
			wantErr: "time zone",
		},
		{
			name: "empty user agent",
			mutate: func(cfg *Config) {
				cfg.UserAgent = ""
			},
			wantErr: "user agent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if cfg.MaxPages != 0 {
		t.Fatalf("default crawl should be unbounded, got max pages %d", cfg.MaxPages)
	}
}

const sampleCatalog = `
scrape:
  urls:
    - https://shop.test/cat1
  daily_time: "03:30"
  selectors:
    card: [".product-card", "article"]
    title: ["a.title", "h3"]
    price: [".price"]
categories:
  - name: Footwear
    keywords: [shoe, boot]
  - name: Everything else
    keywords: []
`

func TestParseCatalogDefaults(t *testing.T) {
	cat, err := ParseCatalog([]byte(sampleCatalog))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	if !cat.Scrape.Selectors.LinkFromTitle {
		t.Fatalf("link_from_title should default to true")
	}
	if cat.DefaultCategory != DefaultCategory {
		t.Fatalf("default category = %q, want %q", cat.DefaultCategory, DefaultCategory)
	}
	if len(cat.Scrape.PaginationTokens) == 0 {
		t.Fatalf("pagination tokens should default")
	}
	if len(cat.Categories) != 2 || cat.Categories[0].Name != "Footwear" || len(cat.Categories[1].Keywords) != 0 {
		t.Fatalf("unexpected categories: %+v", cat.Categories)
	}
}

func TestParseCatalogExplicitValues(t *testing.T) {
	doc := sampleCatalog + `
default_category: Misc
`
	doc = strings.Replace(doc, `price: [".price"]`, "price: [\".price\"]\n    link_from_title: false", 1)

	cat, err := ParseCatalog([]byte(doc))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	if cat.Scrape.Selectors.LinkFromTitle {
		t.Fatalf("link_from_title should be false")
	}
	if cat.DefaultCategory != "Misc" {
		t.Fatalf("default category = %q, want Misc", cat.DefaultCategory)
	}
}

func TestParseCatalogValidation(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "no urls",
			doc:     "scrape:\n  selectors:\n    card: [a]\n    title: [a]\n    price: [a]\n",
			wantErr: "urls",
		},
		{
			name:    "relative url",
			doc:     "scrape:\n  urls: [/cat]\n  selectors:\n    card: [a]\n    title: [a]\n    price: [a]\n",
			wantErr: "host",
		},
		{
			name:    "missing price selectors",
			doc:     "scrape:\n  urls: [https://shop.test]\n  selectors:\n    card: [a]\n    title: [a]\n",
			wantErr: "selectors",
		},
		{
			name:    "bad selector",
			doc:     "scrape:\n  urls: [https://shop.test]\n  selectors:\n    card: [\"a[href\"]\n    title: [a]\n    price: [a]\n",
			wantErr: "card",
		},
		{
			name:    "bad daily time",
			doc:     "scrape:\n  urls: [https://shop.test]\n  daily_time: \"25:00\"\n  selectors:\n    card: [a]\n    title: [a]\n    price: [a]\n",
			wantErr: "hour",
		},
		{
			name:    "unnamed category",
			doc:     "scrape:\n  urls: [https://shop.test]\n  selectors:\n    card: [a]\n    title: [a]\n    price: [a]\ncategories:\n  - keywords: [x]\n",
			wantErr: "no name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCatalog([]byte(tt.doc)); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseDailyTime(t *testing.T) {
	hour, minute, err := ParseDailyTime(" 07:05 ")
	if err != nil || hour != 7 || minute != 5 {
		t.Fatalf("ParseDailyTime = %d:%d %v, want 7:5", hour, minute, err)
	}
	for _, bad := range []string{"", "7", "07:60", "aa:10"} {
		if _, _, err := ParseDailyTime(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestFileLoaderRereadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(sampleCatalog), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	loader := FileLoader{Path: path}

	first, err := loader.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(first.Categories) != 2 {
		t.Fatalf("categories = %d, want 2", len(first.Categories))
	}

	edited := strings.Replace(sampleCatalog, "  - name: Everything else\n    keywords: []\n", "", 1)
	if err := os.WriteFile(path, []byte(edited), 0o644); err != nil {
		t.Fatalf("rewrite catalog: %v", err)
	}
	second, err := loader.Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(second.Categories) != 1 {
		t.Fatalf("categories after edit = %d, want 1", len(second.Categories))
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/catalog")
	t.Setenv("TZ", "Europe/Moscow")
	t.Setenv("SHOPCATALOG_PARALLEL", "4")
	t.Setenv("SHOPCATALOG_MAX_PAGES", "")

	cfg := DefaultConfig()
	if err := ApplyEnv(cfg); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.DatabaseURL != "postgres://u:p@db:5432/catalog" {
		t.Fatalf("database url = %q", cfg.DatabaseURL)
	}
	if cfg.TimeZone != "Europe/Moscow" || cfg.Parallelism != 4 || cfg.MaxPages != 0 {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	t.Setenv("SHOPCATALOG_PARALLEL", "many")
	if err := ApplyEnv(DefaultConfig()); err == nil {
		t.Fatalf("expected parse error for non-numeric parallelism")
	}
}

func TestLoadEnvMissingFile(t *testing.T) {
	if err := LoadEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("missing env file should be ignored, got %v", err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("SHOPCATALOG_TEST_KEY=from-file\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("SHOPCATALOG_TEST_KEY") })

	if err := LoadEnv(path); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if value, ok := EnvString("SHOPCATALOG_TEST_KEY"); !ok || value != "from-file" {
		t.Fatalf("env value = %q (%v), want from-file", value, ok)
	}
}
