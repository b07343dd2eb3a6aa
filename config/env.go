package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv loads KEY=value pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// EnvString returns the trimmed value of key and whether it was set.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return n, true, nil
}

// ApplyEnv overrides cfg with values from the environment.
func ApplyEnv(cfg *Config) error {
	if value, ok := EnvString("DATABASE_URL"); ok {
		cfg.DatabaseURL = value
	}
	if value, ok := EnvString("TZ"); ok {
		cfg.TimeZone = value
	}
	if value, ok := EnvString("SHOPCATALOG_CATALOG_FILE"); ok {
		cfg.CatalogFile = value
	}
	if value, ok := EnvString("SHOPCATALOG_METRICS_ADDR"); ok {
		cfg.MetricsAddr = value
	}
	if value, ok, err := EnvInt("SHOPCATALOG_PARALLEL"); err != nil {
		return err
	} else if ok {
		cfg.Parallelism = value
	}
	if value, ok, err := EnvInt("SHOPCATALOG_MAX_PAGES"); err != nil {
		return err
	} else if ok {
		cfg.MaxPages = value
	}
	return nil
}
