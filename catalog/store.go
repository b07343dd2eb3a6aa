// Package catalog reconciles categorized crawl output with persisted
// per-category datasets and serves the read side of the catalog.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Row is one persisted item of a category dataset.
type Row struct {
	Title     string    `json:"title"`
	Price     string    `json:"price"`
	URL       string    `json:"url,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store manages the lifecycle and contents of category datasets.
type Store interface {
	// ListDatasets returns identifiers of all existing category datasets.
	ListDatasets(ctx context.Context) ([]string, error)
	// CreateDataset creates the dataset if it does not exist.
	CreateDataset(ctx context.Context, id string) error
	DropDataset(ctx context.Context, id string) error
	ClearDataset(ctx context.Context, id string) error
	InsertRows(ctx context.Context, id string, rows []Row) error
}

// ReadStore is the read-only view used by catalog consumers.
type ReadStore interface {
	ListDatasets(ctx context.Context) ([]string, error)
	// TopRows returns up to n rows, most recently inserted first. A
	// dataset that does not exist yields no rows and no error.
	TopRows(ctx context.Context, id string, n int) ([]Row, error)
}

// StorageError reports a failed dataset operation.
type StorageError struct {
	Op      string
	Dataset string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Dataset == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Dataset, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

var errMissingDataset = errors.New("dataset does not exist")
