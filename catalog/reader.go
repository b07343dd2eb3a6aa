package catalog

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Category is one entry of the category listing.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Reader serves the read side of the catalog. Top-N results are cached for
// a short TTL; Invalidate drops the cache after a sync.
type Reader struct {
	store ReadStore
	cache *expirable.LRU[string, []Row]
}

// NewReader wraps store with an LRU of size entries expiring after ttl.
func NewReader(store ReadStore, size int, ttl time.Duration) *Reader {
	if size <= 0 {
		size = 1
	}
	return &Reader{
		store: store,
		cache: expirable.NewLRU[string, []Row](size, nil, ttl),
	}
}

// Categories lists existing categories sorted by identifier.
func (r *Reader) Categories(ctx context.Context) ([]Category, error) {
	ids, err := r.store.ListDatasets(ctx)
	if err != nil {
		return nil, wrapStorage("list", "", err)
	}
	sort.Strings(ids)
	out := make([]Category, 0, len(ids))
	for _, id := range ids {
		if !IsDatasetID(id) {
			continue
		}
		out = append(out, Category{ID: id, Name: DisplayName(id)})
	}
	return out, nil
}

// Lookup resolves a user-supplied category name or identifier to an
// existing dataset identifier.
func (r *Reader) Lookup(ctx context.Context, name string) (string, bool, error) {
	id := name
	if !IsDatasetID(id) {
		id = DatasetID(name)
	}
	ids, err := r.store.ListDatasets(ctx)
	if err != nil {
		return "", false, wrapStorage("list", "", err)
	}
	for _, existing := range ids {
		if existing == id {
			return id, true, nil
		}
	}
	return id, false, nil
}

// TopItems returns up to n of the most recently stored rows of a category.
// A category that does not exist yet reads as empty.
func (r *Reader) TopItems(ctx context.Context, id string, n int) ([]Row, error) {
	if !IsDatasetID(id) {
		return nil, fmt.Errorf("invalid category identifier %q", id)
	}
	if n <= 0 {
		return nil, fmt.Errorf("n must be positive")
	}
	key := fmt.Sprintf("%s/%d", id, n)
	if rows, ok := r.cache.Get(key); ok {
		return rows, nil
	}
	rows, err := r.store.TopRows(ctx, id, n)
	if err != nil {
		return nil, wrapStorage("read", id, err)
	}
	r.cache.Add(key, rows)
	return rows, nil
}

// Invalidate drops every cached result.
func (r *Reader) Invalidate() {
	r.cache.Purge()
}
