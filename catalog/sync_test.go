package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aluiziolira/go-shop-catalog/models"
)

var fixedNow = time.Date(2026, 10, 19, 3, 0, 0, 0, time.UTC)

func newTestSynchronizer(store Store) *Synchronizer {
	s := NewSynchronizer(store)
	s.now = func() time.Time { return fixedNow }
	return s
}

func catalogOf(entries map[string][]models.Item, order ...string) *models.CategorizedCatalog {
	c := models.NewCategorizedCatalog()
	for _, name := range order {
		c.Ensure(name)
		for _, item := range entries[name] {
			c.Add(name, item)
		}
	}
	return c
}

func TestSyncCreatesFootwearDataset(t *testing.T) {
	store := NewMemoryStore()
	cat := catalogOf(map[string][]models.Item{
		"Footwear": {{Title: "Red Shoes", Price: "19.99"}},
	}, "Footwear")

	report, err := newTestSynchronizer(store).Sync(context.Background(), cat)
	require.NoError(t, err)

	assert.Equal(t, []string{"products_footwear"}, report.Synced)
	assert.Equal(t, 1, report.Rows)
	rows := store.Rows("products_footwear")
	require.Len(t, rows, 1)
	assert.Equal(t, Row{Title: "Red Shoes", Price: "19.99", UpdatedAt: fixedNow}, rows[0])
}

func TestSyncDropsVanishedCategory(t *testing.T) {
	store := NewMemoryStore()
	store.Put("products_toys", Row{Title: "Lego", Price: "50"})
	store.Put("products_footwear", Row{Title: "Old Boot", Price: "1"})
	store.Put("users", Row{Title: "not a catalog dataset"})

	cat := catalogOf(map[string][]models.Item{
		"Footwear": {{Title: "Red Shoes", Price: "19.99"}},
	}, "Footwear")

	report, err := newTestSynchronizer(store).Sync(context.Background(), cat)
	require.NoError(t, err)

	assert.Equal(t, []string{"products_toys"}, report.Dropped)
	ids, err := store.ListDatasets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"products_footwear"}, ids)

	rows := store.Rows("products_footwear")
	require.Len(t, rows, 1, "previous rows must be cleared before insert")
	assert.Equal(t, "Red Shoes", rows[0].Title)
	assert.Len(t, store.Rows("users"), 1, "datasets outside the namespace are left alone")
}

func TestSyncIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	cat := catalogOf(map[string][]models.Item{
		"Footwear": {{Title: "Red Shoes", Price: "19.99", URL: "https://shop.test/p/1"}, {Title: "Boots", Price: "80"}},
		"Hats":     {{Title: "Blue Hat", Price: "5"}},
	}, "Footwear", "Hats")
	s := newTestSynchronizer(store)

	_, err := s.Sync(context.Background(), cat)
	require.NoError(t, err)
	firstIDs, _ := store.ListDatasets(context.Background())
	firstFootwear := store.Rows("products_footwear")
	firstHats := store.Rows("products_hats")

	_, err = s.Sync(context.Background(), cat)
	require.NoError(t, err)
	secondIDs, _ := store.ListDatasets(context.Background())

	assert.Equal(t, firstIDs, secondIDs)
	assert.Equal(t, firstFootwear, store.Rows("products_footwear"))
	assert.Equal(t, firstHats, store.Rows("products_hats"))
}

func TestSyncRoundTripsCategories(t *testing.T) {
	store := NewMemoryStore()
	store.Put("products_garden")
	cat := catalogOf(map[string][]models.Item{
		"Footwear":    {{Title: "Red Shoes", Price: "19.99"}},
		"Kids & Toys": {{Title: "Lego", Price: "50"}},
	}, "Footwear", "Kids & Toys")

	_, err := newTestSynchronizer(store).Sync(context.Background(), cat)
	require.NoError(t, err)

	ids, err := store.ListDatasets(context.Background())
	require.NoError(t, err)
	var slugs []string
	for _, id := range ids {
		slugs = append(slugs, SlugFromID(id))
	}
	assert.ElementsMatch(t, []string{Slug("Footwear"), Slug("Kids & Toys")}, slugs)
}

func TestSyncKeepsEmptyCategory(t *testing.T) {
	store := NewMemoryStore()
	store.Put("products_hats", Row{Title: "Old Hat", Price: "2"})
	cat := catalogOf(nil, "Hats")

	report, err := newTestSynchronizer(store).Sync(context.Background(), cat)
	require.NoError(t, err)

	assert.Equal(t, []string{"products_hats"}, report.Synced)
	ids, _ := store.ListDatasets(context.Background())
	assert.Equal(t, []string{"products_hats"}, ids)
	assert.Empty(t, store.Rows("products_hats"))
}

func TestSyncMergesCollidingSlugs(t *testing.T) {
	store := NewMemoryStore()
	cat := catalogOf(map[string][]models.Item{
		"Прочее": {{Title: "A", Price: "1"}},
		"Разное": {{Title: "B", Price: "2"}},
	}, "Прочее", "Разное")

	report, err := newTestSynchronizer(store).Sync(context.Background(), cat)
	require.NoError(t, err)

	assert.Equal(t, []string{"products_misc"}, report.Synced)
	rows := store.Rows("products_misc")
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].Title)
	assert.Equal(t, "B", rows[1].Title)
}

// failingStore fails the configured operation on one dataset.
type failingStore struct {
	*MemoryStore
	op      string
	dataset string
}

var errBoom = errors.New("boom")

func (f *failingStore) fail(op, id string) error {
	if f.op == op && (f.dataset == "" || f.dataset == id) {
		return errBoom
	}
	return nil
}

func (f *failingStore) ListDatasets(ctx context.Context) ([]string, error) {
	if err := f.fail("list", ""); err != nil {
		return nil, err
	}
	return f.MemoryStore.ListDatasets(ctx)
}

func (f *failingStore) DropDataset(ctx context.Context, id string) error {
	if err := f.fail("drop", id); err != nil {
		return err
	}
	return f.MemoryStore.DropDataset(ctx, id)
}

func (f *failingStore) InsertRows(ctx context.Context, id string, rows []Row) error {
	if err := f.fail("insert", id); err != nil {
		return err
	}
	return f.MemoryStore.InsertRows(ctx, id, rows)
}

func TestSyncStopsAtFirstStorageError(t *testing.T) {
	mem := NewMemoryStore()
	mem.Put("products_c", Row{Title: "old c", Price: "1"})
	store := &failingStore{MemoryStore: mem, op: "insert", dataset: "products_b"}

	cat := catalogOf(map[string][]models.Item{
		"A": {{Title: "new a", Price: "1"}},
		"B": {{Title: "new b", Price: "2"}},
		"C": {{Title: "new c", Price: "3"}},
	}, "A", "B", "C")

	report, err := newTestSynchronizer(store).Sync(context.Background(), cat)

	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "insert", storageErr.Op)
	assert.Equal(t, "products_b", storageErr.Dataset)
	assert.ErrorIs(t, err, errBoom)

	assert.Equal(t, []string{"products_a"}, report.Synced)
	assert.True(t, report.Changed())
	assert.Equal(t, "new a", mem.Rows("products_a")[0].Title)
	assert.Empty(t, mem.Rows("products_b"), "failed dataset is left cleared")
	assert.Equal(t, "old c", mem.Rows("products_c")[0].Title, "later datasets keep the previous run")
}

func TestSyncListFailureChangesNothing(t *testing.T) {
	mem := NewMemoryStore()
	mem.Put("products_toys", Row{Title: "Lego", Price: "50"})
	store := &failingStore{MemoryStore: mem, op: "list"}

	report, err := newTestSynchronizer(store).Sync(context.Background(), catalogOf(nil, "Hats"))
	require.Error(t, err)
	assert.False(t, report.Changed())
	assert.Len(t, mem.Rows("products_toys"), 1)
}
