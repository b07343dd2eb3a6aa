package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/aluiziolira/go-shop-catalog/models"
)

// SyncReport describes what one reconciliation did. On failure it reflects
// the work committed before the failing step.
type SyncReport struct {
	Desired []string
	Dropped []string
	Synced  []string
	Rows    int
}

// Changed reports whether any dataset was dropped or repopulated.
func (r *SyncReport) Changed() bool {
	return len(r.Dropped) > 0 || len(r.Synced) > 0
}

// Synchronizer makes the persisted datasets mirror a categorized catalog.
// It is the only writer of category datasets.
type Synchronizer struct {
	store Store
	now   func() time.Time
}

// NewSynchronizer returns a synchronizer writing to store.
func NewSynchronizer(store Store) *Synchronizer {
	return &Synchronizer{store: store, now: time.Now}
}

type plannedDataset struct {
	id         string
	categories []string
	items      []models.Item
}

// plan maps categories to datasets in catalog order. Categories whose names
// share a slug are merged into one dataset.
func plan(catalog *models.CategorizedCatalog) []*plannedDataset {
	var out []*plannedDataset
	byID := make(map[string]*plannedDataset)
	for _, name := range catalog.Categories() {
		id := DatasetID(name)
		ds, ok := byID[id]
		if !ok {
			ds = &plannedDataset{id: id}
			byID[id] = ds
			out = append(out, ds)
		}
		ds.categories = append(ds.categories, name)
		ds.items = append(ds.items, catalog.Items(name)...)
	}
	return out
}

// Sync drops datasets whose category is gone, then creates, clears and
// repopulates one dataset per category. Each dataset step commits on its
// own: a failure leaves earlier datasets refreshed and later ones as they
// were, and the returned report says how far it got.
func (s *Synchronizer) Sync(ctx context.Context, catalog *models.CategorizedCatalog) (*SyncReport, error) {
	if catalog == nil {
		catalog = models.NewCategorizedCatalog()
	}
	planned := plan(catalog)
	report := &SyncReport{}
	desired := make(map[string]struct{}, len(planned))
	for _, ds := range planned {
		desired[ds.id] = struct{}{}
		report.Desired = append(report.Desired, ds.id)
	}

	existing, err := s.store.ListDatasets(ctx)
	if err != nil {
		return report, wrapStorage("list", "", err)
	}
	sort.Strings(existing)

	for _, id := range existing {
		if !IsDatasetID(id) {
			continue
		}
		if _, ok := desired[id]; ok {
			continue
		}
		if err := s.store.DropDataset(ctx, id); err != nil {
			return report, wrapStorage("drop", id, err)
		}
		report.Dropped = append(report.Dropped, id)
		slog.Info("dropped stale category dataset", slog.String("dataset", id))
	}

	for _, ds := range planned {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := s.store.CreateDataset(ctx, ds.id); err != nil {
			return report, wrapStorage("create", ds.id, err)
		}
		if err := s.store.ClearDataset(ctx, ds.id); err != nil {
			return report, wrapStorage("clear", ds.id, err)
		}
		rows := s.rows(ds.items)
		if len(rows) > 0 {
			if err := s.store.InsertRows(ctx, ds.id, rows); err != nil {
				return report, wrapStorage("insert", ds.id, err)
			}
		}
		report.Synced = append(report.Synced, ds.id)
		report.Rows += len(rows)
		slog.Debug("category dataset refreshed",
			slog.String("dataset", ds.id),
			slog.Any("categories", ds.categories),
			slog.Int("rows", len(rows)),
		)
	}

	return report, nil
}

func (s *Synchronizer) rows(items []models.Item) []Row {
	if len(items) == 0 {
		return nil
	}
	now := s.now().UTC()
	rows := make([]Row, 0, len(items))
	for _, item := range items {
		rows = append(rows, Row{
			Title:     item.Title,
			Price:     item.Price,
			URL:       item.URL,
			UpdatedAt: now,
		})
	}
	return rows
}

func wrapStorage(op, id string, err error) error {
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Dataset: id, Err: err}
}
