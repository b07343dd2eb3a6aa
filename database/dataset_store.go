package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/aluiziolira/go-shop-catalog/catalog"
)

// undefinedTable is the SQLSTATE for a missing relation.
const undefinedTable = "42P01"

// insertChunkSize keeps one bulk insert well below the 65535 bind
// parameter limit.
const insertChunkSize = 1000

// datasetPattern matches catalog tables; the underscore is escaped so it is
// not a LIKE wildcard.
const datasetPattern = `products\_%`

// DatasetStore keeps one table per category in the public schema.
type DatasetStore struct {
	db *sqlx.DB
}

// NewDatasetStore creates a new dataset store.
func NewDatasetStore(db *sqlx.DB) *DatasetStore {
	return &DatasetStore{db: db}
}

var (
	_ catalog.Store     = (*DatasetStore)(nil)
	_ catalog.ReadStore = (*DatasetStore)(nil)
)

type datasetRow struct {
	Title     string         `db:"title"`
	Price     string         `db:"price"`
	URL       sql.NullString `db:"url"`
	UpdatedAt time.Time      `db:"updated_at"`
}

// ListDatasets returns the names of all catalog tables.
func (s *DatasetStore) ListDatasets(ctx context.Context) ([]string, error) {
	query := `SELECT tablename FROM pg_tables
		WHERE schemaname = 'public' AND tablename LIKE $1
		ORDER BY tablename`

	var names []string
	if err := s.db.SelectContext(ctx, &names, query, datasetPattern); err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}

	out := names[:0]
	for _, name := range names {
		if catalog.IsDatasetID(name) {
			out = append(out, name)
		}
	}
	return out, nil
}

// CreateDataset creates the table and its title index if missing.
func (s *DatasetStore) CreateDataset(ctx context.Context, id string) error {
	table := pq.QuoteIdentifier(id)
	createQuery := `CREATE TABLE IF NOT EXISTS ` + table + ` (
		id SERIAL PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		price VARCHAR(64) NOT NULL,
		url TEXT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := s.db.ExecContext(ctx, createQuery); err != nil {
		return fmt.Errorf("failed to create table %s: %w", id, err)
	}

	indexQuery := `CREATE INDEX IF NOT EXISTS ` + pq.QuoteIdentifier(indexName(id)) +
		` ON ` + table + ` (title)`
	if _, err := s.db.ExecContext(ctx, indexQuery); err != nil {
		return fmt.Errorf("failed to create index on %s: %w", id, err)
	}
	return nil
}

// DropDataset removes the table if it exists.
func (s *DatasetStore) DropDataset(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS `+pq.QuoteIdentifier(id)); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", id, err)
	}
	return nil
}

// ClearDataset removes every row of the table.
func (s *DatasetStore) ClearDataset(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `TRUNCATE TABLE `+pq.QuoteIdentifier(id)); err != nil {
		return fmt.Errorf("failed to truncate table %s: %w", id, err)
	}
	return nil
}

// InsertRows bulk inserts rows in chunks inside one transaction.
func (s *DatasetStore) InsertRows(ctx context.Context, id string, rows []catalog.Row) error {
	if len(rows) == 0 {
		return nil
	}

	query := `INSERT INTO ` + pq.QuoteIdentifier(id) + ` (title, price, url, updated_at)
		VALUES (:title, :price, :url, :updated_at)`

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin insert into %s: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	for start := 0; start < len(rows); start += insertChunkSize {
		end := min(start+insertChunkSize, len(rows))
		batch := make([]datasetRow, 0, end-start)
		for _, row := range rows[start:end] {
			batch = append(batch, toDatasetRow(row))
		}
		if _, execErr := tx.NamedExecContext(ctx, query, batch); execErr != nil {
			return fmt.Errorf("failed to insert into %s: %w", id, execErr)
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("failed to commit insert into %s: %w", id, commitErr)
	}
	return nil
}

// TopRows returns the n most recently inserted rows. A missing table reads
// as empty.
func (s *DatasetStore) TopRows(ctx context.Context, id string, n int) ([]catalog.Row, error) {
	query := `SELECT title, price, url, updated_at FROM ` + pq.QuoteIdentifier(id) +
		` ORDER BY id DESC LIMIT $1`

	var rows []datasetRow
	if err := s.db.SelectContext(ctx, &rows, query, n); err != nil {
		if isUndefinedTable(err) {
			return []catalog.Row{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", id, err)
	}

	out := make([]catalog.Row, 0, len(rows))
	for _, row := range rows {
		out = append(out, catalog.Row{
			Title:     row.Title,
			Price:     row.Price,
			URL:       row.URL.String,
			UpdatedAt: row.UpdatedAt,
		})
	}
	return out, nil
}

func toDatasetRow(row catalog.Row) datasetRow {
	updated := row.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	return datasetRow{
		Title:     row.Title,
		Price:     row.Price,
		URL:       sql.NullString{String: row.URL, Valid: row.URL != ""},
		UpdatedAt: updated,
	}
}

func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == undefinedTable
}

// indexName derives the title index name, hashing long table names so the
// result stays within the identifier limit.
func indexName(id string) string {
	name := "idx_" + id + "_title"
	if len(name) <= catalog.MaxIDLength {
		return name
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return fmt.Sprintf("idx_%s_%08x", id[:catalog.MaxIDLength-13], h.Sum32())
}
