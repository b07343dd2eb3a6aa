package pipeline

import (
	"context"
	"log/slog"

	"github.com/aluiziolira/go-shop-catalog/catalog"
)

// DefaultExportLimit caps the rows exported per category.
const DefaultExportLimit = 10000

// ExportSummary counts what Export wrote.
type ExportSummary struct {
	Categories int
	Records    int
}

// Export writes up to limit of the newest rows of every category dataset to
// w, category by category in identifier order. A limit of zero or less uses
// DefaultExportLimit.
func Export(ctx context.Context, reader *catalog.Reader, w OutputWriter, limit int) (*ExportSummary, error) {
	if limit <= 0 {
		limit = DefaultExportLimit
	}

	categories, err := reader.Categories(ctx)
	if err != nil {
		return nil, err
	}

	summary := &ExportSummary{}
	for _, cat := range categories {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		rows, err := reader.TopItems(ctx, cat.ID, limit)
		if err != nil {
			return summary, err
		}
		records := make([]Record, 0, len(rows))
		for _, row := range rows {
			records = append(records, Record{
				Category:  cat.Name,
				Title:     row.Title,
				Price:     row.Price,
				URL:       row.URL,
				UpdatedAt: row.UpdatedAt,
			})
		}
		if err := w.Write(records); err != nil {
			return summary, err
		}
		summary.Categories++
		summary.Records += len(records)
		slog.Debug("category exported",
			slog.String("dataset", cat.ID),
			slog.Int("records", len(records)),
		)
	}
	return summary, nil
}
