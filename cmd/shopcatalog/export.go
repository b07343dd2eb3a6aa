package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-shop-catalog/pipeline"
)

func newExportCmd(root *rootOptions) *cobra.Command {
	var (
		format string
		output string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the stored catalog to CSV, JSONL or both",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, db, err := root.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB(db)

			writer, err := pipeline.NewWriter(format, output)
			if err != nil {
				return fmt.Errorf("creating writer: %w", err)
			}
			defer func() {
				if err := writer.Close(); err != nil {
					slog.Error("close writer", slog.Any("error", err))
				}
			}()

			summary, err := pipeline.Export(cmd.Context(), root.newReader(store), writer, limit)
			if err != nil {
				return err
			}
			if err := writer.Validate(); err != nil {
				slog.Warn("export validation failed", slog.Any("error", err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d items from %d categories to %s\n",
				summary.Records, summary.Categories, output)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&format, "format", "f", "csv", "Output format: csv, json or dual")
	flags.StringVarP(&output, "output", "o", "catalog.csv", "Output file path")
	flags.IntVar(&limit, "limit", pipeline.DefaultExportLimit, "Maximum items per category")
	return cmd
}
