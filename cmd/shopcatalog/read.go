package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newCategoriesCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List stored categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, db, err := root.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB(db)

			cats, err := root.newReader(store).Categories(cmd.Context())
			if err != nil {
				return err
			}
			if len(cats) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No categories yet. Run scrape-now first.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tID")
			for _, c := range cats {
				fmt.Fprintf(tw, "%s\t%s\n", c.Name, c.ID)
			}
			return tw.Flush()
		},
	}
}

func newItemsCmd(root *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "items <category>",
		Short: "Show the newest items of a category",
		Long: `Show the newest items of a category. The category may be given by its
display name ("Mens Shoes") or its table name ("products_mens_shoes").`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			store, db, err := root.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB(db)

			reader := root.newReader(store)
			name := strings.Join(args, " ")
			id, found, err := reader.Lookup(cmd.Context(), name)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("category %q not found (looked for %s)", name, id)
			}

			rows, err := reader.TopItems(cmd.Context(), id, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "This category is empty.")
				return nil
			}
			for _, row := range rows {
				if row.URL != "" {
					fmt.Fprintf(out, "- %s  %s\n  %s\n", row.Title, row.Price, row.URL)
					continue
				}
				fmt.Fprintf(out, "- %s  %s\n", row.Title, row.Price)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of items to show")
	return cmd
}
