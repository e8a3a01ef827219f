package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelmill/internal/catalog"
	"reelmill/internal/textutil"
)

const magnetColumnWidth = 48

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the magnet catalog",
	}
	catalogCmd.AddCommand(newCatalogListCommand(ctx))
	return catalogCmd
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List movies waiting in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			entries, err := catalog.New(cfg.Catalog.Path).Entries()
			if err != nil {
				return err
			}
			if asJSON {
				type jsonEntry struct {
					Title  string `json:"title"`
					Magnet string `json:"magnet"`
				}
				items := make([]jsonEntry, 0, len(entries))
				for _, entry := range entries {
					items = append(items, jsonEntry{Title: entry.Title, Magnet: entry.Magnet})
				}
				return writeJSON(cmd, items)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "Catalog %s is empty\n", cfg.Catalog.Path)
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for i, entry := range entries {
				rows = append(rows, []string{
					fmt.Sprintf("%d", i+1),
					entry.Title,
					textutil.Truncate(entry.Magnet, magnetColumnWidth),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Title", "Magnet"}, rows, []columnAlignment{alignRight}))
			fmt.Fprintf(out, "%d movie(s) in %s\n", len(entries), cfg.Catalog.Path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
