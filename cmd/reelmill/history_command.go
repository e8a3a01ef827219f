package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"reelmill/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from the run ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ledger.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, historyJSON(runs))
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Mode", "Started", "Outcome", "Source", "Clips", "Published", "Failed", "Remaining", "Cleaned"},
				historyRows(runs),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func historyRows(runs []ledger.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		outcome := formatStatusLabel(run.Outcome)
		if !run.Finished() {
			outcome = "Running"
		}
		remaining := "-"
		if run.Remaining >= 0 {
			remaining = strconv.Itoa(run.Remaining)
		}
		source := run.SourceTitle
		if source == "" {
			source = "-"
		}
		rows = append(rows, []string{
			shortID(run.ID),
			string(run.Mode),
			formatDisplayTime(run.StartedAt),
			outcome,
			source,
			strconv.Itoa(run.ClipCount),
			strconv.Itoa(run.Published),
			strconv.Itoa(run.Failed),
			remaining,
			yesNo(run.CleanedUp),
		})
	}
	return rows
}

func historyJSON(runs []ledger.Run) []map[string]any {
	items := make([]map[string]any, 0, len(runs))
	for _, run := range runs {
		item := map[string]any{
			"id":         run.ID,
			"mode":       string(run.Mode),
			"started_at": run.StartedAt,
			"outcome":    run.Outcome,
			"source":     run.SourceTitle,
			"clips":      run.ClipCount,
			"cycles":     run.Cycles,
			"published":  run.Published,
			"failed":     run.Failed,
			"remaining":  run.Remaining,
			"cleaned_up": run.CleanedUp,
		}
		if run.FinishedAt != nil {
			item["finished_at"] = *run.FinishedAt
		}
		if run.ErrorMessage != "" {
			item["error"] = run.ErrorMessage
		}
		items = append(items, item)
	}
	return items
}
