package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"reelmill/internal/pipeline"
	"reelmill/internal/pipelinerun"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var resume bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the movie pipeline once",
		Long: "Acquire a movie from the catalog, cut it into vertical clips and publish them in\n" +
			"paced batches. With --resume, skip acquisition and segmentation and continue\n" +
			"publishing the current clip set. Exits non-zero only when acquisition or\n" +
			"segmentation aborts the run.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			result, runErr := pipelinerun.Run(cmd.Context(), cfg, pipelinerun.Options{Resume: resume})
			if result.RunID != "" {
				printRunSummary(cmd.OutOrStdout(), result)
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&resume, "resume", false, "Continue publishing the current clip set without downloading")
	return cmd
}

func printRunSummary(out io.Writer, result pipeline.Result) {
	fmt.Fprintf(out, "Run %s: %s\n", result.RunID, formatStatusLabel(result.Outcome.String()))
	if result.Source != "" {
		fmt.Fprintf(out, "  Source:     %s\n", result.Source)
	}
	fmt.Fprintf(out, "  Clips:      %d\n", result.Clips)
	fmt.Fprintf(out, "  Cycles:     %d\n", result.Cycles)
	fmt.Fprintf(out, "  Published:  %d\n", result.Published)
	if result.Failed > 0 {
		fmt.Fprintf(out, "  Failed:     %d (retried in later cycles)\n", result.Failed)
	}
	if result.Remaining >= 0 {
		fmt.Fprintf(out, "  Remaining:  %d\n", result.Remaining)
	} else {
		fmt.Fprintln(out, "  Remaining:  unknown")
	}
	fmt.Fprintf(out, "  Cleaned up: %s\n", yesNo(result.CleanedUp))
	if result.Interrupted {
		fmt.Fprintln(out, "Interrupted; continue with `reelmill run --resume`.")
	}
}
