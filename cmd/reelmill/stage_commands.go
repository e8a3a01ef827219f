package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"reelmill/internal/pipelinerun"
)

func newStageCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newAcquireCommand(ctx),
		newSegmentCommand(ctx),
		newPublishCommand(ctx),
	}
}

// withSession opens a locked session with wired stages for a single-stage
// command.
func (c *commandContext) withSession(cmd *cobra.Command, fn func(context.Context, *pipelinerun.Session, pipelinerun.Stages) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	session, err := pipelinerun.Open(cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	stages, err := session.BuildStages()
	if err != nil {
		return err
	}
	return fn(session.Context(cmd.Context()), session, stages)
}

func newAcquireCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "acquire",
		Short: "Download one random movie from the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(runCtx context.Context, session *pipelinerun.Session, stages pipelinerun.Stages) error {
				result, err := session.AcquireOnce(runCtx, stages.Acquisition)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %s (%d file(s)) into %s\n", result.Title, result.Files, result.Dir)
				return nil
			})
		},
	}
}

func newSegmentCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "segment",
		Short: "Cut the current movie into vertical clips",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(runCtx context.Context, session *pipelinerun.Session, stages pipelinerun.Stages) error {
				result, err := session.SegmentCurrent(runCtx, stages.Segmentation)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %d clip(s) in %s\n", len(result.Clips), result.Dir)
				return nil
			})
		},
	}
}

func newPublishCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Publish one batch from the current clip set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(runCtx context.Context, session *pipelinerun.Session, stages pipelinerun.Stages) error {
				report, err := session.PublishBatch(runCtx, stages.Publication)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if report.Attempted() == 0 {
					fmt.Fprintln(out, "No clips to publish")
					return nil
				}
				fmt.Fprintln(out, report.String())
				if report.LogPath != "" {
					fmt.Fprintf(out, "Outcome log: %s\n", report.LogPath)
				}
				return nil
			})
		},
	}
}
