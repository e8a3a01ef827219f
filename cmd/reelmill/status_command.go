package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reelmill/internal/artifacts"
	"reelmill/internal/config"
	"reelmill/internal/deps"
	"reelmill/internal/ledger"
	"reelmill/internal/preflight"
	"reelmill/internal/runlock"
)

type statusSnapshot struct {
	ConfigPath    string
	Deps          []deps.Status
	Checks        []preflight.Result
	Graph         *preflight.Result
	Notifications preflight.Result

	Source         *artifacts.Set
	SourceSize     int64
	Media          string
	Derived        *artifacts.Set
	Remaining      int
	ArtifactErrors []string

	LockHeld bool
	Holder   runlock.Holder

	LastRun   *ledger.Run
	LedgerErr error
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var online bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show pipeline state, dependencies and the last run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			snap := collectStatus(cmd.Context(), cfg, online)
			snap.ConfigPath = ctx.configPath
			out := cmd.OutOrStdout()
			for _, line := range renderStatus(snap, shouldColorize(out), time.Now()) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&online, "online", false, "Also verify the page token against the Graph API")
	return cmd
}

func collectStatus(ctx context.Context, cfg *config.Config, online bool) statusSnapshot {
	snap := statusSnapshot{
		Deps:          preflight.CheckSystemDeps(cfg),
		Checks:        preflight.RunAll(ctx, cfg, preflight.ModeFull),
		Notifications: preflight.CheckNotificationsFromConfig(cfg),
		Remaining:     -1,
	}
	if online {
		graph := preflight.CheckGraphFromConfig(ctx, cfg)
		snap.Graph = &graph
	}

	if source, err := artifacts.ResolveCurrentSet(cfg.Paths.MoviesDir); err == nil {
		snap.Source = &source
		snap.SourceSize = artifacts.DirSize(source.Path)
		if media, err := artifacts.LargestMedia(source.Path); err == nil {
			snap.Media = media.Path
		}
	} else if !errors.Is(err, artifacts.ErrNoArtifactSet) {
		snap.ArtifactErrors = append(snap.ArtifactErrors, err.Error())
	}
	if derived, clips, err := artifacts.CurrentClips(cfg.Paths.ClipsDir); err == nil {
		snap.Derived = &derived
		snap.Remaining = len(clips)
	} else if !errors.Is(err, artifacts.ErrNoArtifactSet) {
		snap.ArtifactErrors = append(snap.ArtifactErrors, err.Error())
	}

	if held, err := runlock.Held(cfg.LockPath()); err == nil && held {
		snap.LockHeld = true
		snap.Holder, _ = runlock.ReadHolder(cfg.LockPath())
	}

	store, err := ledger.Open(cfg)
	if err != nil {
		snap.LedgerErr = err
		return snap
	}
	defer store.Close()
	snap.LastRun, snap.LedgerErr = store.LastRun(ctx)
	return snap
}

func renderStatus(snap statusSnapshot, colorize bool, now time.Time) []string {
	var lines []string

	lines = append(lines, renderSectionHeader("Pipeline", colorize)...)
	if snap.ConfigPath != "" {
		lines = append(lines, renderStatusLine("Config", statusInfo, snap.ConfigPath, colorize))
	}
	if snap.LockHeld {
		detail := "Held"
		if snap.Holder.PID > 0 {
			detail = fmt.Sprintf("Running (pid %d, run %s, started %s)", snap.Holder.PID, shortID(snap.Holder.RunID), formatAge(now, snap.Holder.Started))
		}
		lines = append(lines, renderStatusLine("Run", statusOK, detail, colorize))
	} else {
		lines = append(lines, renderStatusLine("Run", statusInfo, "Idle", colorize))
	}
	lines = append(lines, lastRunLine(snap, colorize))

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Artifacts", colorize)...)
	if snap.Source != nil {
		detail := fmt.Sprintf("%s (%s)", snap.Source.Name, formatBytes(snap.SourceSize))
		kind := statusOK
		if snap.Media == "" {
			detail += ", no video file"
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine("Movie", kind, detail, colorize))
	} else {
		lines = append(lines, renderStatusLine("Movie", statusInfo, "None", colorize))
	}
	if snap.Derived != nil {
		kind := statusOK
		if snap.Remaining > 0 {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine("Clips", kind, fmt.Sprintf("%s (%d waiting)", snap.Derived.Name, snap.Remaining), colorize))
	} else {
		lines = append(lines, renderStatusLine("Clips", statusInfo, "None", colorize))
	}
	for _, msg := range snap.ArtifactErrors {
		lines = append(lines, renderStatusLine("Artifact error", statusError, msg, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
	lines = append(lines, dependencyLines(snap.Deps, colorize)...)

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Checks", colorize)...)
	for _, check := range snap.Checks {
		lines = append(lines, checkLine(check, statusError, colorize))
	}
	lines = append(lines, checkLine(snap.Notifications, statusWarn, colorize))
	if snap.Graph != nil {
		lines = append(lines, checkLine(*snap.Graph, statusError, colorize))
	}
	return lines
}

func lastRunLine(snap statusSnapshot, colorize bool) string {
	if snap.LedgerErr != nil {
		return renderStatusLine("Last run", statusError, snap.LedgerErr.Error(), colorize)
	}
	run := snap.LastRun
	if run == nil {
		return renderStatusLine("Last run", statusInfo, "None recorded", colorize)
	}
	if !run.Finished() {
		return renderStatusLine("Last run", statusWarn,
			fmt.Sprintf("%s started %s, not finished", shortID(run.ID), formatDisplayTime(run.StartedAt)), colorize)
	}
	kind := statusOK
	switch run.Outcome {
	case "aborted_at_acquisition", "aborted_at_segmentation":
		kind = statusError
	case "aborted_at_publication", "completed_with_remainder":
		kind = statusWarn
	}
	detail := fmt.Sprintf("%s %s, %d published", formatStatusLabel(run.Outcome), formatDisplayTime(*run.FinishedAt), run.Published)
	if run.SourceTitle != "" {
		detail += " from " + run.SourceTitle
	}
	return renderStatusLine("Last run", kind, detail, colorize)
}

func checkLine(result preflight.Result, failKind statusKind, colorize bool) string {
	if result.Passed {
		return renderStatusLine(result.Name, statusOK, result.Detail, colorize)
	}
	return renderStatusLine(result.Name, failKind, result.Detail, colorize)
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	var missing []string
	for _, dep := range statuses {
		if dep.Available {
			message := "Ready"
			if dep.Path != "" {
				message = fmt.Sprintf("Ready (%s)", dep.Path)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		missing = append(missing, dep.Name)
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn, strings.Join(missing, ", "), colorize))
	}
	return lines
}
