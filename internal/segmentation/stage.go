package segmentation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"reelmill/internal/artifacts"
	"reelmill/internal/logging"
	"reelmill/internal/notifications"
	"reelmill/internal/services"
	"reelmill/internal/textutil"
)

const stageName = "segmentation"

// partialSuffix marks a clip that is still being rendered. It is not a clip
// extension, so an interrupted render is never published.
const partialSuffix = ".partial"

// Prober reports the playback duration of a media file in seconds.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// ClipRenderer renders one window of src into dst.
type ClipRenderer interface {
	Render(ctx context.Context, src, dst string, w Window) error
}

// Result describes a completed segmentation.
type Result struct {
	Dir      string
	Base     string
	Duration float64
	Clips    []string
}

// Stage turns the current media artifact into a derived set of clips.
type Stage struct {
	clipsDir string
	opts     Options
	prober   Prober
	renderer ClipRenderer
	notifier notifications.Notifier
	logger   *slog.Logger
}

// NewStage wires the segmentation stage.
func NewStage(clipsDir string, opts Options, prober Prober, renderer ClipRenderer, notifier notifications.Notifier, logger *slog.Logger) *Stage {
	if notifier == nil {
		notifier = notifications.NewNoop()
	}
	return &Stage{
		clipsDir: clipsDir,
		opts:     opts,
		prober:   prober,
		renderer: renderer,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, stageName),
	}
}

// Segment renders every planned window of media into <clips_dir>/<base>,
// where base is the source set name with whitespace replaced. The derived
// directory is recreated from scratch, so re-running after a crash never mixes
// old and new clips. A source too short for any window produces an empty set
// and no error. Any render failure fails the stage.
func (s *Stage) Segment(ctx context.Context, source artifacts.Set, media artifacts.Media) (Result, error) {
	ctx = services.WithStage(ctx, stageName)
	logger := logging.WithContext(ctx, s.logger)

	if s.prober == nil || s.renderer == nil {
		return Result{}, services.Wrap(services.ErrConfiguration, stageName, "init", "prober and renderer are required", nil)
	}
	base := textutil.DirName(source.Name)
	if base == "" {
		return Result{}, services.Wrap(services.ErrValidation, stageName, "prepare", "source set has no usable name", nil)
	}

	duration, err := s.prober.Duration(ctx, media.Path)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, stageName, "probe", filepath.Base(media.Path), err)
	}
	windows := Plan(duration, s.opts)
	logger.Info("clip windows planned",
		logging.String("media", media.Path),
		logging.String("duration", time.Duration(duration*float64(time.Second)).Round(time.Second).String()),
		logging.Int("clips", len(windows)),
		logging.String(logging.FieldEventType, "segmentation_planned"),
	)

	outDir := filepath.Join(s.clipsDir, base)
	if err := os.RemoveAll(outDir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Result{}, services.Wrap(services.ErrConfiguration, stageName, "prepare", "clear derived set", err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, stageName, "prepare", "create derived set", err)
	}

	result := Result{Dir: outDir, Base: base, Duration: duration, Clips: make([]string, 0, len(windows))}
	for _, w := range windows {
		if err := ctx.Err(); err != nil {
			return result, services.Wrap(services.ErrTimeout, stageName, "render", "interrupted", err)
		}
		name := artifacts.ClipName(base, w.Index)
		final := filepath.Join(outDir, name)
		partial := final + partialSuffix
		logger.Info("creating clip",
			logging.String("clip", name),
			logging.Int("start_seconds", w.Start),
			logging.Int("index", w.Index),
			logging.Int("total", len(windows)),
		)
		if err := s.renderer.Render(ctx, media.Path, partial, w); err != nil {
			_ = os.Remove(partial)
			marker := services.ErrExternalTool
			if errors.Is(err, context.DeadlineExceeded) {
				marker = services.ErrTimeout
			}
			return result, services.Wrap(marker, stageName, "render", name, err)
		}
		if err := os.Rename(partial, final); err != nil {
			return result, services.Wrap(services.ErrTransient, stageName, "render", fmt.Sprintf("finalize %s", name), err)
		}
		result.Clips = append(result.Clips, final)
	}

	logger.Info("segmentation complete",
		logging.String("dir", outDir),
		logging.Int("clips", len(result.Clips)),
		logging.String(logging.FieldEventType, "segmentation_complete"),
	)
	s.notifier.Notify(ctx, notifications.SegmentationComplete(base, len(result.Clips)))
	return result, nil
}
