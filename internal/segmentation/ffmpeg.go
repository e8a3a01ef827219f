package segmentation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"reelmill/internal/config"
	"reelmill/internal/services"
)

// RenderOption configures the renderer.
type RenderOption func(*Renderer)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec services.Executor) RenderOption {
	return func(r *Renderer) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// Renderer cuts vertical clips with ffmpeg.
type Renderer struct {
	binary string
	width  int
	height int
	crf    int
	preset string
	exec   services.Executor
}

// NewRenderer builds a renderer from segmentation settings.
func NewRenderer(cfg config.Segmentation, opts ...RenderOption) (*Renderer, error) {
	binary := strings.TrimSpace(cfg.FFmpegBinary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid clip dimensions %dx%d", cfg.Width, cfg.Height)
	}
	r := &Renderer{
		binary: binary,
		width:  cfg.Width,
		height: cfg.Height,
		crf:    cfg.CRF,
		preset: cfg.Preset,
		exec:   services.CommandExecutor{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Render writes window w of src to dst as an H.264/AAC MP4 letterboxed into
// the configured portrait frame. The container is forced to mp4 so dst may
// carry a temporary suffix.
func (r *Renderer) Render(ctx context.Context, src, dst string, w Window) error {
	if err := r.exec.Run(ctx, r.binary, r.args(src, dst, w), nil); err != nil {
		return fmt.Errorf("ffmpeg clip %d: %w", w.Index, err)
	}
	return nil
}

func (r *Renderer) args(src, dst string, w Window) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-ss", strconv.Itoa(w.Start),
		"-i", src,
		"-t", strconv.Itoa(w.Seconds),
		"-vf", r.videoFilter(),
		"-c:v", "libx264",
		"-crf", strconv.Itoa(r.crf),
		"-preset", r.preset,
		"-c:a", "aac",
		"-b:a", "128k",
		"-f", "mp4",
		"-y", dst,
	}
}

func (r *Renderer) videoFilter() string {
	return fmt.Sprintf("scale=w=%d:h=%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black",
		r.width, r.height, r.width, r.height)
}
