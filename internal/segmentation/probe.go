package segmentation

import (
	"context"

	"reelmill/internal/media/ffprobe"
)

// FFprobe adapts the ffprobe package to Prober. A nil Run uses the real
// binary.
type FFprobe struct {
	Binary string
	Run    ffprobe.Runner
}

// Duration implements Prober.
func (p FFprobe) Duration(ctx context.Context, path string) (float64, error) {
	return ffprobe.Duration(ctx, p.Run, p.Binary, path)
}
