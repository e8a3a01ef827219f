// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe and decodes streams and container format; Duration is
// the narrow helper segmentation uses to plan clip windows. A Runner can be
// supplied to replace the real binary in tests.
package ffprobe
