package artifacts

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// ErrNoMedia is returned when a source set holds no recognised video file.
var ErrNoMedia = errors.New("no media file found")

var mediaExtensions = map[string]struct{}{
	".mp4":  {},
	".mkv":  {},
	".mov":  {},
	".avi":  {},
	".webm": {},
}

// Media is the primary video file of a source set.
type Media struct {
	Path string
	Size int64
}

// IsMediaFile reports whether name has a video extension the segmenter accepts.
func IsMediaFile(name string) bool {
	_, ok := mediaExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// LargestMedia walks dir recursively and returns the largest video file.
// Equal sizes resolve to the lexicographically smallest path.
func LargestMedia(dir string) (Media, error) {
	var best Media
	found := false
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || !IsMediaFile(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !found || info.Size() > best.Size || (info.Size() == best.Size && path < best.Path) {
			best = Media{Path: path, Size: info.Size()}
			found = true
		}
		return nil
	})
	if err != nil {
		return Media{}, fmt.Errorf("scan %s: %w", dir, err)
	}
	if !found {
		return Media{}, fmt.Errorf("%w in %s", ErrNoMedia, dir)
	}
	return best, nil
}
