package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var clipExtensions = map[string]struct{}{
	".mp4": {},
	".mov": {},
	".avi": {},
}

var clipIndexPattern = regexp.MustCompile(`_(\d+)$`)

// Clip is one rendered segment awaiting publication. Index is the generation
// order parsed from the trailing _NN of the name, or 0 when absent.
type Clip struct {
	Path  string
	Name  string
	Index int
}

// ClipName formats the file name for the index-th clip (1-based) of base.
func ClipName(base string, index int) string {
	return fmt.Sprintf("%s_reel_%02d.mp4", base, index)
}

// ListClips returns the publishable clips directly inside dir ordered by
// generation index. Clips without an index follow, ordered by name. A missing
// directory yields no clips.
func ListClips(dir string) ([]Clip, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read clip dir %s: %w", dir, err)
	}
	clips := make([]Clip, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if _, ok := clipExtensions[ext]; !ok {
			continue
		}
		clips = append(clips, Clip{
			Path:  filepath.Join(dir, name),
			Name:  name,
			Index: parseClipIndex(strings.TrimSuffix(name, filepath.Ext(name))),
		})
	}
	sort.SliceStable(clips, func(i, j int) bool {
		a, b := clips[i], clips[j]
		switch {
		case a.Index > 0 && b.Index > 0 && a.Index != b.Index:
			return a.Index < b.Index
		case a.Index > 0 && b.Index == 0:
			return true
		case a.Index == 0 && b.Index > 0:
			return false
		default:
			return a.Name < b.Name
		}
	})
	return clips, nil
}

// CurrentClips resolves the current derived set under root and lists its
// clips.
func CurrentClips(root string) (Set, []Clip, error) {
	set, err := ResolveCurrentSet(root)
	if err != nil {
		return Set{}, nil, err
	}
	clips, err := ListClips(set.Path)
	if err != nil {
		return set, nil, err
	}
	return set, clips, nil
}

// Batch returns the first min(limit, len(clips)) clips.
func Batch(clips []Clip, limit int) []Clip {
	if limit <= 0 {
		return nil
	}
	if len(clips) < limit {
		limit = len(clips)
	}
	out := make([]Clip, limit)
	copy(out, clips[:limit])
	return out
}

func parseClipIndex(stem string) int {
	match := clipIndexPattern.FindStringSubmatch(stem)
	if match == nil {
		return 0
	}
	idx, err := strconv.Atoi(match[1])
	if err != nil || idx <= 0 {
		return 0
	}
	return idx
}
