package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNoArtifactSet is returned when a root has no subdirectories.
var ErrNoArtifactSet = errors.New("no artifact set found")

// Set is one artifact directory under a root.
type Set struct {
	Name    string
	Path    string
	ModTime time.Time
}

// ListSets returns the direct subdirectories of root, newest first. Ties on
// modification time are ordered by name, greatest first. A missing root yields
// no sets.
func ListSets(root string) ([]Set, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("artifact root not configured")
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read artifact root %s: %w", root, err)
	}

	sets := make([]Set, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		sets = append(sets, Set{
			Name:    entry.Name(),
			Path:    filepath.Join(root, entry.Name()),
			ModTime: info.ModTime(),
		})
	}
	sort.SliceStable(sets, func(i, j int) bool {
		if !sets[i].ModTime.Equal(sets[j].ModTime) {
			return sets[i].ModTime.After(sets[j].ModTime)
		}
		return sets[i].Name > sets[j].Name
	})
	return sets, nil
}

// ResolveCurrentSet returns the most recently modified subdirectory of root.
func ResolveCurrentSet(root string) (Set, error) {
	sets, err := ListSets(root)
	if err != nil {
		return Set{}, err
	}
	if len(sets) == 0 {
		return Set{}, fmt.Errorf("%w in %s", ErrNoArtifactSet, root)
	}
	return sets[0], nil
}

// RemoveSet deletes an artifact set. The set must be a direct child of root so
// a bad path can never remove anything outside the artifact roots.
func RemoveSet(root string, set Set) error {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}
	setAbs, err := filepath.Abs(set.Path)
	if err != nil {
		return fmt.Errorf("resolve set: %w", err)
	}
	if filepath.Dir(setAbs) != rootAbs || setAbs == rootAbs {
		return fmt.Errorf("refusing to remove %s: not a set under %s", setAbs, rootAbs)
	}
	if err := os.RemoveAll(setAbs); err != nil {
		return fmt.Errorf("remove %s: %w", setAbs, err)
	}
	return nil
}

// DirSize totals the regular files under path. Unreadable entries are skipped.
func DirSize(path string) int64 {
	var size int64
	_ = filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				size += info.Size()
			}
		}
		return nil
	})
	return size
}
