package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"reelmill/internal/artifacts"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := min(int64(chunkSize), remaining)
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// WriteClips creates count small clip files named <base>_reel_NN.mp4 inside
// <root>/<base> and returns the set directory.
func WriteClips(t testing.TB, root, base string, count int) string {
	t.Helper()

	dir := filepath.Join(root, base)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	for i := 1; i <= count; i++ {
		WriteFile(t, filepath.Join(dir, artifacts.ClipName(base, i)), 16)
	}
	return dir
}

// Touch sets the modification time of path, failing the test on error.
func Touch(t testing.TB, path string, modTime time.Time) {
	t.Helper()

	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}
