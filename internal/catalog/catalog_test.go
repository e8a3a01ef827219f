package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelmill/internal/catalog"
)

func writeCatalog(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "imdb_magnet_links.csv")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

const sample = "Movies,Magnet Links,Year\n" +
	"Heat,magnet:?xt=urn:btih:aaa,1995\n" +
	"\"Crouching Tiger, Hidden Dragon\",magnet:?xt=urn:btih:bbb,2000\n" +
	"No Link,,2001\n" +
	"Alien,magnet:?xt=urn:btih:ccc,1979\n"

func TestEntriesSkipsIncompleteRows(t *testing.T) {
	c := catalog.New(writeCatalog(t, sample))
	entries, err := c.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %+v", entries)
	}
	if entries[1].Title != "Crouching Tiger, Hidden Dragon" {
		t.Fatalf("quoted title not parsed: %+v", entries[1])
	}
}

func TestPickUsesInjectedPicker(t *testing.T) {
	var seen int
	c := catalog.New(writeCatalog(t, sample), catalog.WithPicker(func(n int) int {
		seen = n
		return n - 1
	}))
	entry, err := c.Pick()
	if err != nil {
		t.Fatalf("Pick: %v", err)
	}
	if seen != 3 || entry.Title != "Alien" {
		t.Fatalf("unexpected pick %+v (n=%d)", entry, seen)
	}
}

func TestPickEmptyCatalog(t *testing.T) {
	c := catalog.New(writeCatalog(t, "Movies,Magnet Links\n"))
	if _, err := c.Pick(); !errors.Is(err, catalog.ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	c = catalog.New(writeCatalog(t, ""))
	if _, err := c.Pick(); !errors.Is(err, catalog.ErrEmpty) {
		t.Fatalf("expected ErrEmpty for blank file, got %v", err)
	}
}

func TestMissingColumnsRejected(t *testing.T) {
	c := catalog.New(writeCatalog(t, "Title,Link\nHeat,magnet:x\n"))
	if _, err := c.Entries(); err == nil || !strings.Contains(err.Error(), "Magnet Links") {
		t.Fatalf("expected header error, got %v", err)
	}
}

func TestRemoveRewritesFilePreservingOtherRows(t *testing.T) {
	path := writeCatalog(t, sample)
	c := catalog.New(path)
	removed, err := c.Remove(catalog.Entry{Title: "Heat"})
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one row removed, got %d", removed)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read catalog: %v", err)
	}
	text := string(data)
	if strings.Contains(text, "Heat") {
		t.Fatalf("expected Heat removed: %s", text)
	}
	for _, keep := range []string{"Movies,Magnet Links,Year", "No Link,,2001", "\"Crouching Tiger, Hidden Dragon\""} {
		if !strings.Contains(text, keep) {
			t.Fatalf("expected %q preserved in %s", keep, text)
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected permissions preserved, got %v", info.Mode().Perm())
	}

	removed, err = c.Remove(catalog.Entry{Title: "Heat"})
	if err != nil || removed != 0 {
		t.Fatalf("second remove should be a no-op, got %d %v", removed, err)
	}
}
