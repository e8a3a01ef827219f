package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
)

const (
	titleColumn  = "Movies"
	magnetColumn = "Magnet Links"
)

// ErrEmpty is returned when the catalog has no usable entries.
var ErrEmpty = errors.New("movie catalog is empty")

// Entry is one downloadable movie.
type Entry struct {
	Title  string
	Magnet string
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithPicker replaces the random index source (primarily for tests). pick
// receives n > 0 and must return a value in [0, n).
func WithPicker(pick func(n int) int) Option {
	return func(c *Catalog) {
		if pick != nil {
			c.pick = pick
		}
	}
}

// Catalog is a CSV file with "Movies" and "Magnet Links" columns. Every call
// re-reads the file so external edits are always honoured.
type Catalog struct {
	path string
	pick func(n int) int
}

// New returns a catalog backed by the CSV file at path.
func New(path string, opts ...Option) *Catalog {
	c := &Catalog{path: path, pick: rand.IntN}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Path returns the backing file location.
func (c *Catalog) Path() string { return c.path }

// Entries lists every row that has both a title and a magnet link.
func (c *Catalog) Entries() ([]Entry, error) {
	doc, err := c.read()
	if err != nil {
		return nil, err
	}
	return doc.entries(), nil
}

// Pick returns a uniformly random entry.
func (c *Catalog) Pick() (Entry, error) {
	entries, err := c.Entries()
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, fmt.Errorf("%w: %s", ErrEmpty, c.path)
	}
	return entries[c.pick(len(entries))], nil
}

// Remove deletes every row whose title matches entry and rewrites the file
// atomically. It returns the number of rows removed.
func (c *Catalog) Remove(entry Entry) (int, error) {
	doc, err := c.read()
	if err != nil {
		return 0, err
	}
	kept := make([][]string, 0, len(doc.rows))
	removed := 0
	for _, row := range doc.rows {
		if strings.TrimSpace(doc.cell(row, doc.titleIdx)) == entry.Title {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	if removed == 0 {
		return 0, nil
	}
	doc.rows = kept
	if err := c.write(doc); err != nil {
		return 0, err
	}
	return removed, nil
}

type document struct {
	header    []string
	rows      [][]string
	titleIdx  int
	magnetIdx int
}

func (d document) cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func (d document) entries() []Entry {
	out := make([]Entry, 0, len(d.rows))
	for _, row := range d.rows {
		title := strings.TrimSpace(d.cell(row, d.titleIdx))
		magnet := strings.TrimSpace(d.cell(row, d.magnetIdx))
		if title == "" || magnet == "" {
			continue
		}
		out = append(out, Entry{Title: title, Magnet: magnet})
	}
	return out
}

func (c *Catalog) read() (document, error) {
	file, err := os.Open(c.path)
	if err != nil {
		return document{}, fmt.Errorf("open catalog: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return document{}, fmt.Errorf("%w: %s has no header", ErrEmpty, c.path)
		}
		return document{}, fmt.Errorf("read catalog header: %w", err)
	}
	doc := document{header: header, titleIdx: -1, magnetIdx: -1}
	for idx, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case titleColumn:
			doc.titleIdx = idx
		case magnetColumn:
			doc.magnetIdx = idx
		}
	}
	if doc.titleIdx < 0 || doc.magnetIdx < 0 {
		return document{}, fmt.Errorf("catalog %s: header must contain %q and %q", c.path, titleColumn, magnetColumn)
	}
	rows, err := reader.ReadAll()
	if err != nil {
		return document{}, fmt.Errorf("read catalog rows: %w", err)
	}
	doc.rows = rows
	return doc, nil
}

func (c *Catalog) write(doc document) error {
	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, ".catalog-*.csv")
	if err != nil {
		return fmt.Errorf("create temp catalog: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	writer := csv.NewWriter(tmp)
	if err := writer.Write(doc.header); err != nil {
		tmp.Close()
		return fmt.Errorf("write catalog header: %w", err)
	}
	if err := writer.WriteAll(doc.rows); err != nil {
		tmp.Close()
		return fmt.Errorf("write catalog rows: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp catalog: %w", err)
	}
	if info, err := os.Stat(c.path); err == nil {
		_ = os.Chmod(tmpPath, info.Mode().Perm())
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("replace catalog: %w", err)
	}
	return nil
}
