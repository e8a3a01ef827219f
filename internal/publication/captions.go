package publication

import (
	"bufio"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
)

// DefaultCaption is used when the captions file is missing or empty.
const DefaultCaption = "🎬 Check out this video!"

// Captions picks a random line from a captions file.
type Captions struct {
	lines []string
	pick  func(n int) int
}

// LoadCaptions reads non-blank lines from path. A missing file yields a
// Captions that always returns DefaultCaption.
func LoadCaptions(path string, pick func(n int) int) (*Captions, error) {
	if pick == nil {
		pick = rand.IntN
	}
	c := &Captions{pick: pick}
	if strings.TrimSpace(path) == "" {
		return c, nil
	}
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open captions: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			c.lines = append(c.lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read captions: %w", err)
	}
	return c, nil
}

// Len returns the number of loaded captions.
func (c *Captions) Len() int {
	return len(c.lines)
}

// Random returns one caption line.
func (c *Captions) Random() string {
	if len(c.lines) == 0 {
		return DefaultCaption
	}
	return c.lines[c.pick(len(c.lines))]
}

// Describe builds the post description for a clip file.
func (c *Captions) Describe(fileName string) string {
	return fileName + "\n\n" + c.Random()
}
