package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}

// DirName converts a title into a single path segment: unsafe characters are
// sanitized and runs of whitespace become underscores.
func DirName(title string) string {
	return strings.Join(strings.Fields(SanitizeFileName(title)), "_")
}

// DisplayTitle turns an artifact directory name back into a readable title
// for notifications ("the_matrix_1999" -> "The Matrix 1999").
func DisplayTitle(name string) string {
	name = strings.NewReplacer("_", " ", ".", " ").Replace(strings.TrimSpace(name))
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return ""
	}
	return cases.Title(language.Und).String(name)
}

// Truncate returns at most limit runes of value. A non-positive limit returns
// value unchanged.
func Truncate(value string, limit int) string {
	if limit <= 0 {
		return value
	}
	count := 0
	for idx := range value {
		if count == limit {
			return value[:idx]
		}
		count++
	}
	return value
}
