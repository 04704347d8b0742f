// Package sanitize turns arbitrary media titles into portable file names.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxFilenameLength is the maximum allowed length, in bytes, of a name
	// component before its extension.
	MaxFilenameLength = 120
	// DefaultExt is the default extension used when none is provided.
	DefaultExt = "mp3"
	// DefaultName is the replacement name when the title is empty.
	DefaultName = "audio"
)

var (
	unsafeChars  = regexp.MustCompile(`[\\/:*?"<>|\x00-\x1f]+`)
	repeatSpaces = regexp.MustCompile(`\s{2,}`)
)

// Component sanitizes a single path component: separators and characters
// reserved on common filesystems become "_", whitespace runs collapse, and
// leading dots are dropped so titles never produce hidden or relative names.
func Component(s string) string {
	name := unsafeChars.ReplaceAllString(s, "_")
	name = repeatSpaces.ReplaceAllString(name, " ")
	name = strings.TrimLeft(strings.TrimSpace(name), ".")
	name = strings.TrimSpace(name)
	return truncate(name, MaxFilenameLength)
}

// ToSafeFilename builds a cross-platform safe filename from title and extension (without dot in ext).
func ToSafeFilename(title, ext string) string {
	name := Component(title)
	if name == "" {
		name = DefaultName
	}
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	if ext == "" {
		ext = DefaultExt
	}
	return name + "." + ext
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimSpace(s[:cut])
}
