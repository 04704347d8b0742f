// Package outtmpl renders yt-dlp style output templates such as
// "%(title)s.%(ext)s" into file names.
package outtmpl

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ytget/ytmp3/internal/sanitize"
)

// Supported field names.
const (
	FieldTitle         = "title"
	FieldID            = "id"
	FieldExt           = "ext"
	FieldPlaylistIndex = "playlist_index"
	FieldPlaylistID    = "playlist_id"
)

var knownFields = map[string]bool{
	FieldTitle:         true,
	FieldID:            true,
	FieldExt:           true,
	FieldPlaylistIndex: true,
	FieldPlaylistID:    true,
}

var (
	// ErrNoFields is returned for templates without any %(...) field; such a
	// template would give every item the same name.
	ErrNoFields = errors.New("template has no fields")
	// ErrAbsolute is returned for templates that escape the output directory.
	ErrAbsolute = errors.New("template must be a relative path inside the output directory")
)

// Fields carries the values substituted into a template.
type Fields struct {
	Title         string
	ID            string
	Ext           string
	PlaylistIndex int
	PlaylistID    string
}

func (f Fields) lookup(name string) (string, int, bool) {
	switch name {
	case FieldTitle:
		return f.Title, 0, false
	case FieldID:
		return f.ID, 0, false
	case FieldExt:
		return f.Ext, 0, false
	case FieldPlaylistIndex:
		return "", f.PlaylistIndex, true
	case FieldPlaylistID:
		return f.PlaylistID, 0, false
	}
	return "", 0, false
}

type part struct {
	literal string
	field   string
	verb    byte // 's' or 'd'
	width   int
	zero    bool
}

// Template is a parsed output template.
type Template struct {
	raw   string
	parts []part
}

// Parse validates and parses s.
func Parse(s string) (*Template, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errors.New("empty template")
	}
	if filepath.IsAbs(s) || strings.HasPrefix(s, "/") {
		return nil, ErrAbsolute
	}

	t := &Template{raw: s}
	var lit strings.Builder
	fields := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '%' {
			lit.WriteByte(c)
			continue
		}
		if i+1 < len(s) && s[i+1] == '%' {
			lit.WriteByte('%')
			i++
			continue
		}
		if i+1 >= len(s) || s[i+1] != '(' {
			return nil, fmt.Errorf("bad template at offset %d: expected %%( or %%%%", i)
		}
		end := strings.IndexByte(s[i+2:], ')')
		if end < 0 {
			return nil, fmt.Errorf("bad template at offset %d: unterminated field", i)
		}
		name := s[i+2 : i+2+end]
		if !knownFields[name] {
			return nil, fmt.Errorf("unknown template field %q", name)
		}
		p, n, err := parseConversion(s[i+2+end+1:])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		p.field = name
		if lit.Len() > 0 {
			t.parts = append(t.parts, part{literal: lit.String()})
			lit.Reset()
		}
		t.parts = append(t.parts, p)
		fields++
		i += 2 + end + n
	}
	if lit.Len() > 0 {
		t.parts = append(t.parts, part{literal: lit.String()})
	}
	if fields == 0 {
		return nil, ErrNoFields
	}
	for _, p := range t.parts {
		if p.field == "" && containsParentRef(p.literal) {
			return nil, ErrAbsolute
		}
	}
	return t, nil
}

// parseConversion reads "[0][width](s|d)" and returns how many bytes it used.
func parseConversion(s string) (part, int, error) {
	var p part
	i := 0
	if i < len(s) && s[i] == '0' {
		p.zero = true
		i++
	}
	start := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > start {
		w, err := strconv.Atoi(s[start:i])
		if err != nil {
			return p, 0, err
		}
		p.width = w
	}
	if i >= len(s) || (s[i] != 's' && s[i] != 'd') {
		return p, 0, errors.New("missing conversion, want s or d")
	}
	p.verb = s[i]
	return p, i + 1, nil
}

func containsParentRef(lit string) bool {
	for _, seg := range strings.FieldsFunc(lit, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return true
		}
	}
	return false
}

// String returns the template source.
func (t *Template) String() string { return t.raw }

// Execute renders the template. Substituted values are sanitized so a title
// can never introduce directories; literal separators in the template are
// kept.
func (t *Template) Execute(f Fields) string {
	var b strings.Builder
	for _, p := range t.parts {
		if p.field == "" {
			b.WriteString(p.literal)
			continue
		}
		str, num, numeric := f.lookup(p.field)
		var val string
		switch {
		case numeric || p.verb == 'd':
			if !numeric {
				n, err := strconv.Atoi(str)
				if err == nil {
					num = n
				}
			}
			if p.zero {
				val = fmt.Sprintf("%0*d", p.width, num)
			} else {
				val = fmt.Sprintf("%*d", p.width, num)
			}
		default:
			val = fmt.Sprintf("%*s", p.width, str)
		}
		val = sanitize.Component(val)
		if val == "" && p.field == FieldTitle {
			val = sanitize.DefaultName
		}
		b.WriteString(val)
	}
	return filepath.Clean(filepath.FromSlash(b.String()))
}
