// Package filetype decides whether a candidate file may be attached to a chat
// input, given an allow-list of file extensions.
package filetype

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrNotAllowed is reported for candidates whose extension is not in the
// configured allow-list.
var ErrNotAllowed = errors.New("file type not allowed")

// Constraint is a set of accepted extensions. A nil or empty Constraint
// accepts every file.
//
// Entries may be written with or without the leading dot. An empty entry (or a
// sole ".") allows files that have no extension at all.
type Constraint []string

// Normalize converts user-supplied file types into a Constraint: entries are
// trimmed, lowercased and prefixed with a dot, so "PNG" and "png" both become
// ".png". Empty entries and a sole "." are kept as the empty-extension marker.
func Normalize(types []string) Constraint {
	if len(types) == 0 {
		return nil
	}

	c := make(Constraint, 0, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && t != "." && !strings.HasPrefix(t, ".") {
			t = "." + t
		}
		c = append(c, t)
	}
	return c
}

// allowsEmpty reports whether c explicitly allows files without extension.
func (c Constraint) allowsEmpty() bool {
	for _, e := range c {
		if e = strings.TrimSpace(e); e == "" || e == "." {
			return true
		}
	}
	return false
}

// IsAllowed reports whether filename is accepted by c.
//
// Only the suffix after the last dot of the base name counts, so
// "a.txt.backup" has the extension "backup". Matching is case-insensitive.
// A name without a dot, or ending with one, has an empty extension.
func IsAllowed(filename string, c Constraint) bool {
	if len(c) == 0 {
		return true
	}

	name := strings.ToLower(path.Base(strings.ReplaceAll(filename, "\\", "/")))

	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return c.allowsEmpty()
	}

	ext := name[idx+1:]
	for _, e := range c {
		e = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(e)), ".")
		if e != "" && e == ext {
			return true
		}
	}
	return false
}

// Verdict is the outcome of Validate.
type Verdict struct {
	Valid   bool
	Message string
}

// Err returns nil for a valid verdict, otherwise ErrNotAllowed wrapped with
// the verdict message.
func (v Verdict) Err() error {
	if v.Valid {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNotAllowed, v.Message)
}

// Validate checks a candidate by name and declared media type. The media type
// is only used to phrase the rejection message, without its parameters.
func Validate(name, mediaType string, c Constraint) Verdict {
	if IsAllowed(name, c) {
		return Verdict{Valid: true}
	}
	return Verdict{Message: rejectionMessage(mediaType)}
}

func rejectionMessage(mediaType string) string {
	kind := strings.TrimSpace(mediaType)
	if i := strings.Index(kind, ";"); i >= 0 {
		kind = strings.TrimSpace(kind[:i])
	}
	if kind == "" {
		kind = "This type of"
	}
	return fmt.Sprintf("%s files are not allowed.", kind)
}
