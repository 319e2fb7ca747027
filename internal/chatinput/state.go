package chatinput

import (
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophchat/internal/uploads"
)

// IsSubmittable reports whether text and entries may be submitted now.
//
// Nothing to send (blank text, no files) is not submittable, and neither is
// anything while an upload is still running. Failed and pending entries do not
// block a submission.
func IsSubmittable(text string, entries []uploads.Entry) bool {
	for _, e := range entries {
		if e.State == uploads.StateUploading {
			return false
		}
	}
	return strings.TrimSpace(text) != "" || len(entries) > 0
}

// IsDirty reports whether the input holds anything at all.
func IsDirty(text string, entries []uploads.Entry) bool {
	return strings.TrimSpace(text) != "" || len(entries) > 0
}

// truncate cuts s to at most n runes; n <= 0 means no limit.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
