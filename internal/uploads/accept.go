package uploads

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidAcceptMode is returned for accept modes outside the closed set.
var ErrInvalidAcceptMode = errors.New("the accept_file parameter must be a boolean or 'multiple' or 'directory'")

// AcceptMode controls how many files an input takes and how they are named.
type AcceptMode int

const (
	AcceptNone AcceptMode = iota
	AcceptSingle
	AcceptMultiple
	AcceptDirectory
)

// ParseAcceptMode maps a configuration value onto an AcceptMode. Booleans are
// accepted for compatibility: "false" means no files, "true" a single file.
func ParseAcceptMode(s string) (AcceptMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "false":
		return AcceptNone, nil
	case "true", "single":
		return AcceptSingle, nil
	case "multiple":
		return AcceptMultiple, nil
	case "directory":
		return AcceptDirectory, nil
	default:
		return AcceptNone, fmt.Errorf("%w: %q", ErrInvalidAcceptMode, s)
	}
}

// Validate fails for values that are not one of the declared constants. Call
// it once at startup so an out-of-range mode never reaches the queue.
func (m AcceptMode) Validate() error {
	switch m {
	case AcceptNone, AcceptSingle, AcceptMultiple, AcceptDirectory:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrInvalidAcceptMode, int(m))
	}
}

func (m AcceptMode) String() string {
	switch m {
	case AcceptNone:
		return "none"
	case AcceptSingle:
		return "single"
	case AcceptMultiple:
		return "multiple"
	case AcceptDirectory:
		return "directory"
	default:
		return fmt.Sprintf("AcceptMode(%d)", int(m))
	}
}

// AcceptsFiles reports whether the mode takes any files at all.
func (m AcceptMode) AcceptsFiles() bool {
	switch m {
	case AcceptNone:
		return false
	case AcceptSingle, AcceptMultiple, AcceptDirectory:
		return true
	default:
		panic(fmt.Sprintf("uploads: unhandled accept mode %d", int(m)))
	}
}
