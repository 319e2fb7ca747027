package uploads

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
)

// State is the upload lifecycle of an Entry.
type State int

const (
	StatePending State = iota
	StateUploading
	StateUploaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateUploading:
		return "uploading"
	case StateUploaded:
		return "uploaded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Ref is the server-assigned reference of an uploaded file.
type Ref struct {
	FileID    string `json:"file_id"`
	UploadURL string `json:"upload_url"`
	DeleteURL string `json:"delete_url"`
}

// Candidate is a file the user selected but which has not been validated yet.
type Candidate struct {
	// Name is the base filename.
	Name string
	// RelativePath is the path below the selected root directory, segments
	// joined by "/". Empty unless the file came from a directory selection.
	RelativePath string
	Size         int64
	MediaType    string

	// Open returns the file contents. The transport closes the reader.
	Open func() (io.ReadCloser, error)
}

// DisplayName is the name shown for the candidate under mode m. Directory
// selections keep the full relative path so equal base names in different
// subdirectories stay distinct.
func (c Candidate) DisplayName(m AcceptMode) string {
	switch m {
	case AcceptDirectory:
		if rel := strings.Trim(strings.ReplaceAll(c.RelativePath, "\\", "/"), "/"); rel != "" {
			return path.Clean(rel)
		}
		return c.Name
	case AcceptNone, AcceptSingle, AcceptMultiple:
		return c.Name
	default:
		panic(fmt.Sprintf("uploads: unhandled accept mode %d", int(m)))
	}
}

// UploadName is the name the file is stored under: the relative path for a
// directory selection, the base name otherwise.
func (c Candidate) UploadName() string {
	if c.RelativePath != "" {
		return c.RelativePath
	}
	return c.Name
}

// Entry is one accepted file tracked by a Queue. Values returned by the queue
// are copies; mutate the queue through its methods only.
type Entry struct {
	ID        string
	Name      string
	Size      int64
	MediaType string
	State     State
	Ref       Ref
	Err       error

	candidate Candidate
}

// Candidate returns the selection the entry was created from.
func (e Entry) Candidate() Candidate {
	return e.candidate
}

// Transport moves file contents to the server and back out of it.
type Transport interface {
	UploadFile(ctx context.Context, c Candidate) (Ref, error)
	DeleteFile(ctx context.Context, ref Ref) error
}

// Completion is posted by an upload goroutine when the transport returns.
type Completion struct {
	EntryID string
	Ref     Ref
	Err     error

	attempt int
}

// Rejection describes a candidate that never entered the queue.
type Rejection struct {
	Name   string
	Reason string
	Err    error
}
