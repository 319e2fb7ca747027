package chatinput

import (
	"context"

	"github.com/dmitrijs2005/gophchat/internal/uploads"
)

// Element identifies the input a value belongs to.
type Element struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
}

// UploadedFileInfo references one uploaded file in a submitted value.
type UploadedFileInfo struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	FileID    string `json:"fileId"`
	UploadURL string `json:"uploadUrl"`
	DeleteURL string `json:"deleteUrl"`
}

type FileUploaderState struct {
	UploadedFileInfo []UploadedFileInfo `json:"uploadedFileInfo"`
}

// Value is what a submission hands to the Sink.
type Value struct {
	Text              string            `json:"text"`
	FileUploaderState FileUploaderState `json:"fileUploaderState"`
}

// SetValueOptions carry the submission metadata next to the value.
type SetValueOptions struct {
	// FromUI is false for programmatic submissions.
	FromUI bool
	// FragmentID groups the value when the input lives in a sub-scoped
	// execution context. Empty otherwise.
	FragmentID string
}

// Sink receives finalized values.
type Sink interface {
	SetValue(ctx context.Context, el Element, v Value, opts SetValueOptions) error
}

// Origin tells user-initiated submissions from programmatic ones.
type Origin int

const (
	OriginUser Origin = iota
	OriginProgrammatic
)

// assemble builds the submitted value from the text and the uploaded entries.
// Entries in any other state are left out.
func assemble(text string, entries []uploads.Entry) Value {
	files := make([]UploadedFileInfo, 0, len(entries))
	for _, e := range entries {
		if e.State != uploads.StateUploaded {
			continue
		}
		files = append(files, UploadedFileInfo{
			Name:      e.Name,
			Size:      e.Size,
			FileID:    e.Ref.FileID,
			UploadURL: e.Ref.UploadURL,
			DeleteURL: e.Ref.DeleteURL,
		})
	}

	return Value{Text: text, FileUploaderState: FileUploaderState{UploadedFileInfo: files}}
}
