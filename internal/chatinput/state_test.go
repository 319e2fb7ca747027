package chatinput

import (
	"encoding/json"
	"testing"

	"github.com/dmitrijs2005/gophchat/internal/uploads"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(state uploads.State) uploads.Entry {
	return uploads.Entry{ID: state.String(), Name: state.String() + ".txt", State: state}
}

func TestIsSubmittable(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		entries []uploads.Entry
		want    bool
	}{
		{"empty", "", nil, false},
		{"whitespace only", "  \n\t", nil, false},
		{"text", "hello", nil, true},
		{"uploaded file without text", "", []uploads.Entry{entry(uploads.StateUploaded)}, true},
		{"text while uploading", "hi", []uploads.Entry{entry(uploads.StateUploading)}, false},
		{"uploaded and uploading", "", []uploads.Entry{entry(uploads.StateUploaded), entry(uploads.StateUploading)}, false},
		{"failed file", "", []uploads.Entry{entry(uploads.StateFailed)}, true},
		{"pending file", "", []uploads.Entry{entry(uploads.StatePending)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSubmittable(tt.text, tt.entries))
		})
	}
}

func TestIsDirty(t *testing.T) {
	assert.False(t, IsDirty("", nil))
	assert.False(t, IsDirty("   ", nil))
	assert.True(t, IsDirty("x", nil))
	assert.True(t, IsDirty("", []uploads.Entry{entry(uploads.StateUploading)}))
	assert.True(t, IsDirty("", []uploads.Entry{entry(uploads.StateFailed)}))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 0))
	assert.Equal(t, "hel", truncate("hello", 3))
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "привет"[:4], truncate("привет", 2))
}

func TestAssemble_OnlyUploaded(t *testing.T) {
	uploaded := entry(uploads.StateUploaded)
	uploaded.Size = 12
	uploaded.Ref = uploads.Ref{FileID: "f1", UploadURL: "/u/f1", DeleteURL: "/d/f1"}

	v := assemble("hi", []uploads.Entry{entry(uploads.StateFailed), uploaded, entry(uploads.StatePending)})

	require.Len(t, v.FileUploaderState.UploadedFileInfo, 1)
	assert.Equal(t, UploadedFileInfo{
		Name:      "uploaded.txt",
		Size:      12,
		FileID:    "f1",
		UploadURL: "/u/f1",
		DeleteURL: "/d/f1",
	}, v.FileUploaderState.UploadedFileInfo[0])
}

func TestValue_JSONShape(t *testing.T) {
	b, err := json.Marshal(assemble("hello", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"hello","fileUploaderState":{"uploadedFileInfo":[]}}`, string(b))
}
