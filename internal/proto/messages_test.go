package proto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructRoundTrip(t *testing.T) {
	in := SetValueRequest{
		ElementID:  "chat",
		Value:      json.RawMessage(`{"text":"hi","fileUploaderState":{"uploadedFileInfo":[]}}`),
		FromUI:     true,
		FragmentID: "frag",
	}

	s, err := ToStruct(in)
	require.NoError(t, err)
	assert.Equal(t, "chat", s.Fields["element_id"].GetStringValue())
	assert.True(t, s.Fields["from_ui"].GetBoolValue())

	var out SetValueRequest
	require.NoError(t, FromStruct(s, &out))
	assert.Equal(t, in.ElementID, out.ElementID)
	assert.JSONEq(t, string(in.Value), string(out.Value))
	assert.Equal(t, in.FromUI, out.FromUI)
	assert.Equal(t, in.FragmentID, out.FragmentID)
}

func TestFromStruct_Size(t *testing.T) {
	s, err := ToStruct(RequestUploadRequest{Name: "a.txt", Size: 1 << 20, MediaType: "text/plain"})
	require.NoError(t, err)

	var out RequestUploadRequest
	require.NoError(t, FromStruct(s, &out))
	assert.Equal(t, int64(1<<20), out.Size)
}

func TestFromStruct_Nil(t *testing.T) {
	var out OpenSessionResponse
	require.Error(t, FromStruct(nil, &out))
}
