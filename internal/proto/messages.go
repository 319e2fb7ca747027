// Package proto describes the chat service wire contract. Messages travel as
// google.protobuf.Struct values; the typed Go structs below are converted with
// ToStruct and FromStruct on both ends.
package proto

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

type OpenSessionResponse struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
}

type RequestUploadRequest struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	MediaType string `json:"media_type"`
}

type RequestUploadResponse struct {
	FileID    string `json:"file_id"`
	UploadURL string `json:"upload_url"`
	DeleteURL string `json:"delete_url"`
}

type SetValueRequest struct {
	ElementID  string          `json:"element_id"`
	Value      json.RawMessage `json:"value"`
	FromUI     bool            `json:"from_ui"`
	FragmentID string          `json:"fragment_id,omitempty"`
}

// ToStruct converts a message to its wire form through its JSON encoding.
func ToStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}

	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}

	return structpb.NewStruct(m)
}

// FromStruct fills v from the wire form.
func FromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		return fmt.Errorf("decode message: empty payload")
	}

	b, err := json.Marshal(s.AsMap())
	if err != nil {
		return fmt.Errorf("decode message: %w", err)
	}

	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}

	return nil
}
