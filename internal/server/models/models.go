package models

import (
	"encoding/json"
	"time"
)

// Upload states of a File.
const (
	FileStatusPending   = "pending"
	FileStatusCompleted = "completed"
	FileStatusDeleted   = "deleted"
)

type Session struct {
	ID        string
	CreatedAt time.Time
}

// File is an uploaded (or reserved) object owned by one session.
type File struct {
	ID         string
	SessionID  string
	Name       string
	Size       int64
	MediaType  string
	StorageKey string
	Status     string
	CreatedAt  time.Time
}

// Value is the latest submitted value of one element in a session.
type Value struct {
	SessionID  string
	ElementID  string
	Value      json.RawMessage
	FromUI     bool
	FragmentID string
	UpdatedAt  time.Time
}
