package models

import "time"

// Delivery states of a history record.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// HistoryRecord is one submitted value as kept in the local database.
type HistoryRecord struct {
	ID          int64
	ElementID   string
	Text        string
	Files       []string
	FromUI      bool
	FragmentID  string
	Status      string
	SubmittedAt time.Time
}
