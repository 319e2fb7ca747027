// Package history persists submitted chat values on the client.
package history

import (
	"context"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
)

type Repository interface {
	// Add stores a record and returns its id.
	Add(ctx context.Context, r *models.HistoryRecord) (int64, error)

	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]*models.HistoryRecord, error)

	// Count returns the number of stored records with the given status.
	Count(ctx context.Context, status string) (int, error)
}
