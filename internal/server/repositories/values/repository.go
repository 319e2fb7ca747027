package values

import (
	"context"

	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

type Repository interface {
	// Upsert stores v as the latest value of its element.
	Upsert(ctx context.Context, v *models.Value) error
	Get(ctx context.Context, sessionID, elementID string) (*models.Value, error)
}
