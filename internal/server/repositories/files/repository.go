package files

import (
	"context"

	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, f *models.File) error
	// GetByID returns common.ErrorNotFound for an unknown id or a file owned
	// by another session.
	GetByID(ctx context.Context, sessionID, id string) (*models.File, error)
	// SetStatus moves a file from one status to another and returns
	// common.ErrorNotFound when no such file is in the from status.
	SetStatus(ctx context.Context, sessionID, id, from, to string) error
}
