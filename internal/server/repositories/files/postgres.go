// Package files stores the records of uploaded files.
package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, f *models.File) error {
	query := `INSERT INTO files (id, session_id, name, size, media_type, storage_key, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query, f.ID, f.SessionID, f.Name, f.Size, f.MediaType, f.StorageKey, f.Status).
		Scan(&f.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, sessionID, id string) (*models.File, error) {
	query := `SELECT id, session_id, name, size, media_type, storage_key, status, created_at
		FROM files WHERE id = $1 AND session_id = $2`

	f := &models.File{}
	err := r.db.QueryRowContext(ctx, query, id, sessionID).
		Scan(&f.ID, &f.SessionID, &f.Name, &f.Size, &f.MediaType, &f.StorageKey, &f.Status, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select file: %w", err)
	}

	return f, nil
}

func (r *PostgresRepository) SetStatus(ctx context.Context, sessionID, id, from, to string) error {
	query := `UPDATE files SET status = $1 WHERE id = $2 AND session_id = $3 AND status = $4`

	result, err := r.db.ExecContext(ctx, query, to, id, sessionID, from)
	if err != nil {
		return fmt.Errorf("failed to update file: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
