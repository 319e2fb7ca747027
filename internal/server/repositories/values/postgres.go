// Package values stores the latest submitted value of each chat element.
package values

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

func (r *PostgresRepository) Upsert(ctx context.Context, v *models.Value) error {
	query := `INSERT INTO element_values (session_id, element_id, value, from_ui, fragment_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (session_id, element_id)
		DO UPDATE SET
			value = EXCLUDED.value,
			from_ui = EXCLUDED.from_ui,
			fragment_id = EXCLUDED.fragment_id,
			updated_at = EXCLUDED.updated_at
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query, v.SessionID, v.ElementID, []byte(v.Value), v.FromUI, v.FragmentID).
		Scan(&v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, sessionID, elementID string) (*models.Value, error) {
	query := `SELECT session_id, element_id, value, from_ui, fragment_id, updated_at
		FROM element_values WHERE session_id = $1 AND element_id = $2`

	var (
		v   = &models.Value{}
		raw []byte
	)
	err := r.db.QueryRowContext(ctx, query, sessionID, elementID).
		Scan(&v.SessionID, &v.ElementID, &raw, &v.FromUI, &v.FragmentID, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select value: %w", err)
	}
	v.Value = raw

	return v, nil
}
