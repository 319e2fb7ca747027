package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Add(ctx context.Context, rec *models.HistoryRecord) (int64, error) {
	files := rec.Files
	if files == nil {
		files = []string{}
	}
	filesJSON, err := json.Marshal(files)
	if err != nil {
		return 0, fmt.Errorf("encode files: %w", err)
	}

	query := `INSERT INTO history (element_id, text, files, from_ui, fragment_id, status, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query, rec.ElementID, rec.Text, string(filesJSON), rec.FromUI,
		rec.FragmentID, rec.Status, rec.SubmittedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to insert history record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	rec.ID = id

	return id, nil
}

func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]*models.HistoryRecord, error) {
	query := `SELECT id, element_id, text, files, from_ui, fragment_id, status, submitted_at
		FROM history ORDER BY id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("error selecting history: %w", err)
	}
	defer rows.Close()

	var result []*models.HistoryRecord

	for rows.Next() {
		var (
			item        = &models.HistoryRecord{}
			files       string
			submittedAt string
		)
		if err := rows.Scan(&item.ID, &item.ElementID, &item.Text, &files, &item.FromUI,
			&item.FragmentID, &item.Status, &submittedAt); err != nil {
			return nil, err
		}

		if err := json.Unmarshal([]byte(files), &item.Files); err != nil {
			return nil, fmt.Errorf("decode files of record %d: %w", item.ID, err)
		}
		t, err := time.Parse(time.RFC3339Nano, submittedAt)
		if err != nil {
			return nil, fmt.Errorf("decode time of record %d: %w", item.ID, err)
		}
		item.SubmittedAt = t

		result = append(result, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *SQLiteRepository) Count(ctx context.Context, status string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history WHERE status=?`, status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return n, nil
}
