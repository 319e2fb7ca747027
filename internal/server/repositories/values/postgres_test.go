package values

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	upsertQ = `(?s)^INSERT\s+INTO\s+element_values\b.*ON\s+CONFLICT\s*\(session_id,\s*element_id\)\s*DO\s+UPDATE\s+SET\b.*RETURNING\s+updated_at$`
	getQ    = `(?s)^SELECT\s+session_id,\s*element_id,\s*value.*FROM\s+element_values\s+WHERE\s+session_id\s*=\s*\$1\s+AND\s+element_id\s*=\s*\$2$`
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestUpsert(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	raw := json.RawMessage(`{"text":"hi","fileUploaderState":{"uploadedFileInfo":[]}}`)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(upsertQ).
		WithArgs("s1", "chat", []byte(raw), true, "frag").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))

	v := &models.Value{SessionID: "s1", ElementID: "chat", Value: raw, FromUI: true, FragmentID: "frag"}
	require.NoError(t, repo.Upsert(context.Background(), v))
	assert.Equal(t, now, v.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(upsertQ).WillReturnError(sql.ErrConnDone)

	err := repo.Upsert(context.Background(), &models.Value{SessionID: "s1", ElementID: "chat", Value: json.RawMessage(`{}`)})
	require.ErrorIs(t, err, sql.ErrConnDone)
}

func TestGet(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(getQ).
		WithArgs("s1", "chat").
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "element_id", "value", "from_ui", "fragment_id", "updated_at"}).
			AddRow("s1", "chat", []byte(`{"text":"hi"}`), false, "", now))

	v, err := repo.Get(context.Background(), "s1", "chat")
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"hi"}`, string(v.Value))
	assert.False(t, v.FromUI)
	assert.Equal(t, now, v.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(getQ).WithArgs("s1", "missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "s1", "missing")
	require.ErrorIs(t, err, common.ErrorNotFound)
}
