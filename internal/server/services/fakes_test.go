package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/files"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/values"
	"github.com/stretchr/testify/require"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

type fakeSessionsRepo struct {
	created []*models.Session
	err     error
}

func (f *fakeSessionsRepo) Create(_ context.Context, s *models.Session) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, s)
	return nil
}

type fakeFilesRepo struct {
	mu        sync.Mutex
	files     map[string]*models.File
	createErr error
}

func newFakeFilesRepo(fs ...*models.File) *fakeFilesRepo {
	r := &fakeFilesRepo{files: map[string]*models.File{}}
	for _, f := range fs {
		r.files[f.ID] = f
	}
	return r
}

func (f *fakeFilesRepo) Create(_ context.Context, file *models.File) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	c := *file
	f.files[file.ID] = &c
	return nil
}

func (f *fakeFilesRepo) GetByID(_ context.Context, sessionID, id string) (*models.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[id]
	if !ok || file.SessionID != sessionID {
		return nil, common.ErrorNotFound
	}
	c := *file
	return &c, nil
}

func (f *fakeFilesRepo) SetStatus(_ context.Context, sessionID, id, from, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[id]
	if !ok || file.SessionID != sessionID || file.Status != from {
		return common.ErrorNotFound
	}
	file.Status = to
	return nil
}

type fakeValuesRepo struct {
	stored []*models.Value
}

func (f *fakeValuesRepo) Upsert(_ context.Context, v *models.Value) error {
	f.stored = append(f.stored, v)
	return nil
}

func (f *fakeValuesRepo) Get(_ context.Context, sessionID, elementID string) (*models.Value, error) {
	for i := len(f.stored) - 1; i >= 0; i-- {
		if v := f.stored[i]; v.SessionID == sessionID && v.ElementID == elementID {
			return v, nil
		}
	}
	return nil, common.ErrorNotFound
}

type fakeRepoManager struct {
	s *fakeSessionsRepo
	f *fakeFilesRepo
	v *fakeValuesRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Sessions(dbx.DBTX) sessions.Repository       { return m.s }
func (m *fakeRepoManager) Files(dbx.DBTX) files.Repository             { return m.f }
func (m *fakeRepoManager) Values(dbx.DBTX) values.Repository           { return m.v }

type fakePresigner struct {
	putErr, delErr error
	keys           []string
}

func (p *fakePresigner) PresignPut(_ context.Context, key, _ string, _ int64) (string, error) {
	if p.putErr != nil {
		return "", p.putErr
	}
	p.keys = append(p.keys, key)
	return "https://s3.test/put/" + key, nil
}

func (p *fakePresigner) PresignDelete(_ context.Context, key string) (string, error) {
	if p.delErr != nil {
		return "", p.delErr
	}
	return "https://s3.test/delete/" + key, nil
}
