package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophchat/internal/server/storage"
	"github.com/google/uuid"
)

// UploadTarget tells a client where to PUT a file and how to remove it later.
type UploadTarget struct {
	FileID    string
	UploadURL string
	DeleteURL string
}

// FileService reserves upload slots in object storage and tracks their
// lifecycle: pending, completed, deleted.
type FileService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	presigner     storage.Presigner
	maxUploadSize int64
	now           func() time.Time
}

func NewFileService(db *sql.DB, m repomanager.RepositoryManager, p storage.Presigner, maxUploadSize int64) *FileService {
	return &FileService{
		db:            db,
		repomanager:   m,
		presigner:     p,
		maxUploadSize: maxUploadSize,
		now:           time.Now,
	}
}

// validFileName accepts plain names and slash separated relative paths.
func validFileName(name string) bool {
	if name == "" || strings.ContainsRune(name, 0) || strings.HasPrefix(name, "/") {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return path.Clean(name) == name
}

// RequestUpload checks the file against the limits and reserves a pending
// record with presigned PUT and DELETE URLs.
func (s *FileService) RequestUpload(ctx context.Context, sessionID, name string, size int64, mediaType string) (*UploadTarget, error) {
	if !validFileName(name) {
		return nil, fmt.Errorf("%w: %q", common.ErrInvalidFileName, name)
	}
	if size < 0 || (s.maxUploadSize > 0 && size > s.maxUploadSize) {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", common.ErrFileTooLarge, size, s.maxUploadSize)
	}

	key := storage.NewStorageKey(s.now())

	putURL, err := s.presigner.PresignPut(ctx, key, mediaType, size)
	if err != nil {
		return nil, fmt.Errorf("presign put: %w", err)
	}
	deleteURL, err := s.presigner.PresignDelete(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("presign delete: %w", err)
	}

	f := &models.File{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Name:       name,
		Size:       size,
		MediaType:  mediaType,
		StorageKey: key,
		Status:     models.FileStatusPending,
	}
	if err := s.repomanager.Files(s.db).Create(ctx, f); err != nil {
		return nil, fmt.Errorf("error creating file: %w", err)
	}

	return &UploadTarget{FileID: f.ID, UploadURL: putURL, DeleteURL: deleteURL}, nil
}

// Confirm marks a pending file as uploaded. A file in another state yields
// common.ErrFileNotPending, an unknown one common.ErrorNotFound.
func (s *FileService) Confirm(ctx context.Context, sessionID, fileID string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Files(tx)

		err := repo.SetStatus(ctx, sessionID, fileID, models.FileStatusPending, models.FileStatusCompleted)
		if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		f, err := repo.GetByID(ctx, sessionID, fileID)
		if err != nil {
			return err
		}
		if f.Status == models.FileStatusCompleted {
			return nil
		}
		return fmt.Errorf("%w: %s is %s", common.ErrFileNotPending, fileID, f.Status)
	})
}

// Delete marks a file deleted. Deleting twice is not an error.
func (s *FileService) Delete(ctx context.Context, sessionID, fileID string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Files(tx)

		f, err := repo.GetByID(ctx, sessionID, fileID)
		if err != nil {
			return err
		}
		if f.Status == models.FileStatusDeleted {
			return nil
		}
		return repo.SetStatus(ctx, sessionID, fileID, f.Status, models.FileStatusDeleted)
	})
}
