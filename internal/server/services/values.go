package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
)

// ErrInvalidValue is returned for a value that is not a chat input value or
// references files the session cannot use.
var ErrInvalidValue = errors.New("invalid value")

// submittedValue is the part of a chat input value the server checks.
type submittedValue struct {
	Text              *string            `json:"text"`
	FileUploaderState *fileUploaderState `json:"fileUploaderState"`
}

type fileUploaderState struct {
	UploadedFileInfo *[]struct {
		FileID string `json:"fileId"`
	} `json:"uploadedFileInfo"`
}

// ValueService stores the submitted value of each chat element.
type ValueService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewValueService(db *sql.DB, m repomanager.RepositoryManager) *ValueService {
	return &ValueService{db: db, repomanager: m}
}

// Set validates v and stores it as the latest value of its element. Every
// referenced file must be a completed upload of the same session.
func (s *ValueService) Set(ctx context.Context, v *models.Value) error {
	if v.ElementID == "" {
		return fmt.Errorf("%w: empty element id", ErrInvalidValue)
	}

	var parsed submittedValue
	if err := json.Unmarshal(v.Value, &parsed); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	if parsed.Text == nil {
		return fmt.Errorf("%w: missing text", ErrInvalidValue)
	}
	if parsed.FileUploaderState == nil || parsed.FileUploaderState.UploadedFileInfo == nil {
		return fmt.Errorf("%w: missing uploaded file list", ErrInvalidValue)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		files := s.repomanager.Files(tx)
		for _, info := range *parsed.FileUploaderState.UploadedFileInfo {
			f, err := files.GetByID(ctx, v.SessionID, info.FileID)
			if err != nil {
				if errors.Is(err, common.ErrorNotFound) {
					return fmt.Errorf("%w: unknown file %s", ErrInvalidValue, info.FileID)
				}
				return err
			}
			if f.Status != models.FileStatusCompleted {
				return fmt.Errorf("%w: file %s is %s", ErrInvalidValue, info.FileID, f.Status)
			}
		}

		return s.repomanager.Values(tx).Upsert(ctx, v)
	})
}
