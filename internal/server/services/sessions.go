// Package services contains the server-side business logic behind the chat
// RPCs: sessions, file upload reservations and submitted values.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/server/auth"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// SessionService opens anonymous chat sessions and verifies their tokens.
type SessionService struct {
	db                   *sql.DB
	repomanager          repomanager.RepositoryManager
	jwtSecret            []byte
	sessionTokenValidity time.Duration
}

func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, secret []byte, validity time.Duration) *SessionService {
	return &SessionService{
		db:                   db,
		repomanager:          m,
		jwtSecret:            secret,
		sessionTokenValidity: validity,
	}
}

// Open creates a session and returns it with a signed token.
func (s *SessionService) Open(ctx context.Context) (*models.Session, string, error) {
	session := &models.Session{ID: uuid.NewString()}

	if err := s.repomanager.Sessions(s.db).Create(ctx, session); err != nil {
		return nil, "", fmt.Errorf("error creating session: %w", err)
	}

	token, err := auth.GenerateToken(session.ID, s.jwtSecret, s.sessionTokenValidity)
	if err != nil {
		return nil, "", fmt.Errorf("error generating token: %w", err)
	}

	return session, token, nil
}

// Verify returns the session id carried by token. Errors match
// common.ErrTokenExpired or common.ErrInvalidToken.
func (s *SessionService) Verify(token string) (string, error) {
	return auth.GetSessionIDFromToken(token, s.jwtSecret)
}
