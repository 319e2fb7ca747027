package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionService_OpenAndVerify(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := &fakeRepoManager{s: &fakeSessionsRepo{}}
	svc := NewSessionService(db, rm, []byte("k"), time.Hour)

	session, token, err := svc.Open(context.Background())
	require.NoError(t, err)
	require.Len(t, rm.s.created, 1)
	assert.Equal(t, session.ID, rm.s.created[0].ID)
	assert.NotEmpty(t, token)

	id, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, session.ID, id)
}

func TestSessionService_OpenRepoError(t *testing.T) {
	db, _ := newSQLMockDB(t)
	boom := errors.New("boom")
	svc := NewSessionService(db, &fakeRepoManager{s: &fakeSessionsRepo{err: boom}}, []byte("k"), time.Hour)

	_, _, err := svc.Open(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestSessionService_VerifyRejectsForeignAndExpired(t *testing.T) {
	db, _ := newSQLMockDB(t)
	svc := NewSessionService(db, &fakeRepoManager{s: &fakeSessionsRepo{}}, []byte("k"), time.Hour)

	foreign, err := auth.GenerateToken("s1", []byte("other"), time.Hour)
	require.NoError(t, err)
	_, err = svc.Verify(foreign)
	require.ErrorIs(t, err, common.ErrInvalidToken)

	expired, err := auth.GenerateToken("s1", []byte("k"), -time.Minute)
	require.NoError(t, err)
	_, err = svc.Verify(expired)
	require.ErrorIs(t, err, common.ErrTokenExpired)
}
