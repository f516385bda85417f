package services

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/voicepay/internal/common"
	"github.com/dmitrijs2005/voicepay/internal/server/auth"
	"github.com/dmitrijs2005/voicepay/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenService(t *testing.T) *TokenService {
	t.Helper()
	cfg := &config.Config{
		SecretKey:                    "k",
		SessionTokenValidityDuration: time.Minute,
		AdminTokenValidityDuration:   time.Hour,
	}
	return NewTokenService(cfg)
}

func TestTokenService_Session(t *testing.T) {
	s := newTokenService(t)

	token, err := s.IssueSession("CARD_1")
	require.NoError(t, err)

	id, err := s.SessionUser(token)
	require.NoError(t, err)
	assert.Equal(t, "CARD_1", id)

	claims, err := auth.ParseToken(token, []byte("k"))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestTokenService_NoSessionForNoMatch(t *testing.T) {
	s := newTokenService(t)

	for _, id := range []string{"", common.NoMatchUserID} {
		_, err := s.IssueSession(id)
		assert.ErrorIs(t, err, common.ErrorUnauthorized)
	}
}

func TestTokenService_AdminTokenIsNotASession(t *testing.T) {
	s := newTokenService(t)

	token, err := s.IssueAdmin("")
	require.NoError(t, err)

	_, err = s.SessionUser(token)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	id, err := auth.GetUserIDFromToken(token, auth.RoleAdmin, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, id)
}
