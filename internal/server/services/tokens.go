package services

import (
	"time"

	"github.com/dmitrijs2005/voicepay/internal/common"
	"github.com/dmitrijs2005/voicepay/internal/server/auth"
	"github.com/dmitrijs2005/voicepay/internal/server/config"
)

// TokenService mints the HS256 tokens the transport layer checks: a short
// lived session token for an authenticated speaker and an admin token for
// enrollment management.
type TokenService struct {
	jwtSecret                    []byte
	sessionTokenValidityDuration time.Duration
	adminTokenValidityDuration   time.Duration
}

func NewTokenService(cfg *config.Config) *TokenService {
	return &TokenService{
		jwtSecret:                    []byte(cfg.SecretKey),
		sessionTokenValidityDuration: cfg.SessionTokenValidityDuration,
		adminTokenValidityDuration:   cfg.AdminTokenValidityDuration,
	}
}

// IssueSession returns a session token for a user that just passed voice
// authentication.
func (s *TokenService) IssueSession(userID string) (string, error) {
	if userID == "" || userID == common.NoMatchUserID {
		return "", common.ErrorUnauthorized
	}
	token, err := auth.GenerateToken(userID, auth.RoleSession, s.jwtSecret, s.sessionTokenValidityDuration)
	if err != nil {
		return "", common.ErrorInternal
	}
	return token, nil
}

// IssueAdmin returns an admin token. Only holders of the server secret can
// call it, so it is exposed by the CLI and not over the network.
func (s *TokenService) IssueAdmin(name string) (string, error) {
	if name == "" {
		name = auth.RoleAdmin
	}
	token, err := auth.GenerateToken(name, auth.RoleAdmin, s.jwtSecret, s.adminTokenValidityDuration)
	if err != nil {
		return "", common.ErrorInternal
	}
	return token, nil
}

// SessionUser returns the user id carried by a session token.
func (s *TokenService) SessionUser(token string) (string, error) {
	return auth.GetUserIDFromToken(token, auth.RoleSession, s.jwtSecret)
}
