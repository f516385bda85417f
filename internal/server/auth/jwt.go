// Package auth issues and verifies the HS256 tokens carried in the
// access_token metadata of gRPC calls.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/voicepay/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Token roles.
const (
	// RoleSession is granted to a speaker after a successful voice
	// authentication.
	RoleSession = "session"
	// RoleAdmin may manage enrollments.
	RoleAdmin = "admin"
)

// Claims holds the registered claims plus the authenticated user and role.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func GenerateToken(userID, role string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
			Subject:   userID,
		},
		UserID: userID,
		Role:   role,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// GetUserIDFromToken returns the user id of a valid token of the given role.
func GetUserIDFromToken(tokenString, role string, secretKey []byte) (string, error) {
	claims, err := ParseToken(tokenString, secretKey)
	if err != nil {
		return "", err
	}
	if claims.Role != role {
		return "", fmt.Errorf("%w: role %q, want %q", common.ErrInvalidToken, claims.Role, role)
	}
	return claims.UserID, nil
}
