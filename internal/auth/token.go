package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kadirbarquet/usuarios-api/internal/models"
)

// TokenLifetime is fixed: every bearer token expires seven days after issue.
const TokenLifetime = 7 * 24 * time.Hour

// TokenManager issues and verifies HS256 bearer tokens. There is no refresh
// flow and no server-side revocation.
type TokenManager struct {
	secret []byte
	now    func() time.Time
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Issue creates a signed token for the user with a unique jti
func (tm *TokenManager) Issue(userID, email string) (string, error) {
	now := tm.now()

	claims := &models.TokenClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenLifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// Verify checks signature and expiry. Failures are reported as exactly one of
// models.ErrTokenExpired, models.ErrTokenInvalidSignature or
// models.ErrTokenMalformed.
func (tm *TokenManager) Verify(tokenString string) (*models.TokenClaims, error) {
	if tokenString == "" {
		return nil, models.ErrTokenMalformed
	}

	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.now),
		jwt.WithExpirationRequired(),
	)

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, models.ErrTokenInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, models.ErrTokenExpired
	default:
		return nil, fmt.Errorf("%w: %v", models.ErrTokenMalformed, err)
	}

	if !token.Valid || claims.UserID == "" {
		return nil, models.ErrTokenMalformed
	}

	return claims, nil
}
