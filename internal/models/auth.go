package models

import (
	"github.com/golang-jwt/jwt/v5"
)

type TokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// OAuthProfile is the identity returned by the provider after a code exchange.
type OAuthProfile struct {
	ID          string
	DisplayName string
	Email       string
	AvatarURL   string
}
