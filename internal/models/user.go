package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthMode records how an account was created. It never changes afterwards.
type AuthMode string

const (
	AuthModeLocal AuthMode = "local"
	AuthModeOAuth AuthMode = "oauth"
)

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash *string // nil for OAuth accounts
	OAuthID      *string // nil for local accounts
	AvatarURL    *string
	AuthMode     AuthMode
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether the account can log in with a password
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// UserSummary is the public-safe view of a user. It never carries the password hash.
type UserSummary struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	AvatarURL *string  `json:"avatarUrl"`
	AuthMode  AuthMode `json:"authMode"`
}

// UserDetail is the public-safe full view returned by profile and CRUD reads.
type UserDetail struct {
	UserSummary
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
		AuthMode:  u.AuthMode,
	}
}

func (u *User) Detail() UserDetail {
	return UserDetail{
		UserSummary: u.Summary(),
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// NewUserID returns a fresh 24-character hex identifier in ObjectID layout
// (timestamp, random, counter).
func NewUserID() string {
	return primitive.NewObjectID().Hex()
}

// ParseUserID validates a 24-character hex id and returns its canonical
// lowercase form.
func ParseUserID(id string) (string, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return "", ErrInvalidID
	}
	return oid.Hex(), nil
}
