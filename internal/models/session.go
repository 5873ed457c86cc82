package models

import "time"

// SessionRecord is the server-side half of a browser session. Data holds the
// encoded session values; the browser only ever sees the signed ID.
type SessionRecord struct {
	ID        string
	Data      string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OAuthState is a single-use anti-forgery value issued when a Google login starts.
type OAuthState struct {
	State     string
	ExpiresAt time.Time
	CreatedAt time.Time
}
