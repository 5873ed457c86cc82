package auth

import (
	"context"
	"encoding/base32"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/kadirbarquet/usuarios-api/internal/models"
)

// SessionRepository persists session rows
type SessionRepository interface {
	Load(ctx context.Context, id string) (*models.SessionRecord, error)
	Save(ctx context.Context, s *models.SessionRecord) error
	Delete(ctx context.Context, id string) error
}

// PGStore is a gorilla/sessions Store that keeps session values in Postgres.
// The cookie carries only the signed session id.
type PGStore struct {
	Codecs  []securecookie.Codec
	Options *sessions.Options
	repo    SessionRepository
	timeout time.Duration
}

// NewPGStore creates a store. keyPairs are passed to securecookie.CodecsFromPairs:
// a hash key, optionally followed by an encryption key, repeated for rotation.
func NewPGStore(repo SessionRepository, opts *sessions.Options, keyPairs ...[]byte) *PGStore {
	codecs := securecookie.CodecsFromPairs(keyPairs...)
	for _, c := range codecs {
		if sc, ok := c.(*securecookie.SecureCookie); ok {
			sc.MaxAge(opts.MaxAge)
		}
	}

	return &PGStore{
		Codecs:  codecs,
		Options: opts,
		repo:    repo,
		timeout: 5 * time.Second,
	}
}

// Get returns the session for name, cached per request by the sessions registry.
func (s *PGStore) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New returns a session for name. A missing, expired or unknown session
// yields a fresh one; a cookie that fails to decode is returned as an error
// alongside a fresh session.
func (s *PGStore) New(r *http.Request, name string) (*sessions.Session, error) {
	session := sessions.NewSession(s, name)
	opts := *s.Options
	session.Options = &opts
	session.IsNew = true

	c, errCookie := r.Cookie(name)
	if errCookie != nil {
		return session, nil
	}

	if err := securecookie.DecodeMulti(name, c.Value, &session.ID, s.Codecs...); err != nil {
		session.ID = ""
		return session, err
	}

	err := s.load(r.Context(), session)
	switch {
	case err == nil:
		session.IsNew = false
	case errors.Is(err, models.ErrNotFound):
		session.ID = ""
		err = nil
	}
	return session, err
}

// Save persists the session and writes the id cookie. A non-positive MaxAge
// deletes the row and expires the cookie.
func (s *PGStore) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	if session.Options.MaxAge <= 0 {
		if session.ID != "" {
			if err := s.repo.Delete(ctx, session.ID); err != nil {
				return fmt.Errorf("failed to delete session: %w", err)
			}
		}
		http.SetCookie(w, sessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		session.ID = strings.TrimRight(
			base32.StdEncoding.EncodeToString(securecookie.GenerateRandomKey(32)), "=")
	}

	data, err := securecookie.EncodeMulti(session.Name(), session.Values, s.Codecs...)
	if err != nil {
		return fmt.Errorf("failed to encode session values: %w", err)
	}

	record := &models.SessionRecord{
		ID:        session.ID,
		Data:      data,
		ExpiresAt: time.Now().Add(time.Duration(session.Options.MaxAge) * time.Second),
	}
	if err := s.repo.Save(ctx, record); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.Codecs...)
	if err != nil {
		return fmt.Errorf("failed to encode session cookie: %w", err)
	}
	http.SetCookie(w, sessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

// Destroy deletes the stored session with id. The cookie is left alone.
func (s *PGStore) Destroy(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *PGStore) load(ctx context.Context, session *sessions.Session) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	record, err := s.repo.Load(ctx, session.ID)
	if err != nil {
		return err
	}

	if err := securecookie.DecodeMulti(session.Name(), record.Data, &session.Values, s.Codecs...); err != nil {
		return fmt.Errorf("failed to decode session values: %w", err)
	}
	return nil
}
