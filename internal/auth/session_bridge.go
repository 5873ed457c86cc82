package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/kadirbarquet/usuarios-api/internal/models"
)

const sessionUserKey = "user_id"

// UserFinder loads users by id for session resolution
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// SessionStore is a sessions.Store that can drop a stored session by id
type SessionStore interface {
	sessions.Store
	Destroy(ctx context.Context, id string) error
}

// SessionBridge links an OAuth login to a server-side session. The session
// holds only the user id; the user is re-read on every Resolve so deletes and
// edits are picked up. API routes never consult it.
type SessionBridge struct {
	store  SessionStore
	name   string
	users  UserFinder
	logger *slog.Logger
}

func NewSessionBridge(store SessionStore, name string, users UserFinder, logger *slog.Logger) *SessionBridge {
	return &SessionBridge{
		store:  store,
		name:   name,
		users:  users,
		logger: logger,
	}
}

// Bind stores user.ID in a session and writes the session cookie. The
// session always gets a new id and the previous one is deleted.
func (b *SessionBridge) Bind(w http.ResponseWriter, r *http.Request, user *models.User) error {
	sess := b.session(r)

	if sess.ID != "" {
		if err := b.store.Destroy(r.Context(), sess.ID); err != nil {
			return fmt.Errorf("failed to rotate session: %w", err)
		}
	}
	sess.ID = ""
	sess.Values = map[interface{}]interface{}{sessionUserKey: user.ID}

	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("failed to bind session: %w", err)
	}
	return nil
}

// Resolve returns the user bound to the request's session, or nil when there
// is no session or the user no longer exists.
func (b *SessionBridge) Resolve(r *http.Request) (*models.User, error) {
	sess := b.session(r)

	userID, _ := sess.Values[sessionUserKey].(string)
	if userID == "" {
		return nil, nil
	}

	user, err := b.users.FindByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrInvalidID) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve session user: %w", err)
	}
	return user, nil
}

// Unbind destroys the server-side session and expires the cookie. Calling it
// without a session is not an error.
func (b *SessionBridge) Unbind(w http.ResponseWriter, r *http.Request) error {
	sess := b.session(r)
	sess.Options.MaxAge = -1

	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

// session returns the request's session. A tampered or stale cookie falls
// back to the fresh session the store hands out alongside the error.
func (b *SessionBridge) session(r *http.Request) *sessions.Session {
	sess, err := b.store.Get(r, b.name)
	if err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			b.logger.Warn("session cookie invalid, using fresh session", slog.String("error", err.Error()))
		} else {
			b.logger.Error("session store error, using fresh session", slog.String("error", err.Error()))
		}
	}
	if sess == nil {
		sess = sessions.NewSession(b.store, b.name)
		sess.IsNew = true
	}
	if sess.Options == nil {
		sess.Options = &sessions.Options{Path: "/"}
	}
	return sess
}
