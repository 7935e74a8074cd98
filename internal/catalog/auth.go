package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/gidroatlas/atlas-service/internal/adapter/registry"
	"github.com/gidroatlas/atlas-service/internal/session"
)

// SessionStore persists the authenticated session between runs.
type SessionStore interface {
	Load() (session.Session, error)
	Save(session.Session) error
	Clear() error
}

// CurrentSession returns the persisted session, or an empty one without a store.
func (c *Catalog) CurrentSession() (session.Session, error) {
	if c.sessions == nil {
		return session.Session{}, nil
	}
	return c.sessions.Load()
}

// Login authenticates and persists the resulting session. On failure the
// persisted session is left unchanged.
func (c *Catalog) Login(ctx context.Context, creds registry.Credentials) (session.Session, error) {
	sess, err := c.registry.Login(ctx, creds)
	if err != nil {
		c.setMessage(AuthMessage(err))
		return session.Session{}, fmt.Errorf("login: %w", err)
	}
	if c.sessions != nil {
		if err := c.sessions.Save(sess); err != nil {
			return session.Session{}, err
		}
	}
	c.setMessage("")
	c.logger.Info("logged in", "email", sess.Email, "user_type", sess.UserType)
	return sess, nil
}

// Register creates an account. It does not log in.
func (c *Catalog) Register(ctx context.Context, creds registry.Credentials) error {
	if err := c.registry.Register(ctx, creds); err != nil {
		c.setMessage(AuthMessage(err))
		return fmt.Errorf("register: %w", err)
	}
	c.setMessage("")
	return nil
}

// Logout clears the persisted session.
func (c *Catalog) Logout() error {
	if c.sessions == nil {
		return nil
	}
	return c.sessions.Clear()
}

// AuthMessage is the text shown for a failed login or registration: the
// registry's response body when it sent one, otherwise a generic message.
func AuthMessage(err error) string {
	var statusErr *registry.StatusError
	if errors.As(err, &statusErr) && statusErr.Body != "" {
		return statusErr.Body
	}
	return MsgAuthFailed
}
