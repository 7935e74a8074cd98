// Package session holds the authenticated user's credentials and persists
// them between runs under a fixed storage name.
package session

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpertRole is the user_type that unlocks filters, edits and admin views.
const ExpertRole = "expert"

// Session is the login payload returned by the registry.
type Session struct {
	Email    string `json:"email"`
	UserType string `json:"user_type"`
	Access   string `json:"access"`
	Refresh  string `json:"refresh"`
}

// Authenticated reports whether an access token is present.
func (s Session) Authenticated() bool { return s.Access != "" }

// IsExpert reports whether the session carries the expert role.
func (s Session) IsExpert() bool { return s.UserType == ExpertRole }

// BearerToken returns the Authorization header value, or "" without a token.
func (s Session) BearerToken() string {
	if s.Access == "" {
		return ""
	}
	return "Bearer " + s.Access
}

// AccessExpiresAt reads the exp claim of the access token. The signature is
// not verified; the backend remains the authority on validity.
func (s Session) AccessExpiresAt() (time.Time, error) {
	if s.Access == "" {
		return time.Time{}, errors.New("no access token")
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.Access, &claims); err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("access token has no exp claim")
	}
	return claims.ExpiresAt.Time, nil
}

// Expired reports whether the access token's exp claim is at or before now.
// Tokens without a readable exp claim are treated as not expired.
func (s Session) Expired(now time.Time) bool {
	exp, err := s.AccessExpiresAt()
	if err != nil {
		return false
	}
	return !now.Before(exp)
}

// FromAuthorization builds a session from an Authorization header value.
// Anything other than a non-empty bearer token yields an unauthenticated session.
func FromAuthorization(header string) Session {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return Session{}
	}
	return Session{Access: strings.TrimSpace(token)}
}
