// Package session holds the authenticated session handed to every dashboard view.
package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var ErrNoSession = errors.New("not logged in")

// Session is created once (after login, or loaded from disk by the CLI) and injected into
// the views that need the current user.
type Session struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Session) hasRolePrefix(prefix string) bool {
	for _, role := range s.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (s *Session) IsAdmin() bool   { return s.hasRolePrefix("admin:") }
func (s *Session) IsLead() bool    { return s.hasRolePrefix("lead:") }
func (s *Session) IsStudent() bool { return s.hasRolePrefix("student:") }

// IsManager reports whether the user manages clubs (admins and club leads).
func (s *Session) IsManager() bool { return s.IsAdmin() || s.IsLead() }

// Valid reports whether the session carries a token that has not expired at now.
func (s *Session) Valid(now time.Time) bool {
	if s == nil || s.Token == "" || s.UserID == "" {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}

// Save writes the session to path with owner-only permissions.
func (s *Session) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(err, "creating session dir")
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}
	return errors.Wrap(os.WriteFile(path, data, 0o600), "writing session")
}

// Load reads a session saved with Save. A missing file yields ErrNoSession.
func Load(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSession
		}
		return nil, errors.Wrap(err, "reading session")
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "decoding session")
	}
	return &s, nil
}

// Remove deletes the saved session, if any.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing session")
	}
	return nil
}
