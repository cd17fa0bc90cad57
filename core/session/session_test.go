package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRoles(t *testing.T) {
	s := &Session{Roles: []string{"lead:", "student:"}}
	assert.True(t, s.IsLead())
	assert.True(t, s.IsStudent())
	assert.False(t, s.IsAdmin())
	assert.True(t, s.IsManager())

	s = &Session{Roles: []string{"admin:owner"}}
	assert.True(t, s.IsAdmin())
	assert.True(t, s.IsManager())
}

func TestSessionValid(t *testing.T) {
	now := time.Now()
	var nilSession *Session
	assert.False(t, nilSession.Valid(now))
	assert.False(t, (&Session{UserID: "u"}).Valid(now))
	assert.True(t, (&Session{UserID: "u", Token: "t"}).Valid(now))
	assert.True(t, (&Session{UserID: "u", Token: "t", ExpiresAt: now.Add(time.Hour)}).Valid(now))
	assert.False(t, (&Session{UserID: "u", Token: "t", ExpiresAt: now.Add(-time.Hour)}).Valid(now))
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	_, err := Load(path)
	assert.Equal(t, ErrNoSession, err)

	want := &Session{
		UserID:    "1",
		Username:  "ada",
		Name:      "Ada",
		Roles:     []string{"student:"},
		Token:     "tok",
		ExpiresAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, want.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, Remove(path))
	require.NoError(t, Remove(path))
	_, err = Load(path)
	assert.Equal(t, ErrNoSession, err)
}
