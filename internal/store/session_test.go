package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saravenpi/baatcheet/internal/models"
)

func openTestStore(t *testing.T) (*SessionStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "session.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestSessionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, path := openTestStore(t)
	s.now = func() time.Time { return time.Unix(1_800_000_000, 0) }

	_, _, err := s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	auth := models.Auth{
		Token:  "tok",
		User:   models.User{ID: 1, Name: "Me", Email: "me@example.com"},
		Server: "http://localhost:3000",
	}
	require.NoError(t, s.Save(ctx, auth))

	// Survives a reopen.
	require.NoError(t, s.Close())
	s, err = Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	got, savedAt, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, auth, got)
	assert.Equal(t, int64(1_800_000_000), savedAt.Unix())
}

func TestSessionStoreSaveReplaces(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	require.NoError(t, s.Save(ctx, models.Auth{Token: "a", User: models.User{ID: 1}}))
	require.NoError(t, s.Save(ctx, models.Auth{Token: "b", User: models.User{ID: 2}}))

	got, _, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", got.Token)
	assert.Equal(t, int64(2), got.User.ID)
}

func TestSessionStoreClear(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Save(ctx, models.Auth{Token: "a", User: models.User{ID: 1}}))
	require.NoError(t, s.Clear(ctx))

	_, _, err := s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionStoreRejectsIncomplete(t *testing.T) {
	s, _ := openTestStore(t)
	assert.Error(t, s.Save(context.Background(), models.Auth{Token: "a"}))
}
