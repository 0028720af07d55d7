package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audittrail-backend/internal/models"
)

func TestNewToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := NewToken()
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(token, "sess_"))
		assert.Len(t, token, len("sess_")+2*tokenLength)
		assert.False(t, seen[token], "tokens must not repeat")
		seen[token] = true
	}
}

func TestMemorySessionStoreRoundTrip(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	session := Session{
		UserID:    "u1",
		AccountID: "a1",
		Email:     "owner@alpha.test",
		Role:      models.RoleOwner,
	}
	require.NoError(t, store.Save(ctx, "sess_abc", session, time.Hour))

	got, err := store.Find(ctx, "sess_abc")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, models.RoleOwner, got.Role)
	assert.False(t, got.ExpiresAt.IsZero(), "Save fills in expiry from ttl")
}

func TestMemorySessionStoreUnknownToken(t *testing.T) {
	store := NewMemorySessionStore()

	_, err := store.Find(context.Background(), "sess_missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySessionStoreExpiredLooksUnknown(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	session := Session{UserID: "u1", ExpiresAt: time.Now().Add(-time.Minute)}
	require.NoError(t, store.Save(ctx, "sess_old", session, time.Hour))

	_, err := store.Find(ctx, "sess_old")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySessionStoreDeleteRevokes(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "sess_abc", Session{UserID: "u1"}, time.Hour))
	require.NoError(t, store.Delete(ctx, "sess_abc"))

	_, err := store.Find(ctx, "sess_abc")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Deleting again is fine.
	assert.NoError(t, store.Delete(ctx, "sess_abc"))
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	assert.False(t, Session{ExpiresAt: now.Add(time.Minute)}.Expired(now))
	assert.True(t, Session{ExpiresAt: now.Add(-time.Minute)}.Expired(now))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery", hash)

	assert.True(t, CheckPassword(hash, "correct horse battery"))
	assert.False(t, CheckPassword(hash, "wrong"))
}
