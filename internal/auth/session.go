package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"audittrail-backend/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

const (
	tokenPrefix = "sess_"
	tokenLength = 32
)

// Session is the actor context bound to an opaque token: who the request acts
// as, inside which account, with what role.
type Session struct {
	UserID    string      `msgpack:"user_id"`
	AccountID string      `msgpack:"account_id"`
	Email     string      `msgpack:"email"`
	Role      models.Role `msgpack:"role"`
	ExpiresAt time.Time   `msgpack:"expires_at"`
}

func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// NewToken returns a fresh opaque session token. The token is random, never
// derived from user data, and only ever stored as a session store key.
func NewToken() (string, error) {
	bytes := make([]byte, tokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return tokenPrefix + hex.EncodeToString(bytes), nil
}

// SessionStore tracks live sessions server-side so logout revokes immediately
// and expiry is not negotiable by the client.
type SessionStore interface {
	Save(ctx context.Context, token string, session Session, ttl time.Duration) error
	// Find returns ErrSessionNotFound for unknown and expired tokens alike.
	Find(ctx context.Context, token string) (Session, error)
	// Delete is idempotent: removing an absent token is not an error.
	Delete(ctx context.Context, token string) error
}

// MemorySessionStore keeps sessions in process memory for tests and
// single-node development.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]Session)}
}

func (s *MemorySessionStore) Save(_ context.Context, token string, session Session, ttl time.Duration) error {
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = time.Now().Add(ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = session
	return nil
}

func (s *MemorySessionStore) Find(_ context.Context, token string) (Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok || session.Expired(time.Now()) {
		return Session{}, ErrSessionNotFound
	}
	return session, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}
