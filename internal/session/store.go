// Package session maps opaque bearer tokens to user ids.
//
// The in-memory store lives only as long as the process: a restart
// invalidates every session.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/denzelpenzel/battery-marketplace/internal/crypto"
)

// ErrNotFound is returned by Resolve for unknown, revoked or expired tokens.
var ErrNotFound = errors.New("session not found")

// Store is the session registry consulted by the auth middleware.
type Store interface {
	Create(ctx context.Context, userID int64) (string, error)
	Resolve(ctx context.Context, token string) (int64, error)
	Revoke(ctx context.Context, token string) error
}

type entry struct {
	userID    int64
	expiresAt time.Time
}

// MemoryStore is a mutex guarded in-process Store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]entry
	ttl      time.Duration
	now      func() time.Time
	newToken func() (string, error)
}

// NewMemoryStore creates an empty store. A ttl of zero disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]entry),
		ttl:      ttl,
		now:      time.Now,
		newToken: crypto.NewSessionToken,
	}
}

// Create issues a fresh token for userID.
func (s *MemoryStore) Create(_ context.Context, userID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		token, err := s.newToken()
		if err != nil {
			return "", fmt.Errorf("failed to generate session token: %w", err)
		}
		if _, taken := s.sessions[token]; taken {
			continue
		}

		e := entry{userID: userID}
		if s.ttl > 0 {
			e.expiresAt = s.now().Add(s.ttl)
		}
		s.sessions[token] = e
		return token, nil
	}
}

// Resolve returns the user id bound to token.
func (s *MemoryStore) Resolve(_ context.Context, token string) (int64, error) {
	s.mu.RLock()
	e, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return 0, ErrNotFound
	}

	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		s.mu.Lock()
		if cur, still := s.sessions[token]; still && cur == e {
			delete(s.sessions, token)
		}
		s.mu.Unlock()
		return 0, ErrNotFound
	}

	return e.userID, nil
}

// Revoke removes token. Unknown tokens are ignored.
func (s *MemoryStore) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	return nil
}

// Len reports the number of live entries, expired ones included until they
// are next resolved.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
