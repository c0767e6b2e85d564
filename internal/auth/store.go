package auth

import (
	"context"
	"sync"
	"time"

	"gotranslator/internal/core"
)

// TokenStore holds access tokens between calls.
// Implementations must be safe for concurrent use.
type TokenStore interface {
	// Get returns the token under key. found is false when absent or expired.
	Get(ctx context.Context, key string) (token core.AccessToken, found bool, err error)

	// Set stores token under key until its expiry.
	Set(ctx context.Context, key string, token core.AccessToken) error

	// Delete removes the token under key.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}

// MemoryStore implements TokenStore with an in-process map.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]core.AccessToken
	now    func() time.Time
}

// NewMemoryStore creates an empty in-process token store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens: make(map[string]core.AccessToken),
		now:    time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (core.AccessToken, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.tokens[key]
	if !ok || !s.now().Before(token.ExpiresAt) {
		return core.AccessToken{}, false, nil
	}
	return token, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, token core.AccessToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[key] = token
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, key)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
