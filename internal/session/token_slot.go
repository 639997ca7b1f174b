// Package session holds the durable token slot shared by the session store
// and the transport client.
package session

import (
	"context"
	"errors"
	"fmt"

	"EconDash/pkg/cache"
)

// DefaultTokenKey is the fixed name of the persisted token.
const DefaultTokenKey = "token"

// TokenSlot stores the raw token under one fixed key of a cache backend.
type TokenSlot struct {
	backend cache.Service
	key     string
}

// NewTokenSlot binds a slot to backend. An empty key selects DefaultTokenKey.
func NewTokenSlot(backend cache.Service, key string) *TokenSlot {
	if key == "" {
		key = DefaultTokenKey
	}
	return &TokenSlot{backend: backend, key: key}
}

// Load returns the stored token or "" when the slot is empty.
func (s *TokenSlot) Load(ctx context.Context) (string, error) {
	var token string
	if err := s.backend.Get(ctx, s.key, &token); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return "", nil
		}
		return "", fmt.Errorf("load token: %w", err)
	}
	return token, nil
}

// Save persists token with no expiry.
func (s *TokenSlot) Save(ctx context.Context, token string) error {
	if err := s.backend.Set(ctx, s.key, token, 0); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Clear removes the stored token.
func (s *TokenSlot) Clear(ctx context.Context) error {
	if err := s.backend.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// Token implements the transport credential provider by reading the slot on
// every call.
func (s *TokenSlot) Token(ctx context.Context) (string, error) {
	return s.Load(ctx)
}

// Close releases the backend.
func (s *TokenSlot) Close() error {
	return s.backend.Close()
}
