// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cashcat/cashcat-gateway/internal/domain/auth"
)

// Error types for auth store operations.
var (
	ErrKeyNotFound      = errors.New("api key not found")
	ErrIdentityNotFound = errors.New("identity not found")
)

// KeySeed describes one configured API key.
type KeySeed struct {
	// KeyHash is "sha256:<hex>", bare hex, or an Argon2id PHC string.
	KeyHash string
	// Identity names the caller the key authenticates as.
	Identity string
	// ExpiresAt optionally bounds the key's lifetime.
	ExpiresAt *time.Time
	// Revoked keeps the key on file but rejects it.
	Revoked bool
}

// AuthStore implements auth.AuthStore with in-memory maps.
// Safe for concurrent access.
type AuthStore struct {
	keys       map[string]*auth.APIKey   // stored hash -> APIKey
	identities map[string]*auth.Identity // ID -> Identity
	mu         sync.RWMutex
}

// NewAuthStore creates an empty in-memory auth store.
func NewAuthStore() *AuthStore {
	return &AuthStore{
		keys:       make(map[string]*auth.APIKey),
		identities: make(map[string]*auth.Identity),
	}
}

// NewSeededAuthStore creates a store holding the given keys. An identity is
// created for every distinct seed identity.
func NewSeededAuthStore(seeds []KeySeed) (*AuthStore, error) {
	s := NewAuthStore()
	for i, seed := range seeds {
		stored, err := auth.StoredKey(seed.KeyHash)
		if err != nil {
			return nil, fmt.Errorf("api key %d: %w", i, err)
		}
		s.AddIdentity(&auth.Identity{ID: seed.Identity, Name: seed.Identity})
		s.AddKey(&auth.APIKey{
			Key:        stored,
			IdentityID: seed.Identity,
			ExpiresAt:  seed.ExpiresAt,
			Revoked:    seed.Revoked,
		})
	}
	return s, nil
}

// GetAPIKey retrieves an API key by its hash.
// Returns ErrKeyNotFound if key doesn't exist.
func (s *AuthStore) GetAPIKey(ctx context.Context, keyHash string) (*auth.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[keyHash]
	if !ok {
		return nil, ErrKeyNotFound
	}
	keyCopy := *key
	return &keyCopy, nil
}

// GetIdentity retrieves an identity by ID.
// Returns ErrIdentityNotFound if identity doesn't exist.
func (s *AuthStore) GetIdentity(ctx context.Context, id string) (*auth.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.identities[id]
	if !ok {
		return nil, ErrIdentityNotFound
	}
	identityCopy := *identity
	return &identityCopy, nil
}

// ListAPIKeys returns copies of all stored API keys.
func (s *AuthStore) ListAPIKeys(ctx context.Context) ([]*auth.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*auth.APIKey, 0, len(s.keys))
	for _, key := range s.keys {
		keyCopy := *key
		result = append(result, &keyCopy)
	}
	return result, nil
}

// AddKey stores a copy of key under its Key field.
func (s *AuthStore) AddKey(key *auth.APIKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keyCopy := *key
	s.keys[key.Key] = &keyCopy
}

// AddIdentity stores a copy of identity.
func (s *AuthStore) AddIdentity(identity *auth.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	identityCopy := *identity
	s.identities[identity.ID] = &identityCopy
}

// Size returns the number of stored keys.
func (s *AuthStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// Compile-time interface verification.
var _ auth.AuthStore = (*AuthStore)(nil)
