package auth

import (
	"context"
)

// AuthStore provides credential lookup for local API key verification.
type AuthStore interface {
	// GetAPIKey retrieves an API key by its SHA-256 hex hash.
	GetAPIKey(ctx context.Context, keyHash string) (*APIKey, error)

	// GetIdentity retrieves an identity by ID.
	GetIdentity(ctx context.Context, id string) (*Identity, error)

	// ListAPIKeys returns all stored API keys for iteration-based verification.
	ListAPIKeys(ctx context.Context) ([]*APIKey, error)
}
