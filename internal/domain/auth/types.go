// Package auth contains the bearer credential gate that runs in front of every
// tool call, plus local API key verification.
package auth

import (
	"time"
)

// Identity is the principal a credential resolves to.
type Identity struct {
	// ID is the unique identifier for this identity.
	ID string
	// Name is the display name for this identity.
	Name string
}

// APIKey is a locally configured key.
type APIKey struct {
	// Key is the stored hash (SHA-256 hex or Argon2id PHC format).
	Key string
	// IdentityID maps this key to an Identity.
	IdentityID string
	// ExpiresAt is when the key expires (nil = never expires).
	ExpiresAt *time.Time
	// Revoked indicates if the key has been revoked.
	Revoked bool
}

// IsExpired returns true if the API key has expired.
// A key with nil ExpiresAt never expires.
func (k *APIKey) IsExpired() bool {
	if k.ExpiresAt == nil {
		return false
	}
	return time.Now().UTC().After(*k.ExpiresAt)
}

// Verification is the outcome of checking a credential.
type Verification struct {
	// Valid is true when the credential was accepted.
	Valid bool
	// Reason explains a rejection. Empty when Valid.
	Reason string
	// Identity is set when the verifier can name the caller.
	Identity *Identity
}

// Accept returns a successful verification.
func Accept(identity *Identity) Verification {
	return Verification{Valid: true, Identity: identity}
}

// Reject returns a failed verification with reason.
func Reject(reason string) Verification {
	return Verification{Reason: reason}
}
