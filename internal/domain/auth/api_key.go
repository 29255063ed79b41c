package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
)

// ErrInvalidKey is returned when an API key is unknown, expired or revoked.
var ErrInvalidKey = errors.New("invalid api key")

// ErrUnknownHashType is returned when a stored hash has an unrecognized format.
var ErrUnknownHashType = errors.New("unknown hash type")

// ReasonInvalidKey is the rejection reason for keys that fail local verification.
const ReasonInvalidKey = "invalid or expired API key"

// APIKeyService verifies bearer tokens against locally configured API keys.
// It implements Verifier for the api_keys auth mode.
type APIKeyService struct {
	store AuthStore
}

// NewAPIKeyService creates a new APIKeyService with the given store.
func NewAPIKeyService(store AuthStore) *APIKeyService {
	return &APIKeyService{store: store}
}

// Verify implements Verifier.
func (s *APIKeyService) Verify(ctx context.Context, authorization string) Verification {
	token, ok := BearerToken(authorization)
	if !ok || token == "" {
		return Reject(ReasonNotBearer)
	}
	identity, err := s.Validate(ctx, token)
	if err != nil {
		return Reject(ReasonInvalidKey)
	}
	return Accept(identity)
}

// Validate checks a raw key and returns the associated identity.
// SHA-256 keys are found by direct lookup; Argon2id keys by iteration.
func (s *APIKeyService) Validate(ctx context.Context, rawKey string) (*Identity, error) {
	apiKey, err := s.store.GetAPIKey(ctx, HashKey(rawKey))
	if err == nil {
		return s.resolve(ctx, apiKey)
	}

	allKeys, err := s.store.ListAPIKeys(ctx)
	if err != nil {
		return nil, ErrInvalidKey
	}
	for _, candidate := range allKeys {
		if DetectHashType(candidate.Key) != "argon2id" {
			continue
		}
		if match, verifyErr := VerifyKey(rawKey, candidate.Key); verifyErr == nil && match {
			return s.resolve(ctx, candidate)
		}
	}
	return nil, ErrInvalidKey
}

func (s *APIKeyService) resolve(ctx context.Context, apiKey *APIKey) (*Identity, error) {
	if apiKey.Revoked || apiKey.IsExpired() {
		return nil, ErrInvalidKey
	}
	identity, err := s.store.GetIdentity(ctx, apiKey.IdentityID)
	if err != nil {
		return nil, fmt.Errorf("resolve identity %q: %w", apiKey.IdentityID, err)
	}
	return identity, nil
}

// HashKey returns the SHA-256 hex hash of the raw key.
func HashKey(rawKey string) string {
	hash := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(hash[:])
}

// argon2idParams follows the OWASP minimum: 46 MiB, 1 iteration, 1 lane.
var argon2idParams = &argon2id.Params{
	Memory:      47 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// HashKeyArgon2id returns an Argon2id hash of the raw key in PHC format.
func HashKeyArgon2id(rawKey string) (string, error) {
	return argon2id.CreateHash(rawKey, argon2idParams)
}

// StoredKey normalises a configured key hash into the form the store indexes:
// bare lowercase hex for SHA-256, the PHC string for Argon2id.
func StoredKey(configured string) (string, error) {
	switch DetectHashType(configured) {
	case "sha256":
		return strings.ToLower(strings.TrimPrefix(configured, "sha256:")), nil
	case "argon2id":
		return configured, nil
	default:
		return "", ErrUnknownHashType
	}
}

// DetectHashType identifies the hash algorithm of a stored hash:
// "argon2id", "sha256" or "unknown".
func DetectHashType(storedHash string) string {
	if strings.HasPrefix(storedHash, "$argon2id$") {
		return "argon2id"
	}
	hexPart := strings.TrimPrefix(storedHash, "sha256:")
	if len(hexPart) == 64 && isHexString(hexPart) {
		return "sha256"
	}
	return "unknown"
}

func isHexString(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

// VerifyKey verifies a raw key against a stored hash in constant time.
func VerifyKey(rawKey, storedHash string) (bool, error) {
	switch DetectHashType(storedHash) {
	case "argon2id":
		return safeArgon2idCompare(rawKey, storedHash)
	case "sha256":
		expected := strings.ToLower(strings.TrimPrefix(storedHash, "sha256:"))
		return subtle.ConstantTimeCompare([]byte(HashKey(rawKey)), []byte(expected)) == 1, nil
	default:
		return false, ErrUnknownHashType
	}
}

// safeArgon2idCompare converts the panic argon2 raises on malformed parameters
// (t=0, p=0) into an error.
func safeArgon2idCompare(rawKey, storedHash string) (match bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			match = false
			err = fmt.Errorf("invalid argon2id hash parameters: %v", r)
		}
	}()
	return argon2id.ComparePasswordAndHash(rawKey, storedHash)
}
