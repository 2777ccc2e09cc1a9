// Package keybackend resolves presigned-URL secrets for the docvault server.
package keybackend

import (
	"fmt"

	"github.com/sagarc03/docvault"
)

// MapSecretStore resolves secrets from an in-memory map. It is read-only after
// construction and safe for concurrent use.
type MapSecretStore struct {
	keys map[string]string
}

// NewMapSecretStore creates a store over the given access key to secret key mapping.
func NewMapSecretStore(keys map[string]string) *MapSecretStore {
	return &MapSecretStore{keys: keys}
}

// Lookup returns the secret for accessKey. Unknown keys fail with an error
// matching both ErrKeyNotFound and docvault.ErrUnauthorized.
func (s *MapSecretStore) Lookup(accessKey string) (string, error) {
	secretKey, found := s.keys[accessKey]
	if !found || accessKey == "" {
		return "", fmt.Errorf("lookup %q: %w: %w", accessKey, ErrKeyNotFound, docvault.ErrUnauthorized)
	}
	return secretKey, nil
}

// Len reports how many keys the store holds.
func (s *MapSecretStore) Len() int {
	return len(s.keys)
}
