package secrets

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	kerrors "github.com/arcanehq/arcane/internal/errors"
)

// KeySize is the length of a repository key: AES-256.
const KeySize = 32

// RepoKey is the per-repository symmetric key. The zero value is unusable.
// Call Destroy once the key is no longer needed.
type RepoKey struct {
	b []byte
}

// NewRepoKey copies b into a new RepoKey. b must be exactly KeySize bytes.
func NewRepoKey(b []byte) (*RepoKey, error) {
	if len(b) != KeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", kerrors.ErrInvalidKeyLength, KeySize, len(b))
	}
	k := &RepoKey{b: make([]byte, KeySize)}
	copy(k.b, b)
	return k, nil
}

// GenerateRepoKey creates a random key from crypto/rand.
func GenerateRepoKey() (*RepoKey, error) {
	k := &RepoKey{b: make([]byte, KeySize)}
	if _, err := rand.Read(k.b); err != nil {
		return nil, fmt.Errorf("failed to generate repository key: %w", err)
	}
	return k, nil
}

// Bytes returns the key material. The slice aliases the key and is zeroed
// by Destroy.
func (k *RepoKey) Bytes() []byte {
	return k.b
}

// Equal reports whether both keys hold the same bytes, in constant time.
func (k *RepoKey) Equal(other *RepoKey) bool {
	if k == nil || other == nil {
		return k == other
	}
	return subtle.ConstantTimeCompare(k.b, other.b) == 1
}

// Destroy zeroes the key. It is safe to call more than once and on nil.
func (k *RepoKey) Destroy() {
	if k == nil {
		return
	}
	Zero(k.b)
	k.b = nil
}

// Zero overwrites b with zeros.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
