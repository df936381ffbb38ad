package secrets

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	kerrors "github.com/arcanehq/arcane/internal/errors"
)

// NonceSize is the AES-GCM nonce length prepended to every ciphertext.
const NonceSize = 12

// Header marks content sealed by arcane in version control.
var Header = []byte("ARCANE\x00\x01")

func newAEAD(key *RepoKey) (cipher.AEAD, error) {
	if key == nil || len(key.b) != KeySize {
		return nil, kerrors.ErrInvalidKeyLength
	}
	block, err := aes.NewCipher(key.b)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// Encrypt returns nonce || AES-256-GCM(plaintext). A fresh random nonce is
// drawn for every call.
func Encrypt(key *RepoKey, plaintext []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, NonceSize, NonceSize+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(out); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return aead.Seal(out, out[:NonceSize], plaintext, nil), nil
}

// Decrypt reverses Encrypt. A blob shorter than the nonce is
// ErrInvalidFormat; any authentication failure is ErrDecryptionFailure.
func Decrypt(key *RepoKey, blob []byte) ([]byte, error) {
	if len(blob) < NonceSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the nonce", kerrors.ErrInvalidFormat, len(blob))
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, blob[:NonceSize], blob[NonceSize:], nil)
	if err != nil {
		return nil, kerrors.ErrDecryptionFailure
	}
	return plaintext, nil
}

// Seal encrypts plaintext and prefixes the result with Header.
func Seal(key *RepoKey, plaintext []byte) ([]byte, error) {
	ciphertext, err := Encrypt(key, plaintext)
	if err != nil {
		return nil, err
	}
	return append(append(make([]byte, 0, len(Header)+len(ciphertext)), Header...), ciphertext...), nil
}

// Open checks for Header and decrypts the remainder.
func Open(key *RepoKey, blob []byte) ([]byte, error) {
	if !IsSealed(blob) {
		return nil, fmt.Errorf("%w: missing arcane header", kerrors.ErrInvalidFormat)
	}
	return Decrypt(key, blob[len(Header):])
}

// IsSealed reports whether blob starts with Header.
func IsSealed(blob []byte) bool {
	return bytes.HasPrefix(blob, Header)
}
