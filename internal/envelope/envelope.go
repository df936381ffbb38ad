// Package envelope wraps small secrets (the repository key, a team
// identity) for a single age recipient and unwraps them again.
//
// Unwrap fails with ErrNoMatchingRecipient when the blob was addressed to
// someone else. The resolution engine relies on that to try many envelopes
// against one identity and move on cleanly.
package envelope

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"aead.dev/mem"
	"filippo.io/age"

	kerrors "github.com/arcanehq/arcane/internal/errors"
	"github.com/arcanehq/arcane/internal/secrets"
)

// MaxPayload bounds the decrypted size of an envelope.
const MaxPayload = 1 * mem.MiB

// Wrap encrypts plaintext to the given recipients using the age format.
func Wrap(plaintext []byte, recipients ...age.Recipient) ([]byte, error) {
	if len(recipients) == 0 {
		return nil, errors.New("envelope: no recipients")
	}
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipients...)
	if err != nil {
		return nil, fmt.Errorf("failed to create envelope: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("failed to write envelope: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish envelope: %w", err)
	}
	return buf.Bytes(), nil
}

// Unwrap decrypts blob with the first matching identity.
func Unwrap(blob []byte, identities ...age.Identity) ([]byte, error) {
	r, err := age.Decrypt(bytes.NewReader(blob), identities...)
	if err != nil {
		var noMatch *age.NoIdentityMatchError
		if errors.As(err, &noMatch) {
			return nil, kerrors.ErrNoMatchingRecipient
		}
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidFormat, err)
	}

	plaintext, err := io.ReadAll(mem.LimitReader(r, MaxPayload))
	if err != nil {
		secrets.Zero(plaintext)
		return nil, fmt.Errorf("%w: %v", kerrors.ErrDecryptionFailure, err)
	}
	return plaintext, nil
}

// UnwrapRepoKey unwraps blob and validates the payload as a repository key.
// The intermediate plaintext is zeroed before returning.
func UnwrapRepoKey(blob []byte, identities ...age.Identity) (*secrets.RepoKey, error) {
	plaintext, err := Unwrap(blob, identities...)
	if err != nil {
		return nil, err
	}
	defer secrets.Zero(plaintext)
	return secrets.NewRepoKey(plaintext)
}

// WrapRepoKey wraps key for the given recipients.
func WrapRepoKey(key *secrets.RepoKey, recipients ...age.Recipient) ([]byte, error) {
	return Wrap(key.Bytes(), recipients...)
}
