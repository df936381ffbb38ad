// Package errors provides typed error values for arcane.
//
// Sentinel errors let callers handle specific conditions with errors.Is()
// rather than string matching.
//
// # Error Categories
//
//   - State errors: ErrNotInitialized, ErrAlreadyInitialized
//   - Access errors: ErrAccessDenied, ErrNoMatchingRecipient
//   - Crypto errors: ErrInvalidKeyLength, ErrDecryptionFailure, ErrInvalidFormat
//   - Lifecycle errors: ErrAlreadyExists, ErrCorruptInvite, ErrInvalidAlias
//
// ErrNotInitialized and ErrAccessDenied are kept apart because the remedy
// differs: the first means "run arcane init", the second means the user
// has not been granted access.
//
// # Usage
//
// Wrap with context at the failure site:
//
//	return fmt.Errorf("%w: %s", kerrors.ErrInvalidAlias, alias)
//
// Match in the CLI layer:
//
//	if errors.Is(err, kerrors.ErrNotInitialized) {
//	    // suggest arcane init
//	}
package errors
