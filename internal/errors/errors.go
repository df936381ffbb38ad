package errors

import "errors"

// Repository state errors indicate whether the key store exists.
var (
	// ErrNotInitialized indicates the repository has no key store at all.
	ErrNotInitialized = errors.New("repository has not been initialized")

	// ErrAlreadyInitialized indicates a non-empty key store already exists.
	ErrAlreadyInitialized = errors.New("repository has already been initialized")

	// ErrNotGitRepository indicates no .git directory was found above the working directory.
	ErrNotGitRepository = errors.New("not inside a git repository")
)

// Access errors indicate that no available identity can open the key store.
var (
	// ErrAccessDenied indicates the key store exists but none of the loaded identities can open it.
	ErrAccessDenied = errors.New("access denied: no available identity can unlock this repository")

	// ErrNoMatchingRecipient indicates an envelope was not addressed to the given identity.
	ErrNoMatchingRecipient = errors.New("no matching recipient")

	// ErrMasterIdentityRequired indicates the operation needs the user's master identity.
	ErrMasterIdentityRequired = errors.New("master identity required")

	// ErrTeamNotFound indicates the local keychain has no entry for the team.
	ErrTeamNotFound = errors.New("team not found in keychain")

	// ErrPublicKeyNotFound indicates no recorded public key exists for an alias.
	ErrPublicKeyNotFound = errors.New("public key not found")
)

// Cryptographic errors indicate failures during encryption or decryption.
var (
	// ErrInvalidKeyLength indicates a decrypted key or identity blob has an unexpected size.
	ErrInvalidKeyLength = errors.New("invalid key length")

	// ErrDecryptionFailure indicates AEAD authentication failed.
	ErrDecryptionFailure = errors.New("decryption failure: ciphertext could not be authenticated")

	// ErrInvalidFormat indicates a blob is truncated or lacks the expected header.
	ErrInvalidFormat = errors.New("invalid ciphertext format")

	// ErrInvalidIdentity indicates a secret identity string could not be parsed.
	ErrInvalidIdentity = errors.New("invalid identity")

	// ErrInvalidPublicKey indicates a recipient public key could not be parsed.
	ErrInvalidPublicKey = errors.New("invalid public key")
)

// Lifecycle errors guard against destructive overwrites and bad input.
var (
	// ErrAlreadyExists indicates the target entry already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrIdentityExists indicates a master identity is already present on disk.
	ErrIdentityExists = errors.New("identity already exists")

	// ErrInvalidAlias indicates a member alias is empty or contains path separators.
	ErrInvalidAlias = errors.New("invalid alias")

	// ErrInvalidTeamName indicates a team name is empty or contains reserved characters.
	ErrInvalidTeamName = errors.New("invalid team name")

	// ErrCorruptInvite indicates an invite payload is malformed or its team name is ambiguous.
	ErrCorruptInvite = errors.New("corrupt invite")

	// ErrMemberNotFound indicates no envelope exists for the alias.
	ErrMemberNotFound = errors.New("member not found")
)

// File errors indicate issues with files the user pointed at.
var (
	// ErrFileNotFound indicates a specific file could not be located.
	ErrFileNotFound = errors.New("file not found")

	// ErrSnapshotNotFound indicates the named backup does not exist.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrPathOutsideRepository indicates a target path escapes the repository root.
	ErrPathOutsideRepository = errors.New("path is outside the repository")

	// ErrInvalidDateFormat indicates a date filter is not in YYYY-MM-DD format.
	ErrInvalidDateFormat = errors.New("invalid date format")
)
