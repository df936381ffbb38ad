// Package secrets holds the repository key and the content cipher.
//
// # Repository Key
//
// Every repository has one 32-byte AES-256 key. It never touches disk in
// plaintext (except the legacy repo.key read path); it is wrapped in age
// envelopes by the envelope package. RepoKey.Destroy zeroes it and must be
// called on every exit path of code that holds one.
//
// # Content Format
//
// Files committed through the git clean filter are stored as:
//
//	"ARCANE\x00\x01" || nonce (12 bytes) || AES-256-GCM ciphertext || tag
//
// Encrypt and Decrypt handle the nonce-prefixed body; Seal and Open add and
// check the header. A blob shorter than the nonce is ErrInvalidFormat; a
// failed authentication is ErrDecryptionFailure and never yields plaintext.
//
// # Files
//
// ResolveEnvFiles finds the dotenv files in a working tree, expanding
// doublestar globs.
package secrets
