// Package keyring recovers the repository key from the identities available
// to one invocation.
//
// A Session replaces process-wide state: it is built once per command from
// explicit Options (repository root, user paths, environment lookup, clock)
// and passed to every workflow. It loads up to three kinds of identity:
//
//   - Master: ~/.arcane/identity.age
//   - Imported: ~/.arcane/keys/*.age, identities migrated from git-seal
//   - Machine: the ARCANE_MACHINE_KEY environment variable
//
// Team identities are unlocked on demand from the keychain in
// ~/.arcane/teams with the master identity.
//
// # Resolution
//
// Resolve walks a fixed priority order and stops at the first envelope
// that opens; see its documentation. Writers call ResolveCurrent so that
// content is never sealed under a key retired by rotation. Readers that
// meet content from before a rotation fall back to HistoryKeys.
//
// # Secret Material
//
// Decrypted key bytes are zeroed on every exit path and callers Destroy
// each Resolution they receive. Identity secrets held by filippo.io/age
// cannot be scrubbed from Go memory.
package keyring
