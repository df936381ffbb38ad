// Package configs locates arcane's on-disk state and loads user configuration.
//
// There are two roots:
//
//   - UserPaths: ~/.arcane, holding identity.age (the master identity),
//     keys/ (imported legacy identities), teams/ (the team keychain) and
//     config.toml.
//   - RepoPaths: .git/arcane inside a repository, holding keys/ (the
//     envelope store and its history/), repo.key (legacy plaintext key),
//     backups/ and audit.jsonl. Team invites live in arcane/invites/ in the
//     working tree so they travel with the repository.
//
// Set ARCANE_HOME to relocate the user root; tests rely on this.
//
// # Configuration
//
// config.toml is optional. Missing keys keep their defaults:
//
//	gitattributes_patterns = ["*.env filter=git-arcane diff=git-arcane"]
//
//	[backup]
//	enabled = true
//
//	[scan]
//	exclude = ["**/node_modules/**"]
//	max_file_size = 1048576
//
//	[[scan.patterns]]
//	name = "Internal Token"
//	regex = "itk_[0-9a-f]{32}"
//
// WriteFileAtomic is the single write path for anything arcane replaces
// on disk.
package configs
