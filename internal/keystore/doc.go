// Package keystore is the per-repository access-control list kept in
// .git/arcane/keys.
//
// Every grant is one file, so access can be audited with ls and diffed:
//
//	<alias>.age              repository key wrapped for a person
//	<alias>.pub              that person's public key, kept for rotation
//	team:<name>.age          repository key wrapped for a team identity
//	machine:<fp>.age         repository key wrapped for a CI machine
//	history/<unix-ts>/...    copy of the store taken before each rotation
//
// The package does no cryptography. It names, lists, writes (atomically)
// and snapshots files; keyring decides what to do with them.
package keystore
