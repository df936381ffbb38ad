// Package audit records arcane operations in a repository-local log.
//
// Every operation that changes who can read a repository's secrets (init,
// member add/remove, machine whitelisting, rotate, invites, restore) is
// recorded. The log answers who changed access and when.
//
// # Log Format
//
// The audit log is stored as JSON Lines (one JSON object per line) at:
//
//	.git/arcane/audit.jsonl
//
// It lives inside .git so it is never committed.
//
// Each entry contains:
//   - Timestamp (RFC3339 with microseconds, UTC)
//   - Actor public key or machine fingerprint
//   - Operation name
//   - Operation-specific details (alias, team, era, files)
//
// # Failure Handling
//
// Audit logging is best-effort. If logging fails the operation continues
// without error.
//
// # Reading Logs
//
// Use ReadEntries() to parse the audit log for display. Malformed entries
// are silently skipped to handle partial writes.
package audit
