// Package workflows implements the operations behind every arcane command.
//
// Workflows coordinate the key store, the resolution engine, the git
// configuration and the audit log to implement complete user-facing
// features. Each workflow handles a single command's business logic,
// independent of CLI concerns like flag parsing, spinners, and output
// formatting.
//
// # Design Philosophy
//
// The cmd/ package should be a thin layer that:
//   - Parses command-line flags and arguments
//   - Builds a keyring.Session
//   - Calls the appropriate workflow function
//   - Formats the result for display
//
// Workflows handle everything else:
//   - Validating prerequisites and access
//   - Performing the core operation
//   - Recording audit trail entries
//
// Every workflow that writes to the key store resolves the current
// repository key first, so a caller without access changes nothing.
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package, allowing
// the CLI layer to provide appropriate user-facing messages without string
// matching:
//
//	result, err := workflows.AddMember(ctx, session, opts)
//	if errors.Is(err, kerrors.ErrAccessDenied) {
//	    // Explain how to get access
//	}
//
// # Context Usage
//
// All workflow functions accept a context.Context as their first parameter.
// This enables cancellation, timeouts, and passing request-scoped values.
package workflows
