package workflows

import (
	"context"
	"fmt"
	"path/filepath"

	"filippo.io/age"

	"github.com/arcanehq/arcane/internal/audit"
	kerrors "github.com/arcanehq/arcane/internal/errors"
	"github.com/arcanehq/arcane/internal/envelope"
	"github.com/arcanehq/arcane/internal/identity"
	"github.com/arcanehq/arcane/internal/keyring"
	"github.com/arcanehq/arcane/internal/keystore"
	"github.com/arcanehq/arcane/internal/secrets"
)

// RotateOptions configures the rotate workflow.
type RotateOptions struct {
	// Keep lists the direct member aliases that receive the new key.
	Keep []string
}

// RotateResult contains the outcome of a rotate operation.
type RotateResult struct {
	// Era is the history snapshot that holds the retired grants.
	Era string

	// SnapshotDir is the directory of that snapshot.
	SnapshotDir string

	// Kept lists the aliases the new key was wrapped for.
	Kept []string

	// Skipped lists kept aliases without a recorded public key.
	Skipped []string

	// Dropped lists team and machine grants of the old era. They must be
	// granted again with the new key.
	Dropped []string
}

// Rotate replaces the repository key.
//
// The workflow:
//  1. Resolves the current key, proving the caller has access
//  2. Copies the live store to history/<unix-ts>
//  3. Deletes the live envelopes
//  4. Generates a new key and wraps it for each kept alias
//
// Content sealed under the old key stays readable through the history
// snapshot. Nothing is deleted unless the snapshot succeeded.
//
// Returns ErrInvalidAlias for an empty keep list, ErrPublicKeyNotFound if
// none of the kept aliases has a recorded public key, and ErrAlreadyExists
// if a snapshot for the same second exists.
func Rotate(ctx context.Context, s *keyring.Session, opts RotateOptions) (*RotateResult, error) {
	if err := s.RequireRepo(); err != nil {
		return nil, err
	}
	if len(opts.Keep) == 0 {
		return nil, fmt.Errorf("%w: keep at least one alias or nobody can read new content", kerrors.ErrInvalidAlias)
	}
	for _, alias := range opts.Keep {
		if err := keystore.ValidateAlias(alias); err != nil {
			return nil, err
		}
	}
	if !s.Store.Exists() {
		return nil, kerrors.ErrNotInitialized
	}

	old, err := requireAccess(ctx, s)
	if err != nil {
		return nil, err
	}
	defer old.Destroy()

	result := &RotateResult{}
	var recipients []age.Recipient
	seen := make(map[string]bool)
	for _, alias := range opts.Keep {
		if seen[alias] {
			continue
		}
		seen[alias] = true

		pk, err := s.Store.ReadPublicKey(alias)
		if err != nil {
			s.Log.Warnf("Skipping %s: %v", alias, err)
			result.Skipped = append(result.Skipped, alias)
			continue
		}
		r, err := identity.ParseRecipient(pk)
		if err != nil {
			s.Log.Warnf("Skipping %s: %v", alias, err)
			result.Skipped = append(result.Skipped, alias)
			continue
		}
		recipients = append(recipients, r)
		result.Kept = append(result.Kept, alias)
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("%w: none of the kept aliases has a recorded public key", kerrors.ErrPublicKeyNotFound)
	}

	entries, err := s.Store.Envelopes()
	if err != nil {
		return nil, fmt.Errorf("reading key store: %w", err)
	}
	for _, e := range entries {
		if e.Kind != keystore.Direct {
			result.Dropped = append(result.Dropped, e.FileName())
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := s.Store.Snapshot(s.Now())
	if err != nil {
		return nil, fmt.Errorf("snapshotting key store: %w", err)
	}
	result.SnapshotDir = dir
	result.Era = filepath.Base(dir)
	s.Log.Infof("Snapshotted key store to %s", dir)

	if _, err := s.Store.RemoveLiveEnvelopes(); err != nil {
		return nil, fmt.Errorf("retiring envelopes (snapshot kept at %s): %w", dir, err)
	}

	key, err := secrets.GenerateRepoKey()
	if err != nil {
		return nil, err
	}
	defer key.Destroy()

	for i, r := range recipients {
		alias := result.Kept[i]
		blob, err := envelope.WrapRepoKey(key, r)
		if err != nil {
			return nil, fmt.Errorf("wrapping key for %s: %w", alias, err)
		}
		if _, err := s.Store.WriteEnvelope(keystore.DirectFile(alias), blob); err != nil {
			return nil, err
		}
	}

	record(s, audit.Entry{
		Operation: "rotate",
		Via:       via(old),
		Era:       result.Era,
		Kept:      result.Kept,
		Skipped:   result.Skipped,
	})
	return result, nil
}
