package workflows

import (
	"context"
	"fmt"

	"github.com/arcanehq/arcane/internal/audit"
	"github.com/arcanehq/arcane/internal/keyring"
)

// actor names the caller in audit entries: the master public key when one
// is loaded, otherwise the machine fingerprint.
func actor(s *keyring.Session) string {
	switch {
	case s.Master != nil:
		return s.Master.PublicKey()
	case s.Machine != nil:
		return "machine:" + s.Machine.Fingerprint()
	case len(s.Imported) > 0:
		return s.Imported[0].PublicKey()
	default:
		return "unknown"
	}
}

// record appends entry to the repository's audit log. Sessions without a
// repository log nothing.
func record(s *keyring.Session, entry audit.Entry) {
	if !s.HasRepo() {
		return
	}
	entry.Actor = actor(s)
	if entry.Timestamp == "" {
		entry.Timestamp = s.Now().UTC().Format(audit.TimeFormat)
	}
	audit.Log(s.Repo.AuditLog, entry)
}

// requireAccess resolves the current repository key. Every mutating
// operation calls it before touching the store so that a caller without
// access changes nothing.
func requireAccess(ctx context.Context, s *keyring.Session) (*keyring.Resolution, error) {
	if err := s.RequireRepo(); err != nil {
		return nil, err
	}
	res, err := s.ResolveCurrent(ctx)
	if err != nil {
		return nil, err
	}
	s.Log.Debugf("Unlocked repository key: %s", res)
	return res, nil
}

// via describes a resolution for audit entries.
func via(res *keyring.Resolution) string {
	if res == nil {
		return ""
	}
	return fmt.Sprint(res)
}
