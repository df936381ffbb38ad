package keyring

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	kerrors "github.com/arcanehq/arcane/internal/errors"
	"github.com/arcanehq/arcane/internal/envelope"
	"github.com/arcanehq/arcane/internal/identity"
	"github.com/arcanehq/arcane/internal/keystore"
	"github.com/arcanehq/arcane/internal/secrets"
)

// Resolution is a recovered repository key and how it was found.
type Resolution struct {
	Key *secrets.RepoKey

	// Via is the identity that opened the envelope. Nil for the legacy key.
	Via *identity.Identity

	// Envelope is the file that was opened. Empty for the legacy key.
	Envelope string

	// Era is the history timestamp the key belongs to, empty for the
	// current store.
	Era string

	Legacy bool
}

// Historical reports whether the key comes from a retired era.
func (r *Resolution) Historical() bool {
	return r.Era != ""
}

// Destroy zeroes the key.
func (r *Resolution) Destroy() {
	if r != nil {
		r.Key.Destroy()
	}
}

func (r *Resolution) String() string {
	switch {
	case r.Legacy:
		return "legacy repo.key"
	case r.Era != "":
		return fmt.Sprintf("%s via %s (history %s)", filepath.Base(r.Envelope), r.Via, r.Era)
	default:
		return fmt.Sprintf("%s via %s", filepath.Base(r.Envelope), r.Via)
	}
}

// Resolve recovers the repository key. The search order is fixed and the
// first success wins:
//
//  1. machine identity from ARCANE_MACHINE_KEY against machine:* envelopes
//  2. master identity against direct envelopes
//  3. imported identities against direct envelopes
//  4. team identities, unlocked from the keychain, against team:* envelopes
//  5. history eras, newest first, repeating 2 and 3
//  6. the legacy plaintext repo.key
//
// A missing key store is ErrNotInitialized; exhausting every step is
// ErrAccessDenied. Per-envelope failures only end that attempt.
func (s *Session) Resolve(ctx context.Context) (*Resolution, error) {
	return s.resolve(ctx, true)
}

// ResolveCurrent is Resolve without the history step. Use it before
// writing: new content and new grants must use the current key.
func (s *Session) ResolveCurrent(ctx context.Context) (*Resolution, error) {
	return s.resolve(ctx, false)
}

func (s *Session) resolve(ctx context.Context, withHistory bool) (*Resolution, error) {
	if err := s.RequireRepo(); err != nil {
		return nil, err
	}

	if !s.Store.Exists() {
		if res, ok := s.tryLegacy(); ok {
			return res, nil
		}
		return nil, kerrors.ErrNotInitialized
	}

	entries, err := s.Store.Envelopes()
	if err != nil {
		return nil, fmt.Errorf("failed to read key store: %w", err)
	}

	steps := []func() *Resolution{
		func() *Resolution {
			return s.tryEach(keystore.Filter(entries, keystore.MachineGrant), "", s.Machine)
		},
		func() *Resolution {
			return s.tryEach(keystore.Filter(entries, keystore.Direct), "", s.Master)
		},
		func() *Resolution {
			return s.tryEach(keystore.Filter(entries, keystore.Direct), "", s.Imported...)
		},
		func() *Resolution {
			return s.tryTeams(keystore.Filter(entries, keystore.TeamGrant))
		},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if res := step(); res != nil {
			return res, nil
		}
	}

	if withHistory {
		eras, err := s.Store.Eras()
		if err != nil {
			s.Log.Debugf("Cannot list history: %v", err)
		}
		for _, era := range eras {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if res := s.tryEra(era); res != nil {
				return res, nil
			}
		}
	}

	if res, ok := s.tryLegacy(); ok {
		return res, nil
	}
	return nil, kerrors.ErrAccessDenied
}

// HistoryKeys returns every historical key the session can open, newest
// era first. Callers own the returned keys and must Destroy them.
func (s *Session) HistoryKeys(ctx context.Context) ([]*Resolution, error) {
	if err := s.RequireRepo(); err != nil {
		return nil, err
	}
	eras, err := s.Store.Eras()
	if err != nil {
		return nil, err
	}
	var out []*Resolution
	for _, era := range eras {
		if err := ctx.Err(); err != nil {
			for _, r := range out {
				r.Destroy()
			}
			return nil, err
		}
		if res := s.tryEra(era); res != nil {
			out = append(out, res)
		}
	}
	return out, nil
}

func (s *Session) tryEra(dir string) *Resolution {
	entries, err := keystore.ListEnvelopes(dir)
	if err != nil {
		s.Log.Debugf("Cannot read history %s: %v", dir, err)
		return nil
	}
	direct := keystore.Filter(entries, keystore.Direct)
	era := filepath.Base(dir)
	if res := s.tryEach(direct, era, s.Master); res != nil {
		return res
	}
	return s.tryEach(direct, era, s.Imported...)
}

func (s *Session) tryEach(entries []keystore.Entry, era string, ids ...*identity.Identity) *Resolution {
	for _, id := range ids {
		if id == nil {
			continue
		}
		for _, e := range entries {
			if res := s.tryEntry(e, era, id); res != nil {
				return res
			}
		}
	}
	return nil
}

func (s *Session) tryEntry(e keystore.Entry, era string, id *identity.Identity) *Resolution {
	blob, err := keystore.ReadEnvelope(e.Path)
	if err != nil {
		s.Log.Debugf("Cannot read %s: %v", e.Path, err)
		return nil
	}
	key, err := envelope.UnwrapRepoKey(blob, id.AgeIdentity())
	if err != nil {
		if !errors.Is(err, kerrors.ErrNoMatchingRecipient) {
			s.Log.Debugf("%s cannot open %s: %v", id, e.FileName(), err)
		}
		return nil
	}
	s.Log.Debugf("Unlocked %s with %s", e.FileName(), id)
	return &Resolution{Key: key, Via: id, Envelope: e.Path, Era: era}
}

func (s *Session) tryTeams(entries []keystore.Entry) *Resolution {
	if s.Master == nil {
		return nil
	}
	for _, e := range entries {
		team, err := s.LoadTeam(e.Name)
		if err != nil {
			s.Log.Debugf("Skipping team %s: %v", e.Name, err)
			continue
		}
		if res := s.tryEntry(e, "", team); res != nil {
			return res
		}
	}
	return nil
}

func (s *Session) tryLegacy() (*Resolution, bool) {
	key, err := s.Store.ReadLegacyKey()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.Log.Debugf("Ignoring legacy key %s: %v", s.Store.LegacyKey, err)
		}
		return nil, false
	}
	s.Log.Debugf("Using legacy key %s", s.Store.LegacyKey)
	return &Resolution{Key: key, Legacy: true}, true
}
