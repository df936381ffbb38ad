package workflows

import (
	"context"
	"fmt"

	"github.com/arcanehq/arcane/internal/audit"
	kerrors "github.com/arcanehq/arcane/internal/errors"
	"github.com/arcanehq/arcane/internal/envelope"
	"github.com/arcanehq/arcane/internal/identity"
	"github.com/arcanehq/arcane/internal/keyring"
	"github.com/arcanehq/arcane/internal/keystore"
)

// AddMemberOptions configures the member add workflow.
type AddMemberOptions struct {
	// Alias names the new envelope.
	Alias string

	// PublicKey is the member's age1... master public key.
	PublicKey string
}

// AddMemberResult contains the outcome of a member add.
type AddMemberResult struct {
	Alias        string
	EnvelopePath string
	Fingerprint  string
}

// AddMember grants a user access by wrapping the current repository key
// for their public key.
//
// Access is checked first: a caller who cannot open the store changes
// nothing. Returns ErrInvalidAlias, ErrInvalidPublicKey, or ErrAlreadyExists
// if the alias already has an envelope.
func AddMember(ctx context.Context, s *keyring.Session, opts AddMemberOptions) (*AddMemberResult, error) {
	res, err := requireAccess(ctx, s)
	if err != nil {
		return nil, err
	}
	defer res.Destroy()

	if err := keystore.ValidateAlias(opts.Alias); err != nil {
		return nil, err
	}
	recipient, err := identity.ParseRecipient(opts.PublicKey)
	if err != nil {
		return nil, err
	}
	if s.Store.Has(keystore.DirectFile(opts.Alias)) {
		return nil, fmt.Errorf("%w: member %s", kerrors.ErrAlreadyExists, opts.Alias)
	}

	blob, err := envelope.WrapRepoKey(res.Key, recipient)
	if err != nil {
		return nil, err
	}
	if err := s.Store.WritePublicKey(opts.Alias, recipient.String()); err != nil {
		return nil, err
	}
	path, err := s.Store.WriteEnvelope(keystore.DirectFile(opts.Alias), blob)
	if err != nil {
		return nil, err
	}

	fp := identity.Fingerprint(recipient)
	record(s, audit.Entry{Operation: "member-add", Via: via(res), Alias: opts.Alias, Fingerprint: fp})
	return &AddMemberResult{Alias: opts.Alias, EnvelopePath: path, Fingerprint: fp}, nil
}

// RemoveMemberOptions configures the member remove workflow.
type RemoveMemberOptions struct {
	Alias string
}

// RemoveMemberResult contains the outcome of a member removal.
type RemoveMemberResult struct {
	Alias   string
	Removed []string
}

// RemoveMember deletes a member's envelope and recorded public key.
//
// The member may have kept a copy of the repository key, so callers should
// follow up with Rotate. Returns ErrMemberNotFound if the alias has no
// envelope.
func RemoveMember(ctx context.Context, s *keyring.Session, opts RemoveMemberOptions) (*RemoveMemberResult, error) {
	res, err := requireAccess(ctx, s)
	if err != nil {
		return nil, err
	}
	defer res.Destroy()

	if err := keystore.ValidateAlias(opts.Alias); err != nil {
		return nil, err
	}
	envelopeFile := keystore.DirectFile(opts.Alias)
	if !s.Store.Has(envelopeFile) {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrMemberNotFound, opts.Alias)
	}

	result := &RemoveMemberResult{Alias: opts.Alias}
	for _, name := range []string{envelopeFile, keystore.PublicKeyFile(opts.Alias)} {
		if !s.Store.Has(name) {
			continue
		}
		if err := s.Store.Remove(name); err != nil {
			return result, fmt.Errorf("removing %s: %w", name, err)
		}
		result.Removed = append(result.Removed, name)
	}
	s.Log.Warnf("%s may still hold a copy of the repository key; rotate to revoke it", opts.Alias)

	record(s, audit.Entry{Operation: "member-remove", Via: via(res), Alias: opts.Alias})
	return result, nil
}

// Member is one grant in the live store.
type Member struct {
	Kind keystore.Kind
	Name string

	// PublicKey is the recorded key for direct members, empty otherwise.
	PublicKey string

	Envelope string
}

// ListMembersResult contains the grants of a repository.
type ListMembersResult struct {
	Members []Member

	// Eras is the number of retained history snapshots.
	Eras int
}

// ListMembers lists the grants of the live store. It needs no access: the
// envelope names are not secret.
func ListMembers(ctx context.Context, s *keyring.Session) (*ListMembersResult, error) {
	if err := s.RequireRepo(); err != nil {
		return nil, err
	}
	if !s.Store.Exists() {
		return nil, kerrors.ErrNotInitialized
	}
	entries, err := s.Store.Envelopes()
	if err != nil {
		return nil, fmt.Errorf("reading key store: %w", err)
	}

	result := &ListMembersResult{}
	for _, e := range entries {
		m := Member{Kind: e.Kind, Name: e.Name, Envelope: e.Path}
		if e.Kind == keystore.Direct {
			if pk, err := s.Store.ReadPublicKey(e.Name); err == nil {
				m.PublicKey = pk
			}
		}
		result.Members = append(result.Members, m)
	}

	eras, err := s.Store.Eras()
	if err != nil {
		s.Log.Debugf("Cannot list history: %v", err)
	}
	result.Eras = len(eras)
	return result, nil
}
