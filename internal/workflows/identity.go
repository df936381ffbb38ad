package workflows

import (
	"context"

	"github.com/arcanehq/arcane/internal/keyring"
)

// IdentityResult describes the master identity.
type IdentityResult struct {
	PublicKey   string
	Fingerprint string
	Path        string

	// Imported lists the public keys of identities under ~/.arcane/keys.
	Imported []string

	// Teams lists the teams in the keychain.
	Teams []string
}

// NewIdentity creates the master identity. Returns ErrIdentityExists if
// one is already present.
func NewIdentity(_ context.Context, s *keyring.Session) (*IdentityResult, error) {
	id, err := s.CreateMaster()
	if err != nil {
		return nil, err
	}
	return &IdentityResult{
		PublicKey:   id.PublicKey(),
		Fingerprint: id.Fingerprint(),
		Path:        s.User.IdentityFile,
	}, nil
}

// ShowIdentity describes the master identity and the other identities the
// session loaded. Returns ErrMasterIdentityRequired when there is none.
func ShowIdentity(_ context.Context, s *keyring.Session) (*IdentityResult, error) {
	master, err := s.RequireMaster()
	if err != nil {
		return nil, err
	}
	result := &IdentityResult{
		PublicKey:   master.PublicKey(),
		Fingerprint: master.Fingerprint(),
		Path:        s.User.IdentityFile,
	}
	for _, id := range s.Imported {
		result.Imported = append(result.Imported, id.PublicKey())
	}
	teams, err := s.Teams()
	if err != nil {
		s.Log.Debugf("Cannot read keychain: %v", err)
	}
	result.Teams = teams
	return result, nil
}
