package keyring

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"aead.dev/mem"

	"github.com/arcanehq/arcane/internal/configs"
	kerrors "github.com/arcanehq/arcane/internal/errors"
	"github.com/arcanehq/arcane/internal/envelope"
	"github.com/arcanehq/arcane/internal/identity"
	"github.com/arcanehq/arcane/internal/keystore"
	"github.com/arcanehq/arcane/internal/secrets"
)

const teamKeyExt = ".key"

// LoadTeam unlocks a team identity from the keychain with the master
// identity. The decrypted payload must be a serialized X25519 identity.
func (s *Session) LoadTeam(name string) (*identity.Identity, error) {
	if err := keystore.ValidateTeamName(name); err != nil {
		return nil, err
	}
	master, err := s.RequireMaster()
	if err != nil {
		return nil, err
	}

	blob, err := readKeychainEntry(s.User.TeamKeyFile(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrTeamNotFound, name)
	}
	if err != nil {
		return nil, err
	}

	plaintext, err := envelope.Unwrap(blob, master.AgeIdentity())
	if err != nil {
		return nil, fmt.Errorf("failed to unlock team %s: %w", name, err)
	}
	defer secrets.Zero(plaintext)

	return ParseTeamSecret(name, plaintext)
}

// ParseTeamSecret validates decrypted team key material.
func ParseTeamSecret(name string, plaintext []byte) (*identity.Identity, error) {
	team, err := identity.Parse(identity.Team, name, string(plaintext))
	if err != nil {
		return nil, fmt.Errorf("%w: team %s secret is not a valid identity (%d bytes)",
			kerrors.ErrInvalidKeyLength, name, len(plaintext))
	}
	return team, nil
}

// SaveTeam stores team in the keychain, encrypted to the master identity.
// An existing entry is replaced only when overwrite is set.
func (s *Session) SaveTeam(team *identity.Identity, overwrite bool) (string, error) {
	if err := keystore.ValidateTeamName(team.Name); err != nil {
		return "", err
	}
	master, err := s.RequireMaster()
	if err != nil {
		return "", err
	}

	path := s.User.TeamKeyFile(team.Name)
	if _, err := os.Stat(path); err == nil && !overwrite {
		return "", fmt.Errorf("%w: team %s is already in your keychain", kerrors.ErrAlreadyExists, team.Name)
	}

	blob, err := envelope.Wrap([]byte(team.Secret()), master.Recipient())
	if err != nil {
		return "", err
	}
	if err := configs.WriteFileAtomic(path, blob, 0o600); err != nil {
		return "", fmt.Errorf("failed to save team %s: %w", team.Name, err)
	}
	return path, nil
}

// HasTeam reports whether the keychain holds an entry for name.
func (s *Session) HasTeam(name string) bool {
	_, err := os.Stat(s.User.TeamKeyFile(name))
	return err == nil
}

// Teams lists the team names in the keychain.
func (s *Session) Teams() ([]string, error) {
	entries, err := os.ReadDir(s.User.TeamsDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && filepath.Ext(e.Name()) == teamKeyExt {
			names = append(names, strings.TrimSuffix(e.Name(), teamKeyExt))
		}
	}
	sort.Strings(names)
	return names, nil
}

func readKeychainEntry(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(mem.LimitReader(f, 64*mem.KiB))
}
