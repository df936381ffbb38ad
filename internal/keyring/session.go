package keyring

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/arcanehq/arcane/internal/configs"
	kerrors "github.com/arcanehq/arcane/internal/errors"
	"github.com/arcanehq/arcane/internal/identity"
	"github.com/arcanehq/arcane/internal/keystore"
	logger "github.com/arcanehq/arcane/internal/logging"
)

// MachineKeyEnv carries a machine identity for unattended resolution.
const MachineKeyEnv = "ARCANE_MACHINE_KEY"

// Options configure NewSession.
type Options struct {
	// RepoRoot is the working tree root. Empty for commands that only touch
	// user state (identity, team create).
	RepoRoot string

	User   configs.UserPaths
	Config *configs.Config
	Logger logger.Logger

	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)

	// Now defaults to time.Now.
	Now func() time.Time
}

// Session is the state of one invocation: resolved paths and the identities
// available to it. Every operation receives it explicitly; nothing is
// cached between sessions.
type Session struct {
	User   configs.UserPaths
	Repo   configs.RepoPaths
	Store  *keystore.Store
	Config *configs.Config
	Log    logger.Logger
	Now    func() time.Time

	Master   *identity.Identity
	Imported []*identity.Identity
	Machine  *identity.Identity
}

// NewSession loads the master identity, the imported identities and the
// machine identity from the environment. Missing identities are not errors;
// a master identity file that exists but cannot be parsed is.
func NewSession(opts Options) (*Session, error) {
	s := &Session{
		User:   opts.User,
		Config: opts.Config,
		Log:    opts.Logger,
		Now:    opts.Now,
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	if s.Config == nil {
		s.Config = configs.DefaultConfig()
	}
	if opts.RepoRoot != "" {
		s.Repo = configs.NewRepoPaths(opts.RepoRoot)
		s.Store = keystore.New(s.Repo)
	}

	master, err := identity.ReadFile(identity.Master, "", s.User.IdentityFile)
	switch {
	case err == nil:
		s.Master = master
		s.Log.Debugf("Loaded master identity %s", master.PublicKey())
	case errors.Is(err, fs.ErrNotExist):
		s.Log.Debugf("No master identity at %s", s.User.IdentityFile)
	default:
		return nil, fmt.Errorf("failed to load master identity: %w", err)
	}

	imported, skipped, err := identity.ReadDir(s.User.ImportedKeysDir)
	if err != nil {
		s.Log.Warnf("Failed to read imported identities: %v", err)
	}
	for name, err := range skipped {
		s.Log.Debugf("Skipping imported identity %s: %v", name, err)
	}
	s.Imported = imported

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if raw, ok := lookup(MachineKeyEnv); ok && raw != "" {
		machine, err := identity.Parse(identity.Machine, "", raw)
		if err != nil {
			s.Log.WarnfAlways("Ignoring %s: %v", MachineKeyEnv, err)
		} else {
			machine.Name = machine.Fingerprint()
			s.Machine = machine
			s.Log.Debugf("Loaded machine identity %s", machine.Name)
		}
	}

	return s, nil
}

// HasRepo reports whether the session is bound to a repository.
func (s *Session) HasRepo() bool {
	return s.Store != nil
}

// RequireRepo returns ErrNotGitRepository for sessions without a repository.
func (s *Session) RequireRepo() error {
	if s.Store == nil {
		return kerrors.ErrNotGitRepository
	}
	return nil
}

// RequireMaster returns the master identity or ErrMasterIdentityRequired.
func (s *Session) RequireMaster() (*identity.Identity, error) {
	if s.Master == nil {
		return nil, fmt.Errorf("%w: run arcane identity new", kerrors.ErrMasterIdentityRequired)
	}
	return s.Master, nil
}

// CreateMaster generates and stores a master identity and binds it to the
// session. An existing identity is never replaced.
func (s *Session) CreateMaster() (*identity.Identity, error) {
	if s.Master != nil {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrIdentityExists, s.User.IdentityFile)
	}
	id, err := identity.Generate(identity.Master, "")
	if err != nil {
		return nil, err
	}
	if err := identity.WriteFile(s.User.IdentityFile, id); err != nil {
		return nil, err
	}
	s.Master = id
	s.Log.Infof("Created master identity at %s", s.User.IdentityFile)
	return id, nil
}
