package workflows

import (
	"context"
	"fmt"
	"os"

	"github.com/arcanehq/arcane/internal/audit"
	kerrors "github.com/arcanehq/arcane/internal/errors"
	"github.com/arcanehq/arcane/internal/envelope"
	"github.com/arcanehq/arcane/internal/gitconfig"
	"github.com/arcanehq/arcane/internal/keyring"
	"github.com/arcanehq/arcane/internal/keystore"
	"github.com/arcanehq/arcane/internal/secrets"
)

// DefaultOwnerAlias names the first envelope of a repository.
const DefaultOwnerAlias = "owner"

// InitOptions configures the init workflow.
type InitOptions struct {
	// Alias names the owner's envelope. Defaults to "owner".
	Alias string

	// SkipGitConfig leaves git's filter configuration untouched.
	SkipGitConfig bool

	// SkipAttributes leaves .gitattributes and .gitignore untouched.
	SkipAttributes bool

	// Runner executes git. Defaults to gitconfig.ExecRunner.
	Runner gitconfig.Runner

	// Executable is the path git should invoke for the filters. Defaults
	// to the running binary.
	Executable string
}

// InitResult contains the outcome of an init operation.
type InitResult struct {
	// Alias is the alias the owner envelope was written under.
	Alias string

	// EnvelopePath is the owner's envelope.
	EnvelopePath string

	// PublicKey is the master public key the key was wrapped for.
	PublicKey string

	// GitConfigured reports whether the filter driver was written to git config.
	GitConfigured bool

	// AttributesUpdated reports whether .gitattributes changed.
	AttributesUpdated bool

	// Untracked lists the .gitignore lines removed so secrets reach the filter.
	Untracked []string
}

// Init creates the key store of the current repository.
//
// It generates a fresh repository key, wraps it for the master identity
// and records the master public key so later rotations can rewrap it.
//
// Returns ErrAlreadyInitialized if the store already holds entries.
// Returns ErrMasterIdentityRequired if no master identity exists.
func Init(ctx context.Context, s *keyring.Session, opts InitOptions) (*InitResult, error) {
	key, err := secrets.GenerateRepoKey()
	if err != nil {
		return nil, err
	}
	defer key.Destroy()

	result, err := initialize(ctx, s, key, opts)
	if err != nil {
		return nil, err
	}
	record(s, audit.Entry{Operation: "init", Alias: result.Alias, Envelope: result.EnvelopePath})
	return result, nil
}

// initialize stores key as the repository key. Shared by Init and ImportKey.
func initialize(ctx context.Context, s *keyring.Session, key *secrets.RepoKey, opts InitOptions) (*InitResult, error) {
	if err := s.RequireRepo(); err != nil {
		return nil, err
	}
	empty, err := s.Store.IsEmpty()
	if err != nil {
		return nil, fmt.Errorf("checking key store: %w", err)
	}
	if !empty {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrAlreadyInitialized, s.Store.Dir)
	}

	alias := opts.Alias
	if alias == "" {
		alias = DefaultOwnerAlias
	}
	if err := keystore.ValidateAlias(alias); err != nil {
		return nil, err
	}

	master, err := s.RequireMaster()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.Store.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating key store: %w", err)
	}

	blob, err := envelope.WrapRepoKey(key, master.Recipient())
	if err != nil {
		return nil, err
	}
	if err := s.Store.WritePublicKey(alias, master.PublicKey()); err != nil {
		return nil, err
	}
	path, err := s.Store.WriteEnvelope(keystore.DirectFile(alias), blob)
	if err != nil {
		return nil, err
	}
	s.Log.Infof("Wrapped repository key for %s", alias)

	result := &InitResult{
		Alias:        alias,
		EnvelopePath: path,
		PublicKey:    master.PublicKey(),
	}

	if !opts.SkipGitConfig {
		runner, exe, err := gitTools(opts.Runner, opts.Executable)
		if err != nil {
			return nil, err
		}
		if err := gitconfig.ConfigureRepo(ctx, runner, s.Repo.Root, exe); err != nil {
			return nil, err
		}
		result.GitConfigured = true
	}

	if !opts.SkipAttributes {
		changed, err := gitconfig.UpdateAttributes(s.Repo.Attributes, s.Config.GitAttributesPatterns)
		if err != nil {
			return nil, fmt.Errorf("updating .gitattributes: %w", err)
		}
		result.AttributesUpdated = changed

		removed, err := gitconfig.EnsureTracked(s.Repo.Ignore, s.Config.TrackedPatterns)
		if err != nil {
			return nil, fmt.Errorf("updating .gitignore: %w", err)
		}
		result.Untracked = removed
	}

	return result, nil
}

func gitTools(r gitconfig.Runner, exe string) (gitconfig.Runner, string, error) {
	if r == nil {
		r = gitconfig.ExecRunner{}
	}
	if exe == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, "", fmt.Errorf("locating arcane executable: %w", err)
		}
		exe = self
	}
	return r, exe, nil
}
