package workflows

import (
	"context"

	"github.com/arcanehq/arcane/internal/gitconfig"
	"github.com/arcanehq/arcane/internal/keyring"
)

// SetupOptions configures global setup.
type SetupOptions struct {
	Runner     gitconfig.Runner
	Executable string
}

// SetupResult lists the git config keys that were written.
type SetupResult struct {
	Keys       []string
	Executable string
}

// Setup registers the arcane filter driver, and the git-seal alias used by
// older repositories, in the user's global git config. Combined with a
// global .gitattributes this makes every repository auto-initialize on its
// first commit of a secret file.
func Setup(ctx context.Context, s *keyring.Session, opts SetupOptions) (*SetupResult, error) {
	runner, exe, err := gitTools(opts.Runner, opts.Executable)
	if err != nil {
		return nil, err
	}
	keys, err := gitconfig.ConfigureGlobal(ctx, runner, exe)
	if err != nil {
		return &SetupResult{Keys: keys, Executable: exe}, err
	}
	s.Log.Infof("Configured %d global git settings", len(keys))
	return &SetupResult{Keys: keys, Executable: exe}, nil
}
