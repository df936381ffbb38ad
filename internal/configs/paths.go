package configs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

// HomeEnv overrides the directory that holds the user's .arcane folder.
const HomeEnv = "ARCANE_HOME"

// UserPaths locates the per-user state under ~/.arcane.
type UserPaths struct {
	Dir             string // ~/.arcane
	IdentityFile    string // ~/.arcane/identity.age
	ImportedKeysDir string // ~/.arcane/keys
	TeamsDir        string // ~/.arcane/teams
	ConfigFile      string // ~/.arcane/config.toml
}

// NewUserPaths builds UserPaths rooted at home.
func NewUserPaths(home string) UserPaths {
	dir := filepath.Join(home, ".arcane")
	return UserPaths{
		Dir:             dir,
		IdentityFile:    filepath.Join(dir, "identity.age"),
		ImportedKeysDir: filepath.Join(dir, "keys"),
		TeamsDir:        filepath.Join(dir, "teams"),
		ConfigFile:      filepath.Join(dir, "config.toml"),
	}
}

// DefaultUserPaths resolves the home directory from ARCANE_HOME, falling
// back to the user's home directory.
func DefaultUserPaths() (UserPaths, error) {
	if home, ok := os.LookupEnv(HomeEnv); ok && home != "" {
		return NewUserPaths(home), nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return UserPaths{}, fmt.Errorf("failed to determine home directory: %w", err)
	}
	return NewUserPaths(home), nil
}

// TeamKeyFile returns the keychain entry for a team.
func (p UserPaths) TeamKeyFile(team string) string {
	return filepath.Join(p.TeamsDir, team+".key")
}

// RepoPaths locates arcane's state inside one repository.
type RepoPaths struct {
	Root          string // repository working tree
	ArcaneDir     string // .git/arcane
	KeysDir       string // .git/arcane/keys
	HistoryDir    string // .git/arcane/keys/history
	LegacyKeyFile string // .git/arcane/repo.key
	BackupsDir    string // .git/arcane/backups
	AuditLog      string // .git/arcane/audit.jsonl
	InvitesDir    string // arcane/invites, committed with the repository
	Attributes    string // .gitattributes
	Ignore        string // .gitignore
}

// NewRepoPaths builds RepoPaths for the repository rooted at root.
func NewRepoPaths(root string) RepoPaths {
	arcaneDir := filepath.Join(root, ".git", "arcane")
	keysDir := filepath.Join(arcaneDir, "keys")
	return RepoPaths{
		Root:          root,
		ArcaneDir:     arcaneDir,
		KeysDir:       keysDir,
		HistoryDir:    filepath.Join(keysDir, "history"),
		LegacyKeyFile: filepath.Join(arcaneDir, "repo.key"),
		BackupsDir:    filepath.Join(arcaneDir, "backups"),
		AuditLog:      filepath.Join(arcaneDir, "audit.jsonl"),
		InvitesDir:    filepath.Join(root, "arcane", "invites"),
		Attributes:    filepath.Join(root, ".gitattributes"),
		Ignore:        filepath.Join(root, ".gitignore"),
	}
}
