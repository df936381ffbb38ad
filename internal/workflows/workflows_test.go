package workflows

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arcanehq/arcane/internal/configs"
	"github.com/arcanehq/arcane/internal/keyring"
	logger "github.com/arcanehq/arcane/internal/logging"
)

type call struct {
	dir  string
	args []string
}

// fakeRunner stands in for git. "config --get" answers from values.
type fakeRunner struct {
	calls  []call
	values map[string]string
}

func (f *fakeRunner) Run(_ context.Context, dir string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{dir, args})
	if len(args) == 3 && args[0] == "config" && args[1] == "--get" {
		return []byte(f.values[args[2]] + "\n"), nil
	}
	return nil, nil
}

type fixture struct {
	home string
	repo string
	env  map[string]string
	now  time.Time
	cfg  *configs.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		home: t.TempDir(),
		repo: t.TempDir(),
		env:  map[string]string{},
		now:  time.Unix(1700000000, 0),
		cfg:  configs.DefaultConfig(),
	}
	require.NoError(t, os.MkdirAll(filepath.Join(f.repo, ".git"), 0o755))
	return f
}

// sessionFor opens a session for the user whose home is home.
func (f *fixture) sessionFor(t *testing.T, home string) *keyring.Session {
	t.Helper()
	s, err := keyring.NewSession(keyring.Options{
		RepoRoot:  f.repo,
		User:      configs.NewUserPaths(home),
		Config:    f.cfg,
		Logger:    logger.Logger{Out: &bytes.Buffer{}, Err: &bytes.Buffer{}},
		LookupEnv: func(k string) (string, bool) { v, ok := f.env[k]; return v, ok },
		Now:       func() time.Time { return f.now },
	})
	require.NoError(t, err)
	return s
}

func (f *fixture) session(t *testing.T) *keyring.Session {
	t.Helper()
	return f.sessionFor(t, f.home)
}

// owner returns a session for the fixture's user with a master identity.
func (f *fixture) owner(t *testing.T) *keyring.Session {
	t.Helper()
	s := f.session(t)
	if s.Master == nil {
		_, err := s.CreateMaster()
		require.NoError(t, err)
	}
	return s
}

// newUser creates a second user with their own home and master identity.
func (f *fixture) newUser(t *testing.T) (string, *keyring.Session) {
	t.Helper()
	home := t.TempDir()
	s := f.sessionFor(t, home)
	_, err := s.CreateMaster()
	require.NoError(t, err)
	return home, s
}

// initialized returns an owner session for an initialized repository.
func (f *fixture) initialized(t *testing.T) *keyring.Session {
	t.Helper()
	s := f.owner(t)
	_, err := Init(context.Background(), s, InitOptions{SkipGitConfig: true})
	require.NoError(t, err)
	return s
}

func clean(t *testing.T, s *keyring.Session, file, content string) []byte {
	t.Helper()
	var out bytes.Buffer
	_, err := Clean(context.Background(), s, CleanOptions{File: file, In: strings.NewReader(content), Out: &out})
	require.NoError(t, err)
	return out.Bytes()
}

func smudge(s *keyring.Session, blob []byte) (string, *SmudgeResult, error) {
	var out bytes.Buffer
	res, err := Smudge(context.Background(), s, SmudgeOptions{In: bytes.NewReader(blob), Out: &out})
	return out.String(), res, err
}
