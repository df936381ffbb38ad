package keyring

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcanehq/arcane/internal/configs"
	kerrors "github.com/arcanehq/arcane/internal/errors"
	"github.com/arcanehq/arcane/internal/envelope"
	"github.com/arcanehq/arcane/internal/identity"
	"github.com/arcanehq/arcane/internal/keystore"
	logger "github.com/arcanehq/arcane/internal/logging"
	"github.com/arcanehq/arcane/internal/secrets"
)

type fixture struct {
	home string
	repo string
	env  map[string]string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{home: t.TempDir(), repo: t.TempDir(), env: map[string]string{}}
	require.NoError(t, os.MkdirAll(filepath.Join(f.repo, ".git"), 0o755))
	return f
}

func (f *fixture) session(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession(Options{
		RepoRoot:  f.repo,
		User:      configs.NewUserPaths(f.home),
		Logger:    logger.Logger{Out: &bytes.Buffer{}, Err: &bytes.Buffer{}},
		LookupEnv: func(k string) (string, bool) { v, ok := f.env[k]; return v, ok },
	})
	require.NoError(t, err)
	return s
}

func (f *fixture) grant(t *testing.T, s *Session, fileName string, key *secrets.RepoKey, id *identity.Identity) {
	t.Helper()
	blob, err := envelope.WrapRepoKey(key, id.Recipient())
	require.NoError(t, err)
	_, err = s.Store.WriteEnvelope(fileName, blob)
	require.NoError(t, err)
}

func newKey(t *testing.T) *secrets.RepoKey {
	t.Helper()
	key, err := secrets.GenerateRepoKey()
	require.NoError(t, err)
	t.Cleanup(key.Destroy)
	return key
}

func newID(t *testing.T, class identity.Class) *identity.Identity {
	t.Helper()
	id, err := identity.Generate(class, "")
	require.NoError(t, err)
	return id
}

func TestResolveNotInitialized(t *testing.T) {
	f := newFixture(t)
	s := f.session(t)

	_, err := s.Resolve(context.Background())
	assert.ErrorIs(t, err, kerrors.ErrNotInitialized)
	assert.NotErrorIs(t, err, kerrors.ErrAccessDenied)
}

func TestResolveWithoutRepository(t *testing.T) {
	s, err := NewSession(Options{User: configs.NewUserPaths(t.TempDir())})
	require.NoError(t, err)

	_, err = s.Resolve(context.Background())
	assert.ErrorIs(t, err, kerrors.ErrNotGitRepository)
}

func TestResolveLegacyKeyWithoutStore(t *testing.T) {
	f := newFixture(t)
	s := f.session(t)

	raw := bytes.Repeat([]byte{0x42}, secrets.KeySize)
	require.NoError(t, os.MkdirAll(s.Repo.ArcaneDir, 0o700))
	require.NoError(t, os.WriteFile(s.Repo.LegacyKeyFile, raw, 0o600))

	res, err := s.Resolve(context.Background())
	require.NoError(t, err)
	defer res.Destroy()
	assert.True(t, res.Legacy)
	assert.Equal(t, raw, res.Key.Bytes())
}

func TestResolveMaster(t *testing.T) {
	f := newFixture(t)
	s := f.session(t)
	master, err := s.CreateMaster()
	require.NoError(t, err)

	key := newKey(t)
	f.grant(t, s, "owner.age", key, master)

	res, err := s.Resolve(context.Background())
	require.NoError(t, err)
	defer res.Destroy()
	assert.True(t, key.Equal(res.Key))
	assert.Equal(t, identity.Master, res.Via.Class)
	assert.False(t, res.Historical())
}

func TestResolveAccessDeniedForStranger(t *testing.T) {
	f := newFixture(t)
	s := f.session(t)
	_, err := s.CreateMaster()
	require.NoError(t, err)

	f.grant(t, s, "someone.age", newKey(t), newID(t, identity.Master))

	_, err = s.Resolve(context.Background())
	assert.ErrorIs(t, err, kerrors.ErrAccessDenied)
}

func TestResolveAccessDeniedWithoutIdentities(t *testing.T) {
	f := newFixture(t)
	s := f.session(t)
	f.grant(t, s, "someone.age", newKey(t), newID(t, identity.Master))

	_, err := s.Resolve(context.Background())
	assert.ErrorIs(t, err, kerrors.ErrAccessDenied)
}

func TestResolveImported(t *testing.T) {
	f := newFixture(t)
	legacy := newID(t, identity.Imported)
	dir := configs.NewUserPaths(f.home).ImportedKeysDir
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seal.age"), []byte("# git-seal\n"+legacy.Secret()+"\n"), 0o600))

	s := f.session(t)
	require.Len(t, s.Imported, 1)

	key := newKey(t)
	f.grant(t, s, "seal.age", key, legacy)

	res, err := s.Resolve(context.Background())
	require.NoError(t, err)
	defer res.Destroy()
	assert.True(t, key.Equal(res.Key))
	assert.Equal(t, identity.Imported, res.Via.Class)
}

func TestResolveMachineHasPriority(t *testing.T) {
	f := newFixture(t)
	machine := newID(t, identity.Machine)
	f.env[MachineKeyEnv] = machine.Secret()

	s := f.session(t)
	require.NotNil(t, s.Machine)
	master, err := s.CreateMaster()
	require.NoError(t, err)

	key := newKey(t)
	f.grant(t, s, "owner.age", key, master)
	f.grant(t, s, keystore.MachineFile(machine.Fingerprint()), key, machine)

	res, err := s.Resolve(context.Background())
	require.NoError(t, err)
	defer res.Destroy()
	assert.Equal(t, identity.Machine, res.Via.Class)
	assert.True(t, key.Equal(res.Key))
}

func TestResolveMachineIgnoresDirectEnvelopes(t *testing.T) {
	f := newFixture(t)
	machine := newID(t, identity.Machine)
	f.env[MachineKeyEnv] = machine.Secret()
	s := f.session(t)

	// A direct envelope addressed to the machine key is not a machine grant.
	f.grant(t, s, "ci.age", newKey(t), machine)

	_, err := s.Resolve(context.Background())
	assert.ErrorIs(t, err, kerrors.ErrAccessDenied)
}

func TestMalformedMachineKeyIsSkipped(t *testing.T) {
	f := newFixture(t)
	f.env[MachineKeyEnv] = "not-a-key"
	s := f.session(t)
	assert.Nil(t, s.Machine)
}

func TestResolveTeam(t *testing.T) {
	f := newFixture(t)
	s := f.session(t)
	_, err := s.CreateMaster()
	require.NoError(t, err)

	team, err := identity.Generate(identity.Team, "backend")
	require.NoError(t, err)
	_, err = s.SaveTeam(team, false)
	require.NoError(t, err)

	key := newKey(t)
	f.grant(t, s, keystore.TeamFile("backend"), key, team)
	f.grant(t, s, keystore.TeamFile("unknown"), newKey(t), newID(t, identity.Team))

	res, err := s.Resolve(context.Background())
	require.NoError(t, err)
	defer res.Destroy()
	assert.Equal(t, identity.Team, res.Via.Class)
	assert.Equal(t, "backend", res.Via.Name)
	assert.True(t, key.Equal(res.Key))
}

func TestLoadTeamRejectsNonIdentityPayload(t *testing.T) {
	f := newFixture(t)
	s := f.session(t)
	master, err := s.CreateMaster()
	require.NoError(t, err)

	blob, err := envelope.Wrap(bytes.Repeat([]byte{1}, 32), master.Recipient())
	require.NoError(t, err)
	require.NoError(t, configs.WriteFileAtomic(s.User.TeamKeyFile("raw"), blob, 0o600))

	_, err = s.LoadTeam("raw")
	assert.ErrorIs(t, err, kerrors.ErrInvalidKeyLength)

	_, err = s.LoadTeam("missing")
	assert.ErrorIs(t, err, kerrors.ErrTeamNotFound)
}

func TestSaveTeamOverwritePolicy(t *testing.T) {
	f := newFixture(t)
	s := f.session(t)
	_, err := s.CreateMaster()
	require.NoError(t, err)

	first, err := identity.Generate(identity.Team, "ops")
	require.NoError(t, err)
	second, err := identity.Generate(identity.Team, "ops")
	require.NoError(t, err)

	_, err = s.SaveTeam(first, false)
	require.NoError(t, err)
	_, err = s.SaveTeam(second, false)
	assert.ErrorIs(t, err, kerrors.ErrAlreadyExists)

	_, err = s.SaveTeam(second, true)
	require.NoError(t, err)
	loaded, err := s.LoadTeam("ops")
	require.NoError(t, err)
	assert.Equal(t, second.PublicKey(), loaded.PublicKey())

	names, err := s.Teams()
	require.NoError(t, err)
	assert.Equal(t, []string{"ops"}, names)
	assert.True(t, s.HasTeam("ops"))
}

func TestSaveTeamRequiresMaster(t *testing.T) {
	s := newFixture(t).session(t)
	team, err := identity.Generate(identity.Team, "ops")
	require.NoError(t, err)

	_, err = s.SaveTeam(team, false)
	assert.ErrorIs(t, err, kerrors.ErrMasterIdentityRequired)
}

func TestResolveHistory(t *testing.T) {
	f := newFixture(t)
	s := f.session(t)
	master, err := s.CreateMaster()
	require.NoError(t, err)

	oldKey := newKey(t)
	f.grant(t, s, "owner.age", oldKey, master)
	_, err = s.Store.Snapshot(time.Unix(1700000000, 0))
	require.NoError(t, err)
	_, err = s.Store.RemoveLiveEnvelopes()
	require.NoError(t, err)

	// The current era belongs to somebody else.
	f.grant(t, s, "other.age", newKey(t), newID(t, identity.Master))

	_, err = s.ResolveCurrent(context.Background())
	assert.ErrorIs(t, err, kerrors.ErrAccessDenied)

	res, err := s.Resolve(context.Background())
	require.NoError(t, err)
	defer res.Destroy()
	assert.True(t, oldKey.Equal(res.Key))
	assert.Equal(t, "1700000000", res.Era)
	assert.True(t, res.Historical())

	keys, err := s.HistoryKeys(context.Background())
	require.NoError(t, err)
	require.Len(t, keys, 1)
	keys[0].Destroy()
}

func TestResolveHistoryNewestFirst(t *testing.T) {
	f := newFixture(t)
	s := f.session(t)
	master, err := s.CreateMaster()
	require.NoError(t, err)

	first, second := newKey(t), newKey(t)
	f.grant(t, s, "owner.age", first, master)
	_, err = s.Store.Snapshot(time.Unix(1000, 0))
	require.NoError(t, err)
	f.grant(t, s, "owner.age", second, master)
	_, err = s.Store.Snapshot(time.Unix(2000, 0))
	require.NoError(t, err)
	_, err = s.Store.RemoveLiveEnvelopes()
	require.NoError(t, err)

	res, err := s.Resolve(context.Background())
	require.NoError(t, err)
	defer res.Destroy()
	assert.True(t, second.Equal(res.Key))
	assert.Equal(t, "2000", res.Era)
}

func TestResolveHonoursCancellation(t *testing.T) {
	f := newFixture(t)
	s := f.session(t)
	f.grant(t, s, "someone.age", newKey(t), newID(t, identity.Master))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Resolve(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCreateMasterRefusesExisting(t *testing.T) {
	f := newFixture(t)
	s := f.session(t)
	_, err := s.CreateMaster()
	require.NoError(t, err)

	_, err = s.CreateMaster()
	assert.ErrorIs(t, err, kerrors.ErrIdentityExists)

	again := f.session(t)
	require.NotNil(t, again.Master)
	assert.Equal(t, s.Master.PublicKey(), again.Master.PublicKey())
}
