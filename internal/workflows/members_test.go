package workflows

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/arcanehq/arcane/internal/errors"
	"github.com/arcanehq/arcane/internal/identity"
	"github.com/arcanehq/arcane/internal/keystore"
)

func TestAddMemberGrantsAccess(t *testing.T) {
	f := newFixture(t)
	owner := f.initialized(t)
	_, bob := f.newUser(t)

	result, err := AddMember(context.Background(), owner, AddMemberOptions{Alias: "bob", PublicKey: bob.Master.PublicKey()})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(owner.Store.Dir, "bob.age"), result.EnvelopePath)
	assert.Equal(t, bob.Master.Fingerprint(), result.Fingerprint)

	ownerKey, err := owner.ResolveCurrent(context.Background())
	require.NoError(t, err)
	defer ownerKey.Destroy()
	bobKey, err := bob.ResolveCurrent(context.Background())
	require.NoError(t, err)
	defer bobKey.Destroy()

	assert.True(t, ownerKey.Key.Equal(bobKey.Key))
	assert.Equal(t, result.EnvelopePath, bobKey.Envelope)
}

func TestAddMemberWithoutAccessChangesNothing(t *testing.T) {
	f := newFixture(t)
	f.initialized(t)
	_, bob := f.newUser(t)
	_, carol := f.newUser(t)

	_, err := AddMember(context.Background(), bob, AddMemberOptions{Alias: "carol", PublicKey: carol.Master.PublicKey()})
	assert.ErrorIs(t, err, kerrors.ErrAccessDenied)
	assert.False(t, bob.Store.Has("carol.age"))
	assert.False(t, bob.Store.Has("carol.pub"))
}

func TestAddMemberUninitialized(t *testing.T) {
	f := newFixture(t)
	s := f.owner(t)

	_, err := AddMember(context.Background(), s, AddMemberOptions{Alias: "bob", PublicKey: s.Master.PublicKey()})
	assert.ErrorIs(t, err, kerrors.ErrNotInitialized)
}

func TestAddMemberValidation(t *testing.T) {
	f := newFixture(t)
	owner := f.initialized(t)
	_, bob := f.newUser(t)
	pk := bob.Master.PublicKey()

	_, err := AddMember(context.Background(), owner, AddMemberOptions{Alias: "team:ops", PublicKey: pk})
	assert.ErrorIs(t, err, kerrors.ErrInvalidAlias)

	_, err = AddMember(context.Background(), owner, AddMemberOptions{Alias: "history", PublicKey: pk})
	assert.ErrorIs(t, err, kerrors.ErrInvalidAlias)

	_, err = AddMember(context.Background(), owner, AddMemberOptions{Alias: "bob", PublicKey: "age1notakey"})
	assert.ErrorIs(t, err, kerrors.ErrInvalidPublicKey)

	_, err = AddMember(context.Background(), owner, AddMemberOptions{Alias: "owner", PublicKey: pk})
	assert.ErrorIs(t, err, kerrors.ErrAlreadyExists)
}

func TestRemoveMember(t *testing.T) {
	f := newFixture(t)
	owner := f.initialized(t)
	_, bob := f.newUser(t)

	_, err := AddMember(context.Background(), owner, AddMemberOptions{Alias: "bob", PublicKey: bob.Master.PublicKey()})
	require.NoError(t, err)

	result, err := RemoveMember(context.Background(), owner, RemoveMemberOptions{Alias: "bob"})
	require.NoError(t, err)
	assert.Equal(t, []string{"bob.age", "bob.pub"}, result.Removed)

	_, err = bob.ResolveCurrent(context.Background())
	assert.ErrorIs(t, err, kerrors.ErrAccessDenied)

	_, err = RemoveMember(context.Background(), owner, RemoveMemberOptions{Alias: "bob"})
	assert.ErrorIs(t, err, kerrors.ErrMemberNotFound)
}

func TestListMembers(t *testing.T) {
	f := newFixture(t)
	owner := f.initialized(t)

	machine, err := GenerateMachine(context.Background(), GenerateMachineOptions{Label: "ci"})
	require.NoError(t, err)
	_, err = WhitelistMachine(context.Background(), owner, WhitelistMachineOptions{PublicKey: machine.PublicKey})
	require.NoError(t, err)

	result, err := ListMembers(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, result.Members, 2)

	byKind := map[keystore.Kind]Member{}
	for _, m := range result.Members {
		byKind[m.Kind] = m
	}
	assert.Equal(t, "owner", byKind[keystore.Direct].Name)
	assert.Equal(t, owner.Master.PublicKey(), byKind[keystore.Direct].PublicKey)
	assert.Equal(t, machine.Fingerprint, byKind[keystore.MachineGrant].Name)
	assert.Zero(t, result.Eras)

	_, err = ListMembers(context.Background(), newFixture(t).session(t))
	assert.ErrorIs(t, err, kerrors.ErrNotInitialized)
}

func TestGenerateMachine(t *testing.T) {
	result, err := GenerateMachine(context.Background(), GenerateMachineOptions{Label: "Build Runner"})
	require.NoError(t, err)
	assert.Equal(t, "build-runner", result.Label)

	id, err := identity.Parse(identity.Machine, "", result.Secret)
	require.NoError(t, err)
	assert.Equal(t, result.PublicKey, id.PublicKey())
	assert.Equal(t, result.Fingerprint, id.Fingerprint())
	assert.Len(t, result.Fingerprint, identity.FingerprintLen)

	unlabeled, err := GenerateMachine(context.Background(), GenerateMachineOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, unlabeled.Label)
}

func TestWhitelistMachine(t *testing.T) {
	f := newFixture(t)
	owner := f.initialized(t)

	machine, err := GenerateMachine(context.Background(), GenerateMachineOptions{Label: "ci"})
	require.NoError(t, err)

	result, err := WhitelistMachine(context.Background(), owner, WhitelistMachineOptions{PublicKey: machine.PublicKey})
	require.NoError(t, err)
	assert.False(t, result.Replaced)
	assert.Equal(t, filepath.Join(owner.Store.Dir, "machine:"+machine.Fingerprint+".age"), result.EnvelopePath)

	_, err = WhitelistMachine(context.Background(), owner, WhitelistMachineOptions{PublicKey: machine.PublicKey})
	assert.ErrorIs(t, err, kerrors.ErrAlreadyExists)

	result, err = WhitelistMachine(context.Background(), owner, WhitelistMachineOptions{PublicKey: machine.PublicKey, Force: true})
	require.NoError(t, err)
	assert.True(t, result.Replaced)

	// A CI runner has no master identity, only the environment variable.
	f.env["ARCANE_MACHINE_KEY"] = machine.Secret
	ci := f.sessionFor(t, t.TempDir())
	require.Nil(t, ci.Master)

	res, err := ci.ResolveCurrent(context.Background())
	require.NoError(t, err)
	defer res.Destroy()
	assert.Equal(t, identity.Machine, res.Via.Class)

	ownerKey, err := owner.ResolveCurrent(context.Background())
	require.NoError(t, err)
	defer ownerKey.Destroy()
	assert.True(t, ownerKey.Key.Equal(res.Key))
}
