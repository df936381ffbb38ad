package envelope

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/arcanehq/arcane/internal/errors"
	"github.com/arcanehq/arcane/internal/identity"
	"github.com/arcanehq/arcane/internal/secrets"
)

func newIdentity(t *testing.T) *identity.Identity {
	t.Helper()
	id, err := identity.Generate(identity.Master, "")
	require.NoError(t, err)
	return id
}

func TestWrapUnwrap(t *testing.T) {
	alice := newIdentity(t)

	blob, err := Wrap([]byte("team secret"), alice.Recipient())
	require.NoError(t, err)
	assert.NotContains(t, string(blob), "team secret")

	got, err := Unwrap(blob, alice.AgeIdentity())
	require.NoError(t, err)
	assert.Equal(t, []byte("team secret"), got)
}

func TestUnwrapWrongRecipient(t *testing.T) {
	alice, bob := newIdentity(t), newIdentity(t)

	blob, err := Wrap([]byte("x"), alice.Recipient())
	require.NoError(t, err)

	_, err = Unwrap(blob, bob.AgeIdentity())
	assert.ErrorIs(t, err, kerrors.ErrNoMatchingRecipient)
}

func TestUnwrapTriesEveryIdentity(t *testing.T) {
	alice, bob := newIdentity(t), newIdentity(t)

	blob, err := Wrap([]byte("x"), bob.Recipient())
	require.NoError(t, err)

	got, err := Unwrap(blob, alice.AgeIdentity(), bob.AgeIdentity())
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)
}

func TestUnwrapGarbage(t *testing.T) {
	_, err := Unwrap([]byte("definitely not age"), newIdentity(t).AgeIdentity())
	require.Error(t, err)
	assert.ErrorIs(t, err, kerrors.ErrInvalidFormat)
	assert.NotErrorIs(t, err, kerrors.ErrNoMatchingRecipient)
}

func TestWrapWithoutRecipients(t *testing.T) {
	_, err := Wrap([]byte("x"))
	assert.Error(t, err)
}

func TestRepoKeyEnvelope(t *testing.T) {
	alice := newIdentity(t)
	key, err := secrets.GenerateRepoKey()
	require.NoError(t, err)
	defer key.Destroy()

	blob, err := WrapRepoKey(key, alice.Recipient())
	require.NoError(t, err)

	got, err := UnwrapRepoKey(blob, alice.AgeIdentity())
	require.NoError(t, err)
	defer got.Destroy()
	assert.True(t, key.Equal(got))
}

func TestUnwrapRepoKeyRejectsWrongLength(t *testing.T) {
	alice := newIdentity(t)

	blob, err := Wrap(bytes.Repeat([]byte{1}, 16), alice.Recipient())
	require.NoError(t, err)

	_, err = UnwrapRepoKey(blob, alice.AgeIdentity())
	assert.ErrorIs(t, err, kerrors.ErrInvalidKeyLength)
}
