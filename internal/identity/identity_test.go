package identity

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/arcanehq/arcane/internal/errors"
)

func TestGenerateAndParse(t *testing.T) {
	id, err := Generate(Master, "owner")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(id.Secret(), "AGE-SECRET-KEY-1"))
	assert.True(t, strings.HasPrefix(id.PublicKey(), "age1"))

	parsed, err := Parse(Imported, "legacy", "  "+id.Secret()+"\n")
	require.NoError(t, err)
	assert.Equal(t, id.PublicKey(), parsed.PublicKey())
	assert.Equal(t, Imported, parsed.Class)
	assert.Equal(t, "imported:legacy", parsed.String())
}

func TestGenerateIsRandom(t *testing.T) {
	a, err := Generate(Machine, "")
	require.NoError(t, err)
	b, err := Generate(Machine, "")
	require.NoError(t, err)
	assert.NotEqual(t, a.PublicKey(), b.PublicKey())
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, input := range []string{"", "not a key", "AGE-SECRET-KEY-1XYZ", "age1qqqq"} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(Master, "", input)
			require.Error(t, err)
			assert.ErrorIs(t, err, kerrors.ErrInvalidIdentity)
		})
	}
}

func TestParseRecipient(t *testing.T) {
	id, err := Generate(Master, "")
	require.NoError(t, err)

	r, err := ParseRecipient(id.PublicKey() + "\n")
	require.NoError(t, err)
	assert.Equal(t, id.PublicKey(), r.String())

	_, err = ParseRecipient(id.Secret())
	assert.ErrorIs(t, err, kerrors.ErrInvalidPublicKey)
}

func TestFingerprint(t *testing.T) {
	a, err := Generate(Machine, "")
	require.NoError(t, err)
	b, err := Generate(Machine, "")
	require.NoError(t, err)

	fp := a.Fingerprint()
	assert.Len(t, fp, FingerprintLen)
	assert.Equal(t, fp, Fingerprint(a.Recipient()), "fingerprint must be deterministic")
	assert.NotEqual(t, fp, b.Fingerprint())
	assert.NotContains(t, fp, ":")
}

func TestClassString(t *testing.T) {
	assert.Equal(t, "master", Master.String())
	assert.Equal(t, "team", Team.String())
	assert.Equal(t, "machine", Machine.String())
	assert.Equal(t, "imported", Imported.String())
	assert.Equal(t, "class(9)", Class(9).String())
}

func TestWriteAndReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".arcane", "identity.age")
	id, err := Generate(Master, "")
	require.NoError(t, err)

	require.NoError(t, WriteFile(path, id))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "# public key: "+id.PublicKey())

	loaded, err := ReadFile(Master, "", path)
	require.NoError(t, err)
	assert.Equal(t, id.PublicKey(), loaded.PublicKey())

	err = WriteFile(path, id)
	assert.ErrorIs(t, err, kerrors.ErrIdentityExists)
}

func TestReadFileWithoutKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.age")
	require.NoError(t, os.WriteFile(path, []byte("# only comments\n\n"), 0o600))

	_, err := ReadFile(Master, "", path)
	assert.ErrorIs(t, err, kerrors.ErrInvalidIdentity)
}

func TestReadDir(t *testing.T) {
	dir := t.TempDir()

	good, err := Generate(Imported, "")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seal.age"), []byte("# legacy\n"+good.Secret()+"\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.age"), []byte("garbage\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(good.Secret()), 0o600))

	ids, skipped, err := ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, "seal", ids[0].Name)
	assert.Equal(t, Imported, ids[0].Class)
	assert.Equal(t, good.PublicKey(), ids[0].PublicKey())
	assert.Contains(t, skipped, "broken.age")

	ids, skipped, err = ReadDir(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Empty(t, skipped)
}
