package workflows

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/arcanehq/arcane/internal/errors"
	"github.com/arcanehq/arcane/internal/keystore"
	"github.com/arcanehq/arcane/internal/secrets"
)

func TestCleanSmudgeRoundTrip(t *testing.T) {
	f := newFixture(t)
	s := f.initialized(t)

	blob := clean(t, s, "app.txt", "SECRET=abc123\n")
	assert.True(t, bytes.HasPrefix(blob, secrets.Header))
	assert.NotContains(t, string(blob), "abc123")

	out, res, err := smudge(s, blob)
	require.NoError(t, err)
	assert.Equal(t, "SECRET=abc123\n", out)
	assert.False(t, res.PassedThrough)
	assert.Empty(t, res.Era)
}

func TestCleanIsNotDeterministic(t *testing.T) {
	f := newFixture(t)
	s := f.initialized(t)

	a := clean(t, s, "app.txt", "SECRET=abc123\n")
	b := clean(t, s, "app.txt", "SECRET=abc123\n")
	assert.NotEqual(t, a, b)
}

func TestCleanPassesSealedContentThrough(t *testing.T) {
	f := newFixture(t)
	s := f.initialized(t)

	blob := clean(t, s, "app.txt", "TOKEN=x\n")
	var out bytes.Buffer
	res, err := Clean(context.Background(), s, CleanOptions{In: bytes.NewReader(blob), Out: &out})
	require.NoError(t, err)
	assert.True(t, res.PassedThrough)
	assert.Equal(t, blob, out.Bytes())
}

func TestCleanInitializesOnTheFly(t *testing.T) {
	f := newFixture(t)
	s := f.owner(t)

	var out bytes.Buffer
	res, err := Clean(context.Background(), s, CleanOptions{File: "app.txt", In: strings.NewReader("A=1\n"), Out: &out})
	require.NoError(t, err)
	assert.True(t, res.Initialized)
	assert.True(t, s.Store.Has(keystore.DirectFile(DefaultOwnerAlias)))
	assert.NoFileExists(t, filepath.Join(f.repo, ".gitattributes"))

	plain, _, err := smudge(s, out.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "A=1\n", plain)
}

func TestCleanWithoutIdentityFails(t *testing.T) {
	f := newFixture(t)
	s := f.session(t)

	var out bytes.Buffer
	_, err := Clean(context.Background(), s, CleanOptions{In: strings.NewReader("A=1\n"), Out: &out})
	assert.ErrorIs(t, err, kerrors.ErrMasterIdentityRequired)
	assert.Zero(t, out.Len())
}

func TestCleanWithoutAccessFails(t *testing.T) {
	f := newFixture(t)
	f.initialized(t)
	_, bob := f.newUser(t)

	var out bytes.Buffer
	_, err := Clean(context.Background(), bob, CleanOptions{In: strings.NewReader("A=1\n"), Out: &out})
	assert.ErrorIs(t, err, kerrors.ErrAccessDenied)
}

func TestCleanBacksUpEnvFiles(t *testing.T) {
	f := newFixture(t)
	s := f.initialized(t)

	var out bytes.Buffer
	res, err := Clean(context.Background(), s, CleanOptions{
		File: "config/.env",
		In:   strings.NewReader("DB_PASSWORD=hunter2\n"),
		Out:  &out,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Backup)
	assert.Equal(t, filepath.Join(s.Repo.BackupsDir, "config_.env.1700000000.bak.age"), res.Backup)

	data, err := os.ReadFile(res.Backup)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hunter2")

	snapshots, err := ListSnapshots(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, "config_.env", snapshots[0].File)
	assert.Equal(t, int64(1700000000), snapshots[0].Time.Unix())

	restored, err := RestoreSnapshot(context.Background(), s, RestoreSnapshotOptions{
		Name:   snapshots[0].Name,
		Target: "config/.env.restored",
	})
	require.NoError(t, err)
	assert.Equal(t, len("DB_PASSWORD=hunter2\n"), restored.Bytes)

	plain, err := os.ReadFile(filepath.Join(f.repo, "config", ".env.restored"))
	require.NoError(t, err)
	assert.Equal(t, "DB_PASSWORD=hunter2\n", string(plain))
}

func TestCleanSkipsBackup(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		enabled bool
	}{
		{"not an env file", "config/settings.json", true},
		{"no file name", "", true},
		{"backups disabled", ".env", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.cfg.Backup.Enabled = tt.enabled
			s := f.initialized(t)

			var out bytes.Buffer
			res, err := Clean(context.Background(), s, CleanOptions{File: tt.file, In: strings.NewReader("A=1\n"), Out: &out})
			require.NoError(t, err)
			assert.Empty(t, res.Backup)
			assert.NoDirExists(t, s.Repo.BackupsDir)
		})
	}
}

func TestRestoreSnapshotRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	s := f.initialized(t)
	clean(t, s, ".env", "A=1\n")

	snapshots, err := ListSnapshots(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	name := snapshots[0].Name

	tests := []struct {
		name    string
		opts    RestoreSnapshotOptions
		wantErr error
	}{
		{"parent directory", RestoreSnapshotOptions{Name: name, Target: "../x"}, kerrors.ErrPathOutsideRepository},
		{"inside .git", RestoreSnapshotOptions{Name: name, Target: ".git/x"}, kerrors.ErrPathOutsideRepository},
		{"repository root", RestoreSnapshotOptions{Name: name, Target: "."}, kerrors.ErrPathOutsideRepository},
		{"no target", RestoreSnapshotOptions{Name: name}, kerrors.ErrPathOutsideRepository},
		{"unknown snapshot", RestoreSnapshotOptions{Name: "x.1.bak.age", Target: "x"}, kerrors.ErrSnapshotNotFound},
		{"path as name", RestoreSnapshotOptions{Name: "../" + name, Target: "x"}, kerrors.ErrSnapshotNotFound},
		{"not a backup", RestoreSnapshotOptions{Name: "notes.txt", Target: "x"}, kerrors.ErrSnapshotNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RestoreSnapshot(context.Background(), s, tt.opts)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestListSnapshotsNewestFirst(t *testing.T) {
	f := newFixture(t)
	s := f.initialized(t)

	clean(t, s, ".env", "A=1\n")
	f.now = f.now.Add(time.Minute)
	clean(t, s, "api/.env.production", "A=2\n")

	require.NoError(t, os.WriteFile(filepath.Join(s.Repo.BackupsDir, "junk.txt"), []byte("x"), 0o600))

	snapshots, err := ListSnapshots(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.Equal(t, "api_.env.production", snapshots[0].File)
	assert.Equal(t, ".env", snapshots[1].File)
}

func TestParseBackupName(t *testing.T) {
	file, ts, ok := parseBackupName("a.b_.env.1700000000.bak.age")
	assert.True(t, ok)
	assert.Equal(t, "a.b_.env", file)
	assert.Equal(t, int64(1700000000), ts)

	for _, name := range []string{"x.bak.age", ".env.bak.age", "x.abc.bak.age", "x.1.age"} {
		_, _, ok := parseBackupName(name)
		assert.False(t, ok, name)
	}
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "config_.env", SafeName("config/.env"))
	assert.Equal(t, "a_b_.env", SafeName(`a\b/.env`))
	assert.Equal(t, ".env", SafeName(".env"))
}

func TestSmudgePassesPlainContentThrough(t *testing.T) {
	f := newFixture(t)
	s := f.session(t)

	out, res, err := smudge(s, []byte("PLAIN=1\n"))
	require.NoError(t, err)
	assert.True(t, res.PassedThrough)
	assert.Equal(t, "PLAIN=1\n", out)
}

func TestSmudgeWithoutAccess(t *testing.T) {
	f := newFixture(t)
	owner := f.initialized(t)
	blob := clean(t, owner, "app.txt", "A=1\n")
	_, bob := f.newUser(t)

	_, _, err := smudge(bob, blob)
	assert.ErrorIs(t, err, kerrors.ErrAccessDenied)
}

func TestSmudgeUninitialized(t *testing.T) {
	f := newFixture(t)
	owner := f.initialized(t)
	blob := clean(t, owner, "app.txt", "A=1\n")

	other := newFixture(t)
	_, _, err := smudge(other.owner(t), blob)
	assert.ErrorIs(t, err, kerrors.ErrNotInitialized)
}

func TestSmudgeWrongKey(t *testing.T) {
	f := newFixture(t)
	blob := clean(t, f.initialized(t), "app.txt", "A=1\n")

	other := newFixture(t)
	_, _, err := smudge(other.initialized(t), blob)
	assert.ErrorIs(t, err, kerrors.ErrDecryptionFailure)
}

func TestSmudgeUsesHistoryAfterRotate(t *testing.T) {
	f := newFixture(t)
	s := f.initialized(t)
	blob := clean(t, s, "app.txt", "OLD=1\n")

	_, err := Rotate(context.Background(), s, RotateOptions{Keep: []string{DefaultOwnerAlias}})
	require.NoError(t, err)

	out, res, err := smudge(s, blob)
	require.NoError(t, err)
	assert.Equal(t, "OLD=1\n", out)
	assert.Equal(t, "1700000000", res.Era)

	fresh := clean(t, s, "app.txt", "NEW=1\n")
	out, res, err = smudge(s, fresh)
	require.NoError(t, err)
	assert.Equal(t, "NEW=1\n", out)
	assert.Empty(t, res.Era)
}
