package workflows

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/arcanehq/arcane/internal/audit"
	"github.com/arcanehq/arcane/internal/configs"
	kerrors "github.com/arcanehq/arcane/internal/errors"
	"github.com/arcanehq/arcane/internal/envelope"
	"github.com/arcanehq/arcane/internal/keyring"
	"github.com/arcanehq/arcane/internal/secrets"
)

const backupSuffix = ".bak.age"

// Snapshot is one encrypted backup written by the clean filter.
type Snapshot struct {
	// Name is the backup's file name, used to restore it.
	Name string

	// File is the flattened path of the backed up file.
	File string

	Time time.Time
	Size int64
	Path string
}

// ListSnapshots returns the backups of the current repository, newest
// first.
func ListSnapshots(_ context.Context, s *keyring.Session) ([]Snapshot, error) {
	if err := s.RequireRepo(); err != nil {
		return nil, err
	}
	dirEntries, err := os.ReadDir(s.Repo.BackupsDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading backups: %w", err)
	}

	var snapshots []Snapshot
	for _, de := range dirEntries {
		if !de.Type().IsRegular() {
			continue
		}
		file, ts, ok := parseBackupName(de.Name())
		if !ok {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		snapshots = append(snapshots, Snapshot{
			Name: de.Name(),
			File: file,
			Time: time.Unix(ts, 0).UTC(),
			Size: info.Size(),
			Path: filepath.Join(s.Repo.BackupsDir, de.Name()),
		})
	}
	sort.SliceStable(snapshots, func(i, j int) bool {
		if !snapshots[i].Time.Equal(snapshots[j].Time) {
			return snapshots[i].Time.After(snapshots[j].Time)
		}
		return snapshots[i].Name < snapshots[j].Name
	})
	return snapshots, nil
}

// parseBackupName splits <safe>.<unix-ts>.bak.age.
func parseBackupName(name string) (string, int64, bool) {
	stem, ok := strings.CutSuffix(name, backupSuffix)
	if !ok {
		return "", 0, false
	}
	i := strings.LastIndexByte(stem, '.')
	if i <= 0 {
		return "", 0, false
	}
	ts, err := strconv.ParseInt(stem[i+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return stem[:i], ts, true
}

// RestoreSnapshotOptions configures restoring a backup.
type RestoreSnapshotOptions struct {
	// Name is the backup file name as listed by ListSnapshots.
	Name string

	// Target is where the plaintext is written, relative to the repository
	// root unless absolute. It must stay inside the repository.
	Target string
}

// RestoreSnapshotResult contains the outcome of a restore.
type RestoreSnapshotResult struct {
	Target string
	Bytes  int
}

// RestoreSnapshot decrypts a backup with the master identity and writes it
// to Target.
//
// Returns ErrSnapshotNotFound for unknown names and ErrPathOutsideRepository
// when Target escapes the repository.
func RestoreSnapshot(_ context.Context, s *keyring.Session, opts RestoreSnapshotOptions) (*RestoreSnapshotResult, error) {
	if err := s.RequireRepo(); err != nil {
		return nil, err
	}
	if opts.Name == "" || opts.Name != filepath.Base(opts.Name) {
		return nil, fmt.Errorf("%w: %q", kerrors.ErrSnapshotNotFound, opts.Name)
	}
	if _, _, ok := parseBackupName(opts.Name); !ok {
		return nil, fmt.Errorf("%w: %q", kerrors.ErrSnapshotNotFound, opts.Name)
	}
	target, err := insideRepo(s.Repo.Root, opts.Target)
	if err != nil {
		return nil, err
	}
	master, err := s.RequireMaster()
	if err != nil {
		return nil, err
	}

	blob, err := os.ReadFile(filepath.Join(s.Repo.BackupsDir, opts.Name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrSnapshotNotFound, opts.Name)
	}
	if err != nil {
		return nil, err
	}
	plaintext, err := envelope.Unwrap(blob, master.AgeIdentity())
	if err != nil {
		return nil, fmt.Errorf("decrypting %s: %w", opts.Name, err)
	}
	defer secrets.Zero(plaintext)

	if err := configs.WriteFileAtomic(target, plaintext, 0o600); err != nil {
		return nil, fmt.Errorf("writing %s: %w", target, err)
	}

	rel, _ := filepath.Rel(s.Repo.Root, target)
	record(s, audit.Entry{Operation: "restore", Files: []string{filepath.ToSlash(rel)}})
	return &RestoreSnapshotResult{Target: target, Bytes: len(plaintext)}, nil
}

// insideRepo resolves target against root and rejects paths that leave it.
func insideRepo(root, target string) (string, error) {
	if target == "" {
		return "", fmt.Errorf("%w: empty target", kerrors.ErrPathOutsideRepository)
	}
	abs := target
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, target)
	}
	abs = filepath.Clean(abs)

	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", kerrors.ErrPathOutsideRepository, target)
	}
	if first := strings.Split(filepath.ToSlash(rel), "/")[0]; first == ".git" {
		return "", fmt.Errorf("%w: %s is inside .git", kerrors.ErrPathOutsideRepository, target)
	}
	return abs, nil
}
