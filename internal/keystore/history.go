package keystore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	kerrors "github.com/arcanehq/arcane/internal/errors"
)

// Snapshot copies every regular file of the live store into
// history/<unix-ts>/ and returns that directory. Nothing is deleted. If any
// copy fails the partial snapshot is removed and an error is returned, so
// callers can abort before touching the live store.
func (s *Store) Snapshot(at time.Time) (string, error) {
	dest := filepath.Join(s.HistoryDir, strconv.FormatInt(at.Unix(), 10))
	if err := os.MkdirAll(s.HistoryDir, 0o700); err != nil {
		return "", err
	}
	if err := os.Mkdir(dest, 0o700); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: history snapshot %s", kerrors.ErrAlreadyExists, dest)
		}
		return "", err
	}

	dirEntries, err := os.ReadDir(s.Dir)
	if err != nil {
		os.RemoveAll(dest)
		return "", err
	}
	for _, de := range dirEntries {
		if !de.Type().IsRegular() {
			continue
		}
		if err := copyFile(filepath.Join(s.Dir, de.Name()), filepath.Join(dest, de.Name())); err != nil {
			os.RemoveAll(dest)
			return "", fmt.Errorf("failed to snapshot %s: %w", de.Name(), err)
		}
	}
	return dest, nil
}

// RemoveLiveEnvelopes deletes the .age files of the live store. Public keys
// and history stay in place.
func (s *Store) RemoveLiveEnvelopes() ([]string, error) {
	entries, err := s.Envelopes()
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, e := range entries {
		if err := os.Remove(e.Path); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", e.FileName(), err)
		}
		removed = append(removed, e.FileName())
	}
	return removed, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// ValidateAlias checks a direct member alias.
func ValidateAlias(alias string) error {
	trimmed := strings.TrimSpace(alias)
	switch {
	case trimmed == "", trimmed != alias:
		return fmt.Errorf("%w: %q", kerrors.ErrInvalidAlias, alias)
	case strings.ContainsAny(alias, `/\:`):
		return fmt.Errorf("%w: %q must not contain '/', '\\' or ':'", kerrors.ErrInvalidAlias, alias)
	case alias == historyName || alias == "." || alias == "..":
		return fmt.Errorf("%w: %q is reserved", kerrors.ErrInvalidAlias, alias)
	}
	return nil
}

// ValidateTeamName checks a team name.
func ValidateTeamName(name string) error {
	if strings.TrimSpace(name) == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\:`) {
		return fmt.Errorf("%w: %q", kerrors.ErrInvalidTeamName, name)
	}
	return nil
}
