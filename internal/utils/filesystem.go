package utils

import (
	"fmt"
	"os"
	"path/filepath"

	kerrors "github.com/arcanehq/arcane/internal/errors"
)

// FindRepoRoot traverses up from start to find the enclosing git working
// tree. start defaults to the working directory. A directory counts as the
// root when it contains a .git directory; linked worktrees (where .git is a
// file) are not supported. Returns ErrNotGitRepository when the filesystem
// root is reached.
func FindRepoRoot(start string) (string, error) {
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		start = wd
	}

	currentDir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", start, err)
	}

	for {
		fileInfo, err := os.Stat(filepath.Join(currentDir, ".git"))
		if err == nil {
			if fileInfo.IsDir() {
				return currentDir, nil
			}
		} else if !os.IsNotExist(err) {
			// Return any error that's not "file not found" (like permission issues)
			return "", fmt.Errorf("error checking for .git directory at %s: %w", currentDir, err)
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", kerrors.ErrNotGitRepository
		}
		currentDir = parentDir
	}
}
