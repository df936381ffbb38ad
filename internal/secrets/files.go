package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	kerrors "github.com/arcanehq/arcane/internal/errors"
)

// ResolveEnvFiles expands user-provided paths, directories and globs into
// the .env files they name. With no patterns the whole tree under root is
// searched. The .git directory is never entered.
func ResolveEnvFiles(patterns []string, root string) ([]string, error) {
	if len(patterns) == 0 {
		return findEnvFilesInDir(root)
	}

	var files []string
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		resolved, err := resolvePattern(pattern, root)
		if err != nil {
			return nil, err
		}
		for _, f := range resolved {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrFileNotFound, strings.Join(patterns, ", "))
	}
	sort.Strings(files)
	return files, nil
}

func resolvePattern(pattern, root string) ([]string, error) {
	absPattern := pattern
	if !filepath.IsAbs(pattern) {
		absPattern = filepath.Join(root, pattern)
	}

	info, err := os.Stat(absPattern)
	if err == nil && info.IsDir() {
		return findEnvFilesInDir(absPattern)
	}

	if strings.ContainsAny(pattern, "*?[{") {
		matches, err := doublestar.FilepathGlob(absPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		var filtered []string
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || info.IsDir() || isInGitDir(m) {
				continue
			}
			if IsEnvFile(m) {
				filtered = append(filtered, m)
			}
		}
		return filtered, nil
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrFileNotFound, pattern)
	}
	return []string{absPattern}, nil
}

func findEnvFilesInDir(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" || d.Name() == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && IsEnvFile(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// IsEnvFile reports whether path names a dotenv file: .env, .env.local,
// production.env and similar.
func IsEnvFile(path string) bool {
	base := filepath.Base(path)
	return base == ".env" || strings.HasPrefix(base, ".env.") || strings.HasSuffix(base, ".env")
}

func isInGitDir(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".git" {
			return true
		}
	}
	return false
}
