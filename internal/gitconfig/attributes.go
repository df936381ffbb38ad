package gitconfig

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/arcanehq/arcane/internal/configs"
)

// ManagedHeader introduces the block of .gitattributes lines arcane owns.
const ManagedHeader = "# Auto-committer gitattributes (Managed by Arcane)"

// UpdateAttributes rewrites .gitattributes so that it ends with the managed
// block of patterns. Existing lines that use an arcane or git-seal filter,
// or that repeat one of patterns, are dropped first; all other user lines
// are kept. It reports whether the file changed.
func UpdateAttributes(path string, patterns []string) (bool, error) {
	current, err := readText(path)
	if err != nil {
		return false, err
	}

	desired := make(map[string]bool, len(patterns))
	for _, p := range patterns {
		desired[strings.TrimSpace(p)] = true
	}

	var lines []string
	for _, raw := range strings.Split(current, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "", line == ManagedHeader:
			continue
		case strings.Contains(line, "filter="+FilterName), strings.Contains(line, "filter="+LegacyFilterName):
			continue
		case desired[line]:
			continue
		}
		lines = append(lines, line)
	}

	lines = append(lines, ManagedHeader)
	for _, p := range patterns {
		lines = append(lines, strings.TrimSpace(p))
	}
	updated := strings.Join(lines, "\n") + "\n"

	if updated == current {
		return false, nil
	}
	return true, configs.WriteFileAtomic(path, []byte(updated), 0o644)
}

// HasManagedBlock reports whether .gitattributes routes anything through
// the git-arcane filter.
func HasManagedBlock(path string) (bool, error) {
	content, err := readText(path)
	if err != nil {
		return false, err
	}
	return strings.Contains(content, ManagedHeader) && strings.Contains(content, "filter="+FilterName), nil
}

// EnsureTracked removes lines that exactly match patterns from .gitignore,
// so files that must be encrypted are not silently ignored. It returns the
// patterns that were removed. A missing .gitignore is left alone.
func EnsureTracked(path string, patterns []string) ([]string, error) {
	content, err := readText(path)
	if err != nil || content == "" {
		return nil, err
	}

	remove := make(map[string]bool, len(patterns))
	for _, p := range patterns {
		remove[p] = true
	}

	var kept, removed []string
	for _, line := range strings.Split(strings.TrimSuffix(content, "\n"), "\n") {
		if remove[strings.TrimSpace(line)] {
			removed = append(removed, strings.TrimSpace(line))
			continue
		}
		kept = append(kept, line)
	}
	if len(removed) == 0 {
		return nil, nil
	}

	updated := strings.Join(kept, "\n")
	if updated != "" {
		updated += "\n"
	}
	return removed, configs.WriteFileAtomic(path, []byte(updated), 0o644)
}

// IgnoredPatterns returns the tracked patterns that .gitignore still lists.
func IgnoredPatterns(path string, patterns []string) ([]string, error) {
	content, err := readText(path)
	if err != nil {
		return nil, err
	}
	present := make(map[string]bool)
	for _, line := range strings.Split(content, "\n") {
		present[strings.TrimSpace(line)] = true
	}
	var out []string
	for _, p := range patterns {
		if present[p] {
			out = append(out, p)
		}
	}
	return out, nil
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	return string(data), err
}
