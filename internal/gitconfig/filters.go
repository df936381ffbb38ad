package gitconfig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

const (
	// FilterName is the git filter driver arcane registers.
	FilterName = "git-arcane"

	// LegacyFilterName is the filter used by repositories created with git-seal.
	LegacyFilterName = "git-seal"
)

// Runner executes git. dir is the working directory; empty means the
// current one.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) ([]byte, error)
}

// ExecRunner runs the git binary found on PATH.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return out, fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// Setting is one git config key and value.
type Setting struct {
	Key   string
	Value string
}

// FilterSettings returns the clean, smudge and required settings that route
// files through exe for the named filter driver.
func FilterSettings(name, exe string) []Setting {
	return []Setting{
		{"filter." + name + ".clean", shellQuote(exe) + " clean %f"},
		{"filter." + name + ".smudge", shellQuote(exe) + " smudge"},
		{"filter." + name + ".required", "true"},
	}
}

// shellQuote single-quotes s for the shell git runs filter commands in.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// ConfigureRepo writes the git-arcane filter into the repository's config.
func ConfigureRepo(ctx context.Context, r Runner, root, exe string) error {
	for _, s := range FilterSettings(FilterName, exe) {
		if _, err := r.Run(ctx, root, "config", s.Key, s.Value); err != nil {
			return fmt.Errorf("failed to configure %s: %w", s.Key, err)
		}
	}
	return nil
}

// ConfigureGlobal writes the git-arcane filter, and the git-seal alias for
// legacy repositories, into the user's global git config. It returns the
// keys that were set before the first failure.
func ConfigureGlobal(ctx context.Context, r Runner, exe string) ([]string, error) {
	settings := append(FilterSettings(FilterName, exe), FilterSettings(LegacyFilterName, exe)...)
	var done []string
	for _, s := range settings {
		if _, err := r.Run(ctx, "", "config", "--global", s.Key, s.Value); err != nil {
			return done, fmt.Errorf("failed to configure %s: %w", s.Key, err)
		}
		done = append(done, s.Key)
	}
	return done, nil
}

// Get reads a git config value as seen from root. A missing key yields "".
func Get(ctx context.Context, r Runner, root, key string) (string, error) {
	out, err := r.Run(ctx, root, "config", "--get", key)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
