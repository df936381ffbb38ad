package workflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	kerrors "github.com/arcanehq/arcane/internal/errors"
	"github.com/arcanehq/arcane/internal/gitconfig"
	"github.com/arcanehq/arcane/internal/keyring"
	"github.com/arcanehq/arcane/internal/secrets"
)

// CheckStatus represents the result status of a health check.
type CheckStatus int

const (
	// CheckPass means the check passed.
	CheckPass CheckStatus = iota
	// CheckWarning means the check found a non-critical issue.
	CheckWarning
	// CheckError means the check found a critical issue.
	CheckError
)

// String returns a string representation of CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "pass"
	case CheckWarning:
		return "warning"
	case CheckError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for CheckStatus.
func (s CheckStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// CheckResult holds the result of a single health check.
type CheckResult struct {
	Name       string      `json:"name"`
	Status     CheckStatus `json:"status"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// DoctorResult holds the complete result of the doctor workflow.
type DoctorResult struct {
	Checks      []CheckResult `json:"checks"`
	Summary     DoctorSummary `json:"summary"`
	Suggestions []string      `json:"suggestions,omitempty"`
}

// DoctorSummary holds counts of checks by status.
type DoctorSummary struct {
	Passed   int `json:"passed"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
}

// DoctorOptions configures the doctor workflow.
type DoctorOptions struct {
	// Runner executes git. Defaults to gitconfig.ExecRunner.
	Runner gitconfig.Runner

	// Paths limits the secret file check to these files, directories or
	// doublestar globs, relative to the repository root.
	Paths []string
}

// Doctor runs health checks on the identity and the current repository.
//
// The doctor workflow checks:
//   - Master identity existence and permissions
//   - Repository key store initialization
//   - Access to the repository key
//   - Git filter configuration
//   - The managed .gitattributes block
//   - .gitignore rules hiding secret files from the filter
//   - A leftover plaintext repo.key
//   - Secret files present in the working tree
func Doctor(ctx context.Context, s *keyring.Session, opts DoctorOptions) (*DoctorResult, error) {
	runner := opts.Runner
	if runner == nil {
		runner = gitconfig.ExecRunner{}
	}

	checks := []func() CheckResult{
		func() CheckResult { return checkIdentity(s) },
		func() CheckResult { return checkIdentityPermissions(s) },
	}
	if s.HasRepo() {
		checks = append(checks,
			func() CheckResult { return checkInitialized(s) },
			func() CheckResult { return checkAccess(ctx, s) },
			func() CheckResult { return checkFilterConfig(ctx, s, runner) },
			func() CheckResult { return checkAttributes(s) },
			func() CheckResult { return checkGitignore(s) },
			func() CheckResult { return checkLegacyKey(s) },
			func() CheckResult { return checkEnvFiles(s, opts.Paths) },
		)
	} else {
		checks = append(checks, func() CheckResult {
			return CheckResult{
				Name:       "Repository",
				Status:     CheckWarning,
				Message:    "Not inside a git repository",
				Suggestion: "Run 'arcane doctor' inside a repository to check it",
			}
		})
	}

	var results []CheckResult
	for _, check := range checks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = append(results, check())
	}

	summary := calculateDoctorSummary(results)

	// Collect suggestions (deduplicated).
	var suggestions []string
	seen := make(map[string]bool)
	for _, result := range results {
		if result.Suggestion != "" && result.Status != CheckPass && !seen[result.Suggestion] {
			suggestions = append(suggestions, result.Suggestion)
			seen[result.Suggestion] = true
		}
	}

	return &DoctorResult{
		Checks:      results,
		Summary:     summary,
		Suggestions: suggestions,
	}, nil
}

func checkIdentity(s *keyring.Session) CheckResult {
	if s.Master == nil {
		return CheckResult{
			Name:       "Master identity",
			Status:     CheckError,
			Message:    fmt.Sprintf("No identity at %s", s.User.IdentityFile),
			Suggestion: "Run 'arcane identity new' to create one",
		}
	}
	return CheckResult{
		Name:    "Master identity",
		Status:  CheckPass,
		Message: fmt.Sprintf("Loaded %s", s.Master.PublicKey()),
	}
}

func checkIdentityPermissions(s *keyring.Session) CheckResult {
	// Windows has no meaningful Unix permission bits.
	if s.Master == nil || runtime.GOOS == "windows" {
		return CheckResult{
			Name:    "Identity permissions",
			Status:  CheckPass,
			Message: "Skipped",
		}
	}
	info, err := os.Stat(s.User.IdentityFile)
	if err != nil {
		return CheckResult{
			Name:    "Identity permissions",
			Status:  CheckError,
			Message: fmt.Sprintf("Cannot stat identity: %v", err),
		}
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		return CheckResult{
			Name:       "Identity permissions",
			Status:     CheckWarning,
			Message:    fmt.Sprintf("Identity file is readable by others (%#o)", perm),
			Suggestion: fmt.Sprintf("Run 'chmod 600 %s'", s.User.IdentityFile),
		}
	}
	return CheckResult{
		Name:    "Identity permissions",
		Status:  CheckPass,
		Message: "Identity file is private (0600)",
	}
}

func checkInitialized(s *keyring.Session) CheckResult {
	empty, err := s.Store.IsEmpty()
	if err != nil {
		return CheckResult{
			Name:    "Key store",
			Status:  CheckError,
			Message: fmt.Sprintf("Cannot read %s: %v", s.Store.Dir, err),
		}
	}
	if empty {
		return CheckResult{
			Name:       "Key store",
			Status:     CheckError,
			Message:    "Repository is not initialized",
			Suggestion: "Run 'arcane init' to create the repository key",
		}
	}
	return CheckResult{
		Name:    "Key store",
		Status:  CheckPass,
		Message: fmt.Sprintf("Key store found at %s", s.Store.Dir),
	}
}

func checkAccess(ctx context.Context, s *keyring.Session) CheckResult {
	res, err := s.Resolve(ctx)
	switch {
	case errors.Is(err, kerrors.ErrNotInitialized):
		return CheckResult{
			Name:       "Repository access",
			Status:     CheckError,
			Message:    "No repository key to unlock",
			Suggestion: "Run 'arcane init' to create the repository key",
		}
	case err != nil:
		return CheckResult{
			Name:       "Repository access",
			Status:     CheckError,
			Message:    err.Error(),
			Suggestion: "Ask a member to run 'arcane member add <alias> <your public key>'",
		}
	}
	defer res.Destroy()

	if res.Historical() {
		return CheckResult{
			Name:       "Repository access",
			Status:     CheckWarning,
			Message:    fmt.Sprintf("Only a retired key is available: %s", res),
			Suggestion: "Ask a member to grant you the current key",
		}
	}
	if res.Legacy {
		return CheckResult{
			Name:       "Repository access",
			Status:     CheckWarning,
			Message:    "Unlocked with the plaintext legacy repo.key",
			Suggestion: "Run 'arcane import-key --legacy' to move the key into an envelope",
		}
	}
	return CheckResult{
		Name:    "Repository access",
		Status:  CheckPass,
		Message: fmt.Sprintf("Unlocked with %s", res),
	}
}

func checkFilterConfig(ctx context.Context, s *keyring.Session, r gitconfig.Runner) CheckResult {
	var missing []string
	for _, key := range []string{"clean", "smudge"} {
		v, err := gitconfig.Get(ctx, r, s.Repo.Root, "filter."+gitconfig.FilterName+"."+key)
		if err != nil {
			return CheckResult{
				Name:       "Git filter",
				Status:     CheckError,
				Message:    fmt.Sprintf("Cannot read git config: %v", err),
				Suggestion: "Check that git is installed and on PATH",
			}
		}
		if v == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return CheckResult{
			Name:       "Git filter",
			Status:     CheckError,
			Message:    fmt.Sprintf("filter.%s is missing %s", gitconfig.FilterName, strings.Join(missing, ", ")),
			Suggestion: "Run 'arcane setup' to configure the filter globally",
		}
	}
	return CheckResult{
		Name:    "Git filter",
		Status:  CheckPass,
		Message: fmt.Sprintf("filter.%s is configured", gitconfig.FilterName),
	}
}

func checkAttributes(s *keyring.Session) CheckResult {
	ok, err := gitconfig.HasManagedBlock(s.Repo.Attributes)
	if err != nil {
		return CheckResult{
			Name:    "Gitattributes",
			Status:  CheckError,
			Message: fmt.Sprintf("Failed to read .gitattributes: %v", err),
		}
	}
	if !ok {
		return CheckResult{
			Name:       "Gitattributes",
			Status:     CheckError,
			Message:    "No file is routed through the arcane filter",
			Suggestion: "Run 'arcane init' or add 'filter=git-arcane' patterns to .gitattributes",
		}
	}
	return CheckResult{
		Name:    "Gitattributes",
		Status:  CheckPass,
		Message: "Managed block found in .gitattributes",
	}
}

func checkGitignore(s *keyring.Session) CheckResult {
	ignored, err := gitconfig.IgnoredPatterns(s.Repo.Ignore, s.Config.TrackedPatterns)
	if err != nil {
		return CheckResult{
			Name:    "Gitignore configuration",
			Status:  CheckError,
			Message: fmt.Sprintf("Failed to read .gitignore: %v", err),
		}
	}
	if len(ignored) > 0 {
		return CheckResult{
			Name:       "Gitignore configuration",
			Status:     CheckWarning,
			Message:    fmt.Sprintf(".gitignore hides %s from the filter", strings.Join(ignored, ", ")),
			Suggestion: "Remove those lines from .gitignore; the filter encrypts the files on commit",
		}
	}
	return CheckResult{
		Name:    "Gitignore configuration",
		Status:  CheckPass,
		Message: "Secret files are not ignored",
	}
}

func checkLegacyKey(s *keyring.Session) CheckResult {
	if _, err := os.Stat(s.Store.LegacyKey); err == nil {
		return CheckResult{
			Name:       "Legacy key",
			Status:     CheckWarning,
			Message:    fmt.Sprintf("Plaintext key found at %s", s.Store.LegacyKey),
			Suggestion: "Run 'arcane import-key --legacy' and then delete repo.key",
		}
	}
	return CheckResult{
		Name:    "Legacy key",
		Status:  CheckPass,
		Message: "No plaintext repo.key",
	}
}

func checkEnvFiles(s *keyring.Session, paths []string) CheckResult {
	files, err := secrets.ResolveEnvFiles(paths, s.Repo.Root)
	if errors.Is(err, kerrors.ErrFileNotFound) {
		return CheckResult{
			Name:       "Secret files",
			Status:     CheckError,
			Message:    err.Error(),
			Suggestion: "Pass paths or globs that name .env files, relative to the repository root",
		}
	}
	if err != nil {
		return CheckResult{
			Name:    "Secret files",
			Status:  CheckError,
			Message: fmt.Sprintf("Failed to search for .env files: %v", err),
		}
	}
	if len(files) == 0 {
		return CheckResult{
			Name:    "Secret files",
			Status:  CheckPass,
			Message: "No .env files in the working tree",
		}
	}

	var sealed int
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err == nil && secrets.IsSealed(data) {
			sealed++
		}
	}
	rel := make([]string, 0, len(files))
	for _, f := range files {
		if r, err := filepath.Rel(s.Repo.Root, f); err == nil {
			rel = append(rel, filepath.ToSlash(r))
		}
	}
	msg := fmt.Sprintf("%d .env file(s), encrypted on commit: %s", len(files), strings.Join(rel, ", "))
	if sealed > 0 {
		return CheckResult{
			Name:       "Secret files",
			Status:     CheckWarning,
			Message:    fmt.Sprintf("%d file(s) in the working tree are still sealed", sealed),
			Suggestion: "Run 'git checkout -- .' after gaining access so the smudge filter decrypts them",
		}
	}
	return CheckResult{
		Name:    "Secret files",
		Status:  CheckPass,
		Message: msg,
	}
}

func calculateDoctorSummary(results []CheckResult) DoctorSummary {
	var summary DoctorSummary
	for _, result := range results {
		switch result.Status {
		case CheckPass:
			summary.Passed++
		case CheckWarning:
			summary.Warnings++
		case CheckError:
			summary.Errors++
		}
	}
	return summary
}
