package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arcanehq/arcane/internal/audit"
	kerrors "github.com/arcanehq/arcane/internal/errors"
	"github.com/arcanehq/arcane/internal/secrets"
)

// TestCLIInit contains integration tests for `arcane identity new` and `arcane init`.
func TestCLIInit(t *testing.T) {
	t.Run("InitWithoutIdentity", func(t *testing.T) {
		setupTestEnvironment(t)

		output, err := runCLI("init", "--skip-git-config")
		if err == nil {
			t.Fatalf("Expected init to fail without an identity, output: %s", output)
		}
		if !errors.Is(err, kerrors.ErrMasterIdentityRequired) {
			t.Errorf("Expected ErrMasterIdentityRequired, got %v", err)
		}
		if code, show := ExitCode(err); code != 1 || show {
			t.Errorf("Expected a reported error with exit code 1, got %d, %t", code, show)
		}
		if !strings.Contains(output, "arcane identity new") {
			t.Errorf("Expected hint to create an identity, got: %s", output)
		}
	})

	t.Run("InitCreatesEnvelope", func(t *testing.T) {
		env := setupTestEnvironment(t)

		output := mustRun(t, "identity", "new")
		if !strings.Contains(output, "age1") {
			t.Errorf("Expected public key in output: %s", output)
		}
		if _, err := os.Stat(filepath.Join(env.home, ".arcane", "identity.age")); err != nil {
			t.Errorf("Identity file was not created: %v", err)
		}

		output = mustRun(t, "init", "--skip-git-config")
		if !strings.Contains(output, "Repository key created") {
			t.Errorf("Expected success message, got: %s", output)
		}
		for _, name := range []string{"owner.age", "owner.pub"} {
			if _, err := os.Stat(filepath.Join(env.repo, ".git", "arcane", "keys", name)); err != nil {
				t.Errorf("%s was not created: %v", name, err)
			}
		}
		if _, err := os.Stat(filepath.Join(env.repo, ".gitattributes")); err != nil {
			t.Errorf(".gitattributes was not created: %v", err)
		}

		output, err := runCLI("init", "--skip-git-config")
		if !errors.Is(err, kerrors.ErrAlreadyInitialized) {
			t.Errorf("Expected ErrAlreadyInitialized, got %v", err)
		}
		if !strings.Contains(output, "already initialized") {
			t.Errorf("Expected already initialized message, got: %s", output)
		}
	})

	t.Run("InitOutsideRepository", func(t *testing.T) {
		setupTestEnvironment(t)
		mustRun(t, "identity", "new")

		outside := t.TempDir()
		_, err := runCLI("init", "--skip-git-config", "--repo", outside)
		if !errors.Is(err, kerrors.ErrNotGitRepository) {
			t.Errorf("Expected ErrNotGitRepository, got %v", err)
		}
	})
}

func TestCLIFilters(t *testing.T) {
	setupTestEnvironment(t)
	mustRun(t, "identity", "new")
	mustRun(t, "init", "--skip-git-config")

	var sealed bytes.Buffer
	ArcaneCmd.SetIn(strings.NewReader("API_TOKEN=abc123\n"))
	ArcaneCmd.SetOut(&sealed)
	mustRun(t, "clean", "app.txt")

	if !bytes.HasPrefix(sealed.Bytes(), secrets.Header) {
		t.Fatalf("clean output is not sealed: %q", sealed.String())
	}
	if strings.Contains(sealed.String(), "abc123") {
		t.Fatalf("clean output leaks plaintext")
	}

	var plain bytes.Buffer
	ArcaneCmd.SetIn(bytes.NewReader(sealed.Bytes()))
	ArcaneCmd.SetOut(&plain)
	mustRun(t, "smudge")

	if plain.String() != "API_TOKEN=abc123\n" {
		t.Errorf("smudge returned %q", plain.String())
	}
}

func TestCLIMemberList(t *testing.T) {
	setupTestEnvironment(t)
	mustRun(t, "identity", "new")
	mustRun(t, "init", "--skip-git-config")

	output := mustRun(t, "member", "list")
	if !strings.Contains(output, "owner") {
		t.Errorf("Expected owner in member list, got: %s", output)
	}

	output, err := runCLI("member", "remove", "nobody")
	if !errors.Is(err, kerrors.ErrMemberNotFound) {
		t.Errorf("Expected ErrMemberNotFound, got %v", err)
	}
	if !strings.Contains(output, "arcane member list") {
		t.Errorf("Expected hint, got: %s", output)
	}
}

func TestCLIRotateNeedsConfirmation(t *testing.T) {
	env := setupTestEnvironment(t)
	mustRun(t, "identity", "new")
	mustRun(t, "init", "--skip-git-config")

	output := mustRun(t, "rotate", "--keep", "owner")
	if !strings.Contains(output, "Rotation cancelled") {
		t.Errorf("Expected rotation to be cancelled without a terminal, got: %s", output)
	}
	if _, err := os.Stat(filepath.Join(env.repo, ".git", "arcane", "keys", "history")); err == nil {
		t.Errorf("History was written although rotation was cancelled")
	}

	output = mustRun(t, "rotate", "--keep", "owner", "--force")
	if !strings.Contains(output, "Repository key rotated") {
		t.Errorf("Expected rotation to succeed, got: %s", output)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantShow bool
	}{
		{"plain error", errors.New("boom"), 1, true},
		{"reported", &ReportedError{Err: kerrors.ErrAccessDenied}, 1, false},
		{"exit code", &ExitCodeError{Code: 3}, 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, show := ExitCode(tt.err)
			if code != tt.wantCode || show != tt.wantShow {
				t.Errorf("ExitCode() = %d, %t; want %d, %t", code, show, tt.wantCode, tt.wantShow)
			}
		})
	}
}

func TestFormatError(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	msg := formatError(kerrors.ErrNotInitialized)
	if !strings.Contains(msg, "`arcane init`") {
		t.Errorf("Expected init hint, got: %s", msg)
	}
	msg = formatError(kerrors.ErrAccessDenied)
	if strings.Contains(msg, "arcane init") {
		t.Errorf("Access denied must not suggest init: %s", msg)
	}
}

func TestRepoPathFlag(t *testing.T) {
	var p repoPath
	if err := p.Set("relative/dir"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if !filepath.IsAbs(p.String()) {
		t.Errorf("Expected an absolute path, got %s", p.String())
	}
	if p.Type() != "path" {
		t.Errorf("Unexpected flag type %s", p.Type())
	}
}

func TestCLILog(t *testing.T) {
	setupTestEnvironment(t)
	mustRun(t, "identity", "new")
	mustRun(t, "init", "--skip-git-config")

	output := mustRun(t, "log", "--json")
	if !strings.Contains(output, `"op": "init"`) {
		t.Errorf("Expected init entry in JSON output, got: %s", output)
	}

	output = mustRun(t, "log", "--operation", "rotate")
	if !strings.Contains(output, "No audit log entries found matching the filters.") {
		t.Errorf("Expected empty filter result, got: %s", output)
	}

	output, err := runCLI("log", "--since", "yesterday")
	if !errors.Is(err, kerrors.ErrInvalidDateFormat) {
		t.Errorf("Expected ErrInvalidDateFormat, got %v (output: %s)", err, output)
	}
}

func TestFormatDetails(t *testing.T) {
	tests := []struct {
		name  string
		entry audit.Entry
		want  string
	}{
		{
			name:  "member add",
			entry: audit.Entry{Operation: "member-add", Alias: "bob", Via: "master"},
			want:  "alias=bob via master",
		},
		{
			name:  "rotate",
			entry: audit.Entry{Operation: "rotate", Era: "1700000000", Kept: []string{"alice", "bob"}},
			want:  "era=1700000000 kept=alice,bob",
		},
		{
			name:  "scan without findings",
			entry: audit.Entry{Operation: "scan"},
			want:  "findings=0",
		},
		{
			name:  "nothing to show",
			entry: audit.Entry{Operation: "init"},
			want:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatDetails(tt.entry); got != tt.want {
				t.Errorf("formatDetails() = %q, want %q", got, tt.want)
			}
		})
	}
}
