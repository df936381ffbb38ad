package configs

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestSaveAndLoadTOML(t *testing.T) {
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "nested", "test.toml")

	type TestStruct struct {
		Name    string
		Aliases []string
	}

	original := TestStruct{Name: "backend", Aliases: []string{"owner", "alice"}}
	if err := SaveTOML(testFile, original); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	loaded := TestStruct{}
	if err := LoadTOML(testFile, &loaded); err != nil {
		t.Fatalf("LoadTOML failed: %v", err)
	}
	if loaded.Name != original.Name {
		t.Errorf("Expected Name %q, got %q", original.Name, loaded.Name)
	}
	if len(loaded.Aliases) != 2 || loaded.Aliases[1] != "alice" {
		t.Errorf("Expected aliases to round-trip, got %v", loaded.Aliases)
	}

	info, err := os.Stat(testFile)
	if err != nil {
		t.Fatalf("Failed to stat config: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("Expected mode 0600, got %o", info.Mode().Perm())
	}
}

func TestWriteFileAtomicLeavesNoTempFiles(t *testing.T) {
	tempDir := t.TempDir()
	target := filepath.Join(tempDir, "owner.age")

	if err := WriteFileAtomic(target, []byte("first"), 0o600); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	if err := WriteFileAtomic(target, []byte("second"), 0o600); err != nil {
		t.Fatalf("Failed to overwrite: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("Expected %q, got %q", "second", data)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("Failed to read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected only the target file, found %d entries", len(entries))
	}
}

func TestWriteFileAtomicCreatesParentDirectories(t *testing.T) {
	target := filepath.Join(t.TempDir(), "keys", "history", "1700000000", "owner.age")

	if err := WriteFileAtomic(target, []byte("sealed"), 0o600); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if string(data) != "sealed" {
		t.Errorf("Expected %q, got %q", "sealed", data)
	}
}

func TestSyncDir(t *testing.T) {
	if err := syncDir(t.TempDir()); err != nil {
		t.Errorf("syncDir failed on an existing directory: %v", err)
	}
	err := syncDir(filepath.Join(t.TempDir(), "missing"))
	if runtime.GOOS != "windows" && err == nil {
		t.Errorf("Expected an error for a missing directory")
	}
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if len(cfg.GitAttributesPatterns) != len(DefaultAttributePatterns) {
		t.Errorf("Expected default attribute patterns, got %v", cfg.GitAttributesPatterns)
	}
	if !cfg.Backup.Enabled {
		t.Error("Expected backups to be enabled by default")
	}
	if cfg.Scan.Concurrency <= 0 {
		t.Error("Expected a positive default scan concurrency")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
gitattributes_patterns = ["secrets/* filter=git-arcane diff=git-arcane"]

[backup]
enabled = false

[scan]
max_file_size = 2048

[[scan.patterns]]
name = "Internal Token"
regex = "itk_[0-9a-f]{32}"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if len(cfg.GitAttributesPatterns) != 1 {
		t.Errorf("Expected 1 attribute pattern, got %v", cfg.GitAttributesPatterns)
	}
	if cfg.Backup.Enabled {
		t.Error("Expected backups to be disabled")
	}
	if cfg.Scan.MaxFileSize != 2048 {
		t.Errorf("Expected max_file_size 2048, got %d", cfg.Scan.MaxFileSize)
	}
	if len(cfg.Scan.Patterns) != 1 || cfg.Scan.Patterns[0].Name != "Internal Token" {
		t.Errorf("Expected custom pattern, got %v", cfg.Scan.Patterns)
	}
	if len(cfg.TrackedPatterns) != len(DefaultTrackedPatterns) {
		t.Errorf("Expected tracked patterns to keep defaults, got %v", cfg.TrackedPatterns)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[backup\nenabled = "), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected an error for malformed TOML")
	}
}

func TestPaths(t *testing.T) {
	user := NewUserPaths("/home/alice")
	if user.IdentityFile != filepath.Join("/home/alice", ".arcane", "identity.age") {
		t.Errorf("Unexpected identity path %s", user.IdentityFile)
	}
	if user.TeamKeyFile("backend") != filepath.Join("/home/alice", ".arcane", "teams", "backend.key") {
		t.Errorf("Unexpected team key path %s", user.TeamKeyFile("backend"))
	}

	repo := NewRepoPaths("/src/app")
	if repo.KeysDir != filepath.Join("/src/app", ".git", "arcane", "keys") {
		t.Errorf("Unexpected keys dir %s", repo.KeysDir)
	}
	if repo.HistoryDir != filepath.Join(repo.KeysDir, "history") {
		t.Errorf("Unexpected history dir %s", repo.HistoryDir)
	}
	if repo.InvitesDir != filepath.Join("/src/app", "arcane", "invites") {
		t.Errorf("Unexpected invites dir %s", repo.InvitesDir)
	}
}

func TestDefaultUserPathsHonoursOverride(t *testing.T) {
	t.Setenv(HomeEnv, "/tmp/arcane-home")
	paths, err := DefaultUserPaths()
	if err != nil {
		t.Fatalf("DefaultUserPaths failed: %v", err)
	}
	if paths.Dir != filepath.Join("/tmp/arcane-home", ".arcane") {
		t.Errorf("Unexpected dir %s", paths.Dir)
	}
}
