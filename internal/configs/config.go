package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"runtime"
)

// DefaultAttributePatterns are written into the managed .gitattributes block.
var DefaultAttributePatterns = []string{
	"*.env filter=git-arcane diff=git-arcane",
	".env filter=git-arcane diff=git-arcane",
	".env.* filter=git-arcane diff=git-arcane",
	"*.lock binary",
	"*.png binary",
	"*.jpg binary",
	"*.mp4 binary",
	"*.gif binary",
	"*.ico binary",
	"*.woff binary",
	"*.woff2 binary",
}

// DefaultTrackedPatterns are removed from .gitignore so the files they
// match reach the clean filter instead of being ignored.
var DefaultTrackedPatterns = []string{"*.env", ".env", ".env.*"}

// DefaultScanExcludes are skipped by repository scans in addition to
// .gitignore rules.
var DefaultScanExcludes = []string{
	"**/node_modules/**",
	"**/vendor/**",
	"**/*.min.js",
}

// Config is the user configuration stored in ~/.arcane/config.toml.
type Config struct {
	GitAttributesPatterns []string     `toml:"gitattributes_patterns"`
	TrackedPatterns       []string     `toml:"tracked_patterns"`
	Backup                BackupConfig `toml:"backup"`
	Scan                  ScanConfig   `toml:"scan"`
}

// BackupConfig controls encrypted backups written by the clean filter.
type BackupConfig struct {
	Enabled bool `toml:"enabled"`
}

// ScanConfig tunes the secret scanner.
type ScanConfig struct {
	Exclude     []string        `toml:"exclude"`
	MaxFileSize int64           `toml:"max_file_size"`
	Concurrency int             `toml:"concurrency"`
	Patterns    []PatternConfig `toml:"patterns"`
}

// PatternConfig is a user-defined scanner pattern.
type PatternConfig struct {
	Name  string `toml:"name"`
	Regex string `toml:"regex"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		GitAttributesPatterns: append([]string(nil), DefaultAttributePatterns...),
		TrackedPatterns:       append([]string(nil), DefaultTrackedPatterns...),
		Backup:                BackupConfig{Enabled: true},
		Scan: ScanConfig{
			Exclude:     append([]string(nil), DefaultScanExcludes...),
			MaxFileSize: 1 << 20,
			Concurrency: runtime.NumCPU(),
		},
	}
}

// LoadConfig reads path over the defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := LoadTOML(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if len(cfg.GitAttributesPatterns) == 0 {
		cfg.GitAttributesPatterns = append([]string(nil), DefaultAttributePatterns...)
	}
	if cfg.Scan.MaxFileSize <= 0 {
		cfg.Scan.MaxFileSize = 1 << 20
	}
	if cfg.Scan.Concurrency <= 0 {
		cfg.Scan.Concurrency = runtime.NumCPU()
	}
	return cfg, nil
}

// SaveConfig writes cfg to path.
func SaveConfig(path string, cfg *Config) error {
	return SaveTOML(path, cfg)
}
