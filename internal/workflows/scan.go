package workflows

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arcanehq/arcane/internal/audit"
	"github.com/arcanehq/arcane/internal/keyring"
	"github.com/arcanehq/arcane/internal/scanner"
)

// ScanOptions configures a secret scan.
type ScanOptions struct {
	// Path is a file or directory. Ignored when Repo is set.
	Path string

	// Repo scans the whole working tree of the current repository.
	Repo bool
}

// ScanResult contains the findings of a scan.
type ScanResult struct {
	Root     string
	Findings []scanner.Finding
}

// Scan looks for credentials in plaintext files using the built-in
// patterns plus those from the user config.
func Scan(ctx context.Context, s *keyring.Session, opts ScanOptions) (*ScanResult, error) {
	extra, err := scanner.FromConfig(s.Config.Scan.Patterns)
	if err != nil {
		return nil, err
	}
	sc := scanner.New(extra...)
	if s.Config.Scan.MaxFileSize > 0 {
		sc.MaxFileSize = s.Config.Scan.MaxFileSize
	}

	root := opts.Path
	if opts.Repo {
		if err := s.RequireRepo(); err != nil {
			return nil, err
		}
		root = s.Repo.Root
	}
	if root == "" {
		root = "."
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	result := &ScanResult{Root: root}
	if !info.IsDir() {
		found, err := sc.ScanFile(root)
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			result.Findings = []scanner.Finding{{Path: filepath.ToSlash(root), Patterns: found}}
		}
		return result, nil
	}

	result.Findings, err = sc.ScanRepository(ctx, root, scanner.Options{
		Exclude:     s.Config.Scan.Exclude,
		Concurrency: s.Config.Scan.Concurrency,
	})
	if err != nil {
		return nil, err
	}

	if opts.Repo {
		record(s, audit.Entry{Operation: "scan", Findings: len(result.Findings)})
	}
	return result, nil
}
