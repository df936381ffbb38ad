package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"aead.dev/mem"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxFileSize is the largest file ScanFile reads.
const DefaultMaxFileSize = 1 * mem.MiB

// Scanner matches text against an ordered list of patterns.
type Scanner struct {
	patterns    []Pattern
	MaxFileSize int64
}

// New returns a Scanner with the default patterns followed by extra.
func New(extra ...Pattern) *Scanner {
	return &Scanner{
		patterns:    append(DefaultPatterns(), extra...),
		MaxFileSize: int64(DefaultMaxFileSize),
	}
}

// Patterns returns the patterns in match order.
func (s *Scanner) Patterns() []Pattern {
	return append([]Pattern(nil), s.patterns...)
}

// Scan returns the names of the patterns that match text, in pattern order.
func (s *Scanner) Scan(text string) []string {
	var found []string
	for _, p := range s.patterns {
		if p.Regexp.MatchString(text) {
			found = append(found, p.Name)
		}
	}
	return found
}

// ScanFile scans the file at path. Files larger than MaxFileSize and files
// that are not valid UTF-8 yield (nil, nil).
func (s *Scanner) ScanFile(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() || info.Size() > s.MaxFileSize {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, nil
	}
	return s.Scan(string(data)), nil
}

// Finding is a file with at least one matching pattern.
type Finding struct {
	Path     string // Slash-separated, relative to the scanned root.
	Patterns []string
}

// Options controls ScanRepository.
type Options struct {
	// Exclude holds doublestar patterns matched against root-relative paths.
	Exclude []string
	// Concurrency bounds the number of files scanned at once.
	Concurrency int
}

// ScanRepository walks root and scans every file that is neither ignored
// by a .gitignore nor excluded. Hidden files are scanned; the .git
// directory is not. Findings are sorted by path.
func (s *Scanner) ScanRepository(ctx context.Context, root string, opts Options) ([]Finding, error) {
	files, err := collect(ctx, root, opts.Exclude)
	if err != nil {
		return nil, err
	}

	results := make([][]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for i, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			found, err := s.ScanFile(filepath.Join(root, filepath.FromSlash(rel)))
			if err != nil {
				// Files can vanish between the walk and the read.
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return fmt.Errorf("failed to scan %s: %w", rel, err)
			}
			results[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var findings []Finding
	for i, found := range results {
		if len(found) > 0 {
			findings = append(findings, Finding{Path: files[i], Patterns: found})
		}
	}
	sort.Slice(findings, func(a, b int) bool { return findings[a].Path < findings[b].Path })
	return findings, nil
}

func collect(ctx context.Context, root string, exclude []string) ([]string, error) {
	ignore := newIgnoreRules()
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				return ignore.load(path, "")
			}
			if d.Name() == ".git" || ignore.match(rel, true) || excluded(exclude, rel) {
				return filepath.SkipDir
			}
			return ignore.load(path, rel)
		}

		if !d.Type().IsRegular() || ignore.match(rel, false) || excluded(exclude, rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
