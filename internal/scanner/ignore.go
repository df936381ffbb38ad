package scanner

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ignoreRule is a single .gitignore line, scoped to the directory that
// holds the file.
type ignoreRule struct {
	base     string // Slash-separated dir of the .gitignore, "" for root.
	pattern  string
	negation bool // Pattern starts with !
	dirOnly  bool // Pattern ends with /
	anchored bool // Pattern contains a / before its last character
}

type ignoreRules struct {
	rules []ignoreRule
}

func newIgnoreRules() *ignoreRules {
	return &ignoreRules{}
}

// load reads dir/.gitignore, if any. rel is dir relative to the walk root.
func (ir *ignoreRules) load(dir, rel string) error {
	f, err := os.Open(filepath.Join(dir, ".gitignore"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		ir.add(rel, sc.Text())
	}
	return sc.Err()
}

func (ir *ignoreRules) add(base, line string) {
	line = strings.TrimRight(line, " \t")
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}

	r := ignoreRule{base: base}
	if strings.HasPrefix(line, "!") {
		r.negation = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		r.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.Contains(line, "/") {
		r.anchored = true
		line = strings.TrimPrefix(line, "/")
	}
	if line == "" {
		return
	}
	r.pattern = line
	ir.rules = append(ir.rules, r)
}

// match reports whether rel is ignored. Later rules override earlier ones.
func (ir *ignoreRules) match(rel string, isDir bool) bool {
	ignored := false
	for _, r := range ir.rules {
		if r.dirOnly && !isDir {
			continue
		}
		local := rel
		if r.base != "" {
			if !strings.HasPrefix(rel, r.base+"/") {
				continue
			}
			local = strings.TrimPrefix(rel, r.base+"/")
		}

		var ok bool
		if r.anchored {
			ok, _ = doublestar.Match(r.pattern, local)
		} else {
			ok, _ = doublestar.Match(r.pattern, path.Base(local))
		}
		if ok {
			ignored = !r.negation
		}
	}
	return ignored
}

func excluded(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
