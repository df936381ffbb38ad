package identity

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"aead.dev/mem"

	kerrors "github.com/arcanehq/arcane/internal/errors"
)

// MaxFileSize bounds how much of an identity file is read.
const MaxFileSize = 64 * mem.KiB

// ReadFile loads the first non-comment line of an identity file.
func ReadFile(class Class, name, path string) (*Identity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(mem.LimitReader(f, MaxFileSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read identity %s: %w", path, err)
	}
	defer zero(data)

	secret, ok := firstKeyLine(data)
	if !ok {
		return nil, fmt.Errorf("%w: no key found in %s", kerrors.ErrInvalidIdentity, path)
	}
	return Parse(class, name, secret)
}

func firstKeyLine(data []byte) (string, bool) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line, true
	}
	return "", false
}

// WriteFile stores id at path with mode 0600. An existing file is never
// replaced.
func WriteFile(path string, id *Identity) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", kerrors.ErrIdentityExists, path)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(f, "# created: %s\n# public key: %s\n%s\n",
		time.Now().UTC().Format(time.RFC3339), id.PublicKey(), id.Secret())
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to write identity %s: %w", path, err)
	}
	return nil
}

// ReadDir loads every *.age identity file in dir as an Imported identity,
// named after its file. Unreadable or malformed files are returned in
// skipped rather than failing the whole load. A missing dir is empty.
func ReadDir(dir string) (ids []*Identity, skipped map[string]error, err error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".age" {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".age")
		id, err := ReadFile(Imported, name, filepath.Join(dir, e.Name()))
		if err != nil {
			if skipped == nil {
				skipped = make(map[string]error)
			}
			skipped[e.Name()] = err
			continue
		}
		ids = append(ids, id)
	}
	return ids, skipped, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
