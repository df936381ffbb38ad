package keystore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"aead.dev/mem"

	"github.com/arcanehq/arcane/internal/configs"
	kerrors "github.com/arcanehq/arcane/internal/errors"
	"github.com/arcanehq/arcane/internal/secrets"
)

const (
	envelopeExt  = ".age"
	publicKeyExt = ".pub"
	teamPrefix   = "team:"
	machPrefix   = "machine:"
	historyName  = "history"
)

// MaxEnvelopeSize bounds reads of envelope and public key files.
const MaxEnvelopeSize = 64 * mem.KiB

// Kind classifies an envelope by its file name.
type Kind int

const (
	Direct Kind = iota
	TeamGrant
	MachineGrant
)

func (k Kind) String() string {
	switch k {
	case TeamGrant:
		return "team"
	case MachineGrant:
		return "machine"
	default:
		return "user"
	}
}

// Entry is one grant: a single envelope file.
type Entry struct {
	Kind Kind
	Name string // alias, team name or fingerprint
	Path string
}

// FileName returns the on-disk name of the entry's envelope.
func (e Entry) FileName() string {
	return filepath.Base(e.Path)
}

// DirectFile, TeamFile and MachineFile build envelope file names.
func DirectFile(alias string) string { return alias + envelopeExt }

func TeamFile(team string) string { return teamPrefix + team + envelopeExt }

func MachineFile(fp string) string { return machPrefix + fp + envelopeExt }

// PublicKeyFile builds the name of an alias's recorded public key.
func PublicKeyFile(alias string) string { return alias + publicKeyExt }

// Classify parses an envelope file name. ok is false for anything that is
// not an envelope.
func Classify(fileName string) (kind Kind, name string, ok bool) {
	if !strings.HasSuffix(fileName, envelopeExt) {
		return 0, "", false
	}
	stem := strings.TrimSuffix(fileName, envelopeExt)
	switch {
	case strings.HasPrefix(stem, teamPrefix):
		return TeamGrant, strings.TrimPrefix(stem, teamPrefix), true
	case strings.HasPrefix(stem, machPrefix):
		return MachineGrant, strings.TrimPrefix(stem, machPrefix), true
	case stem == "":
		return 0, "", false
	default:
		return Direct, stem, true
	}
}

// Store is the envelope directory of one repository.
type Store struct {
	Dir        string
	HistoryDir string
	LegacyKey  string
}

// New returns the store described by paths.
func New(paths configs.RepoPaths) *Store {
	return &Store{Dir: paths.KeysDir, HistoryDir: paths.HistoryDir, LegacyKey: paths.LegacyKeyFile}
}

// Exists reports whether the keys directory exists.
func (s *Store) Exists() bool {
	info, err := os.Stat(s.Dir)
	return err == nil && info.IsDir()
}

// IsEmpty reports whether the keys directory is missing or has no entries.
func (s *Store) IsEmpty() (bool, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}

// Envelopes lists the envelopes in the live store.
func (s *Store) Envelopes() ([]Entry, error) {
	return ListEnvelopes(s.Dir)
}

// ListEnvelopes lists and classifies the envelopes in dir, sorted by file name.
func ListEnvelopes(dir string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, de := range dirEntries {
		if !de.Type().IsRegular() {
			continue
		}
		kind, name, ok := Classify(de.Name())
		if !ok {
			continue
		}
		entries = append(entries, Entry{Kind: kind, Name: name, Path: filepath.Join(dir, de.Name())})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// Filter returns the entries of the given kind.
func Filter(entries []Entry, kind Kind) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Has reports whether the live store holds fileName.
func (s *Store) Has(fileName string) bool {
	_, err := os.Stat(filepath.Join(s.Dir, fileName))
	return err == nil
}

// WriteEnvelope atomically writes an envelope into the live store.
func (s *Store) WriteEnvelope(fileName string, blob []byte) (string, error) {
	path := filepath.Join(s.Dir, fileName)
	if err := configs.WriteFileAtomic(path, blob, 0o600); err != nil {
		return "", fmt.Errorf("failed to write envelope %s: %w", fileName, err)
	}
	return path, nil
}

// ReadEnvelope reads an envelope file.
func ReadEnvelope(path string) ([]byte, error) {
	return readBounded(path)
}

// WritePublicKey records the public key of alias for later rotation.
func (s *Store) WritePublicKey(alias, publicKey string) error {
	path := filepath.Join(s.Dir, PublicKeyFile(alias))
	if err := configs.WriteFileAtomic(path, []byte(strings.TrimSpace(publicKey)+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write public key for %s: %w", alias, err)
	}
	return nil
}

// ReadPublicKey returns the recorded public key of alias.
func (s *Store) ReadPublicKey(alias string) (string, error) {
	data, err := readBounded(filepath.Join(s.Dir, PublicKeyFile(alias)))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", kerrors.ErrPublicKeyNotFound, alias)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Remove deletes a file from the live store. A missing file is not an error.
func (s *Store) Remove(fileName string) error {
	err := os.Remove(filepath.Join(s.Dir, fileName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// ReadLegacyKey loads the predecessor tool's plaintext repo.key.
func (s *Store) ReadLegacyKey() (*secrets.RepoKey, error) {
	data, err := readBounded(s.LegacyKey)
	if err != nil {
		return nil, err
	}
	defer secrets.Zero(data)
	return secrets.NewRepoKey(data)
}

// Eras returns the history snapshot directories, newest first. Only
// directories named by a unix timestamp count.
func (s *Store) Eras() ([]string, error) {
	dirEntries, err := os.ReadDir(s.HistoryDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	type era struct {
		ts   int64
		path string
	}
	var eras []era
	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		ts, err := strconv.ParseInt(de.Name(), 10, 64)
		if err != nil {
			continue
		}
		eras = append(eras, era{ts, filepath.Join(s.HistoryDir, de.Name())})
	}
	sort.Slice(eras, func(i, j int) bool { return eras[i].ts > eras[j].ts })

	paths := make([]string, len(eras))
	for i, e := range eras {
		paths[i] = e.path
	}
	return paths, nil
}

func readBounded(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(mem.LimitReader(f, MaxEnvelopeSize))
}
