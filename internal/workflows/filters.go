package workflows

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/arcanehq/arcane/internal/configs"
	kerrors "github.com/arcanehq/arcane/internal/errors"
	"github.com/arcanehq/arcane/internal/envelope"
	"github.com/arcanehq/arcane/internal/keyring"
	"github.com/arcanehq/arcane/internal/secrets"
)

// CleanOptions configures the git clean filter.
type CleanOptions struct {
	// File is the path git passes as %f. It may be empty.
	File string

	In  io.Reader
	Out io.Writer
}

// CleanResult describes what the clean filter did.
type CleanResult struct {
	// PassedThrough is set when the input was already sealed.
	PassedThrough bool

	// Initialized is set when the store was created on the fly.
	Initialized bool

	// Backup is the encrypted backup written for .env files.
	Backup string
}

// Clean seals In to Out with the current repository key.
//
// A repository without a key store is initialized on the fly, so a global
// filter configuration works in repositories nobody ran init in. Content
// that is already sealed passes through unchanged. For .env files an
// encrypted backup of the plaintext is written to .git/arcane/backups; a
// failed backup is logged and does not fail the filter.
func Clean(ctx context.Context, s *keyring.Session, opts CleanOptions) (*CleanResult, error) {
	data, err := io.ReadAll(opts.In)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	defer secrets.Zero(data)

	result := &CleanResult{}
	if secrets.IsSealed(data) {
		result.PassedThrough = true
		_, err := opts.Out.Write(data)
		return result, err
	}

	res, err := s.ResolveCurrent(ctx)
	if err != nil && needsInit(s, err) {
		s.Log.WarnfAlways("No repository key found, initializing %s", s.Repo.Root)
		if _, err := Init(ctx, s, InitOptions{SkipGitConfig: true, SkipAttributes: true}); err != nil {
			return nil, fmt.Errorf("auto-init failed: %w", err)
		}
		result.Initialized = true
		res, err = s.ResolveCurrent(ctx)
	}
	if err != nil {
		return nil, err
	}
	defer res.Destroy()

	sealed, err := secrets.Seal(res.Key, data)
	if err != nil {
		return nil, err
	}

	if opts.File != "" && strings.Contains(opts.File, ".env") && s.Config.Backup.Enabled {
		path, err := backup(s, opts.File, data)
		if err != nil {
			s.Log.WarnfAlways("Backup of %s failed: %v", opts.File, err)
		} else {
			result.Backup = path
		}
	}

	if _, err := opts.Out.Write(sealed); err != nil {
		return nil, fmt.Errorf("writing output: %w", err)
	}
	return result, nil
}

func needsInit(s *keyring.Session, err error) bool {
	if errors.Is(err, kerrors.ErrNotInitialized) {
		return true
	}
	if errors.Is(err, kerrors.ErrAccessDenied) && s.HasRepo() {
		empty, ierr := s.Store.IsEmpty()
		return ierr == nil && empty
	}
	return false
}

// backup writes plaintext, encrypted to the master identity, to
// backups/<safe>.<unix-ts>.bak.age.
func backup(s *keyring.Session, file string, plaintext []byte) (string, error) {
	master, err := s.RequireMaster()
	if err != nil {
		return "", err
	}
	blob, err := envelope.Wrap(plaintext, master.Recipient())
	if err != nil {
		return "", err
	}
	name := SafeName(file) + "." + strconv.FormatInt(s.Now().Unix(), 10) + backupSuffix
	path := filepath.Join(s.Repo.BackupsDir, name)
	if err := configs.WriteFileAtomic(path, blob, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// SafeName flattens a repository path into a single file name.
func SafeName(file string) string {
	return strings.NewReplacer("/", "_", `\`, "_").Replace(file)
}

// SmudgeOptions configures the git smudge filter.
type SmudgeOptions struct {
	In  io.Reader
	Out io.Writer
}

// SmudgeResult describes what the smudge filter did.
type SmudgeResult struct {
	// PassedThrough is set when the input was not sealed.
	PassedThrough bool

	// Era is the history era whose key opened the content, empty for the
	// current key.
	Era string
}

// Smudge opens sealed content from In and writes the plaintext to Out.
//
// Content without the arcane header is copied unchanged: files committed
// before the filter was configured must still check out. Sealed content is
// tried against the current key, then every historical key, newest first.
//
// Returns ErrDecryptionFailure if keys were found but none opened the
// content.
func Smudge(ctx context.Context, s *keyring.Session, opts SmudgeOptions) (*SmudgeResult, error) {
	data, err := io.ReadAll(opts.In)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	if !secrets.IsSealed(data) {
		_, err := opts.Out.Write(data)
		return &SmudgeResult{PassedThrough: true}, err
	}

	plaintext, era, err := openSealed(ctx, s, data)
	if err != nil {
		return nil, err
	}
	defer secrets.Zero(plaintext)

	if _, err := opts.Out.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing output: %w", err)
	}
	return &SmudgeResult{Era: era}, nil
}

// openSealed opens blob with the current key or any historical key.
func openSealed(ctx context.Context, s *keyring.Session, blob []byte) ([]byte, string, error) {
	var keys []*keyring.Resolution
	defer func() {
		for _, k := range keys {
			k.Destroy()
		}
	}()

	current, currentErr := s.ResolveCurrent(ctx)
	if currentErr == nil {
		keys = append(keys, current)
	} else if errors.Is(currentErr, context.Canceled) || errors.Is(currentErr, context.DeadlineExceeded) {
		return nil, "", currentErr
	}

	history, err := s.HistoryKeys(ctx)
	if err != nil {
		s.Log.Debugf("Cannot read history keys: %v", err)
	}
	keys = append(keys, history...)

	if len(keys) == 0 {
		return nil, "", currentErr
	}
	for _, k := range keys {
		plaintext, err := secrets.Open(k.Key, blob)
		if err == nil {
			if k.Historical() {
				s.Log.Debugf("Opened content with key from history %s", k.Era)
			}
			return plaintext, k.Era, nil
		}
		s.Log.Debugf("Key %s did not open content: %v", k, err)
	}
	return nil, "", kerrors.ErrDecryptionFailure
}
