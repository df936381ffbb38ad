package workflows

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/arcanehq/arcane/internal/audit"
	kerrors "github.com/arcanehq/arcane/internal/errors"
	"github.com/arcanehq/arcane/internal/keyring"
	"github.com/arcanehq/arcane/internal/keystore"
	"github.com/arcanehq/arcane/internal/secrets"
)

// ImportKeyOptions configures the import-key workflow. Exactly one of Raw,
// Encoded or LegacyFile is used, in that order of preference.
type ImportKeyOptions struct {
	InitOptions

	// Raw is the 32-byte key itself.
	Raw []byte

	// Encoded is the key as hex or base64 text.
	Encoded string

	// LegacyFile is a repo.key file written by an older installation.
	LegacyFile string
}

// ImportKey initializes the repository with an existing repository key
// instead of a fresh one, so content sealed elsewhere can be read here.
//
// Returns ErrInvalidKeyLength if the supplied material does not decode to
// exactly 32 bytes.
func ImportKey(ctx context.Context, s *keyring.Session, opts ImportKeyOptions) (*InitResult, error) {
	key, source, err := importedKey(opts)
	if err != nil {
		return nil, err
	}
	defer key.Destroy()

	result, err := initialize(ctx, s, key, opts.InitOptions)
	if err != nil {
		return nil, err
	}
	s.Log.Infof("Imported repository key from %s", source)
	record(s, audit.Entry{Operation: "import-key", Alias: result.Alias, Envelope: result.EnvelopePath})
	return result, nil
}

func importedKey(opts ImportKeyOptions) (*secrets.RepoKey, string, error) {
	switch {
	case len(opts.Raw) > 0:
		k, err := secrets.NewRepoKey(opts.Raw)
		return k, "raw bytes", err
	case opts.Encoded != "":
		k, err := DecodeKey(opts.Encoded)
		return k, "encoded text", err
	case opts.LegacyFile != "":
		data, err := keystore.ReadEnvelope(opts.LegacyFile)
		if err != nil {
			return nil, "", fmt.Errorf("reading %s: %w", opts.LegacyFile, err)
		}
		defer secrets.Zero(data)
		if len(data) == secrets.KeySize {
			k, err := secrets.NewRepoKey(data)
			return k, opts.LegacyFile, err
		}
		k, err := DecodeKey(string(data))
		return k, opts.LegacyFile, err
	default:
		return nil, "", fmt.Errorf("%w: no key material supplied", kerrors.ErrInvalidKeyLength)
	}
}

// DecodeKey parses a repository key written as hex or base64 (standard or
// URL alphabet, padded or not).
func DecodeKey(text string) (*secrets.RepoKey, error) {
	text = strings.TrimSpace(text)

	decoders := []func(string) ([]byte, error){
		hex.DecodeString,
		base64.StdEncoding.DecodeString,
		base64.RawStdEncoding.DecodeString,
		base64.URLEncoding.DecodeString,
		base64.RawURLEncoding.DecodeString,
	}
	for _, decode := range decoders {
		b, err := decode(text)
		if err != nil {
			continue
		}
		if len(b) == secrets.KeySize {
			defer secrets.Zero(b)
			return secrets.NewRepoKey(b)
		}
		secrets.Zero(b)
	}
	return nil, fmt.Errorf("%w: expected 32 bytes as hex or base64", kerrors.ErrInvalidKeyLength)
}
