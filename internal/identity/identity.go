package identity

import (
	"encoding/hex"
	"fmt"
	"strings"

	"filippo.io/age"
	"golang.org/x/crypto/blake2b"

	kerrors "github.com/arcanehq/arcane/internal/errors"
)

// Class is the kind of principal an identity represents. The set is
// closed: resolution tries the classes in a fixed order.
type Class int

const (
	Master Class = iota
	Team
	Machine
	Imported
)

func (c Class) String() string {
	switch c {
	case Master:
		return "master"
	case Team:
		return "team"
	case Machine:
		return "machine"
	case Imported:
		return "imported"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// FingerprintLen is the number of hex characters used in machine file names.
const FingerprintLen = 16

// Identity is an X25519 key pair tagged with the principal it belongs to.
type Identity struct {
	Class Class
	Name  string

	key *age.X25519Identity
}

// Generate creates a fresh identity from crypto/rand.
func Generate(class Class, name string) (*Identity, error) {
	key, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s identity: %w", class, err)
	}
	return &Identity{Class: class, Name: name, key: key}, nil
}

// Parse decodes an AGE-SECRET-KEY-1... string.
func Parse(class Class, name, secret string) (*Identity, error) {
	key, err := age.ParseX25519Identity(strings.TrimSpace(secret))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidIdentity, err)
	}
	return &Identity{Class: class, Name: name, key: key}, nil
}

// ParseRecipient decodes an age1... public key.
func ParseRecipient(publicKey string) (*age.X25519Recipient, error) {
	r, err := age.ParseX25519Recipient(strings.TrimSpace(publicKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidPublicKey, err)
	}
	return r, nil
}

// Fingerprint derives a short, stable file-name-safe name for a recipient.
func Fingerprint(r *age.X25519Recipient) string {
	sum := blake2b.Sum256([]byte(r.String()))
	return hex.EncodeToString(sum[:])[:FingerprintLen]
}

// Recipient returns the public half.
func (id *Identity) Recipient() *age.X25519Recipient {
	return id.key.Recipient()
}

// PublicKey returns the age1... encoding of the public half.
func (id *Identity) PublicKey() string {
	return id.key.Recipient().String()
}

// Secret returns the AGE-SECRET-KEY-1... encoding of the private half.
// The returned string cannot be scrubbed; callers should print or store
// it and drop it.
func (id *Identity) Secret() string {
	return id.key.String()
}

// Fingerprint returns Fingerprint(id.Recipient()).
func (id *Identity) Fingerprint() string {
	return Fingerprint(id.Recipient())
}

// AgeIdentity exposes the identity to age.Decrypt.
func (id *Identity) AgeIdentity() age.Identity {
	return id.key
}

func (id *Identity) String() string {
	if id.Name == "" {
		return id.Class.String()
	}
	return id.Class.String() + ":" + id.Name
}
