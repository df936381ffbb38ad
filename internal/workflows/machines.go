package workflows

import (
	"context"
	"fmt"

	"github.com/arcanehq/arcane/internal/audit"
	kerrors "github.com/arcanehq/arcane/internal/errors"
	"github.com/arcanehq/arcane/internal/envelope"
	"github.com/arcanehq/arcane/internal/identity"
	"github.com/arcanehq/arcane/internal/keyring"
	"github.com/arcanehq/arcane/internal/keystore"
	"github.com/arcanehq/arcane/internal/utils"
)

// GenerateMachineOptions configures deploy key generation.
type GenerateMachineOptions struct {
	// Label describes the machine. Defaults to the sanitized hostname.
	Label string
}

// GenerateMachineResult holds a fresh machine identity. Nothing is written
// to disk: the secret is meant for a CI secret store.
type GenerateMachineResult struct {
	Label       string
	Secret      string
	PublicKey   string
	Fingerprint string
}

// GenerateMachine creates a machine identity for ARCANE_MACHINE_KEY.
func GenerateMachine(_ context.Context, opts GenerateMachineOptions) (*GenerateMachineResult, error) {
	label := utils.SanitizeName(opts.Label, "")
	if label == "" {
		label = utils.MachineLabel()
	}

	id, err := identity.Generate(identity.Machine, label)
	if err != nil {
		return nil, err
	}
	return &GenerateMachineResult{
		Label:       label,
		Secret:      id.Secret(),
		PublicKey:   id.PublicKey(),
		Fingerprint: id.Fingerprint(),
	}, nil
}

// WhitelistMachineOptions configures the deploy allow workflow.
type WhitelistMachineOptions struct {
	// PublicKey is the machine's age1... public key.
	PublicKey string

	// Force replaces an existing grant for the same fingerprint.
	Force bool
}

// WhitelistMachineResult contains the outcome of a machine grant.
type WhitelistMachineResult struct {
	Fingerprint  string
	EnvelopePath string
	Replaced     bool
}

// WhitelistMachine wraps the current repository key for a machine.
//
// Returns ErrAlreadyExists if the fingerprint already has a grant and Force
// is not set.
func WhitelistMachine(ctx context.Context, s *keyring.Session, opts WhitelistMachineOptions) (*WhitelistMachineResult, error) {
	res, err := requireAccess(ctx, s)
	if err != nil {
		return nil, err
	}
	defer res.Destroy()

	recipient, err := identity.ParseRecipient(opts.PublicKey)
	if err != nil {
		return nil, err
	}
	fp := identity.Fingerprint(recipient)
	name := keystore.MachineFile(fp)

	exists := s.Store.Has(name)
	if exists && !opts.Force {
		return nil, fmt.Errorf("%w: machine %s", kerrors.ErrAlreadyExists, fp)
	}

	blob, err := envelope.WrapRepoKey(res.Key, recipient)
	if err != nil {
		return nil, err
	}
	path, err := s.Store.WriteEnvelope(name, blob)
	if err != nil {
		return nil, err
	}

	record(s, audit.Entry{Operation: "machine-allow", Via: via(res), Fingerprint: fp})
	return &WhitelistMachineResult{Fingerprint: fp, EnvelopePath: path, Replaced: exists}, nil
}
