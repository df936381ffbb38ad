package workflows

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/arcanehq/arcane/internal/audit"
	"github.com/arcanehq/arcane/internal/configs"
	kerrors "github.com/arcanehq/arcane/internal/errors"
	"github.com/arcanehq/arcane/internal/envelope"
	"github.com/arcanehq/arcane/internal/identity"
	"github.com/arcanehq/arcane/internal/keyring"
	"github.com/arcanehq/arcane/internal/keystore"
	"github.com/arcanehq/arcane/internal/secrets"
)

// CreateTeamOptions configures team creation.
type CreateTeamOptions struct {
	Name string
}

// CreateTeamResult contains the new team.
type CreateTeamResult struct {
	Name      string
	PublicKey string
	Path      string
}

// CreateTeam generates a team identity and stores it in the local
// keychain, encrypted to the master identity.
//
// Returns ErrAlreadyExists if the keychain already holds the team.
func CreateTeam(_ context.Context, s *keyring.Session, opts CreateTeamOptions) (*CreateTeamResult, error) {
	if err := keystore.ValidateTeamName(opts.Name); err != nil {
		return nil, err
	}
	if _, err := s.RequireMaster(); err != nil {
		return nil, err
	}
	if s.HasTeam(opts.Name) {
		return nil, fmt.Errorf("%w: team %s", kerrors.ErrAlreadyExists, opts.Name)
	}

	team, err := identity.Generate(identity.Team, opts.Name)
	if err != nil {
		return nil, err
	}
	path, err := s.SaveTeam(team, false)
	if err != nil {
		return nil, err
	}

	record(s, audit.Entry{Operation: "team-create", Team: opts.Name})
	return &CreateTeamResult{Name: opts.Name, PublicKey: team.PublicKey(), Path: path}, nil
}

// AddRepoToTeamOptions configures granting a team access.
type AddRepoToTeamOptions struct {
	Team string
}

// AddRepoToTeamResult contains the written grant.
type AddRepoToTeamResult struct {
	Team         string
	EnvelopePath string
}

// AddRepoToTeam wraps the current repository key for a team from the local
// keychain. Any member holding the team identity can then read the repo.
func AddRepoToTeam(ctx context.Context, s *keyring.Session, opts AddRepoToTeamOptions) (*AddRepoToTeamResult, error) {
	res, err := requireAccess(ctx, s)
	if err != nil {
		return nil, err
	}
	defer res.Destroy()

	team, err := s.LoadTeam(opts.Team)
	if err != nil {
		return nil, err
	}
	blob, err := envelope.WrapRepoKey(res.Key, team.Recipient())
	if err != nil {
		return nil, err
	}
	path, err := s.Store.WriteEnvelope(keystore.TeamFile(opts.Team), blob)
	if err != nil {
		return nil, err
	}

	record(s, audit.Entry{Operation: "team-add-repo", Via: via(res), Team: opts.Team})
	return &AddRepoToTeamResult{Team: opts.Team, EnvelopePath: path}, nil
}

// CreateInviteOptions configures an invite.
type CreateInviteOptions struct {
	Team string

	// PublicKey is the invitee's master public key.
	PublicKey string
}

// CreateInviteResult contains the written invite.
type CreateInviteResult struct {
	Team string
	ID   string
	Path string
}

// CreateInvite writes the team secret, wrapped for the invitee, to
// arcane/invites/<team>/<uuid>.age inside the repository. The file is meant
// to be committed so the invitee can pick it up with AcceptInvite.
func CreateInvite(_ context.Context, s *keyring.Session, opts CreateInviteOptions) (*CreateInviteResult, error) {
	if err := s.RequireRepo(); err != nil {
		return nil, err
	}
	team, err := s.LoadTeam(opts.Team)
	if err != nil {
		return nil, err
	}
	recipient, err := identity.ParseRecipient(opts.PublicKey)
	if err != nil {
		return nil, err
	}

	secret := []byte(team.Secret())
	defer secrets.Zero(secret)
	blob, err := envelope.Wrap(secret, recipient)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	path := filepath.Join(s.Repo.InvitesDir, opts.Team, id+".age")
	if err := configs.WriteFileAtomic(path, blob, 0o644); err != nil {
		return nil, fmt.Errorf("writing invite: %w", err)
	}

	record(s, audit.Entry{Operation: "team-invite", Team: opts.Team, Invite: id, Fingerprint: identity.Fingerprint(recipient)})
	return &CreateInviteResult{Team: opts.Team, ID: id, Path: path}, nil
}

// AcceptInviteOptions configures accepting an invite.
type AcceptInviteOptions struct {
	// Path is the invite file. Its parent directory names the team.
	Path string

	// Force replaces a different secret already stored for the team.
	Force bool
}

// AcceptInviteResult contains the outcome of accepting an invite.
type AcceptInviteResult struct {
	Team string
	Path string

	// Unchanged is set when the keychain already held the same secret.
	Unchanged bool
}

// AcceptInvite decrypts an invite with the master identity and stores the
// team identity in the local keychain.
//
// Returns ErrCorruptInvite if the team name or payload is malformed and
// ErrAlreadyExists if the team is already in the keychain and Force is not
// set.
func AcceptInvite(_ context.Context, s *keyring.Session, opts AcceptInviteOptions) (*AcceptInviteResult, error) {
	name := filepath.Base(filepath.Dir(filepath.Clean(opts.Path)))
	if err := keystore.ValidateTeamName(name); err != nil {
		return nil, fmt.Errorf("%w: cannot derive team from %s: %v", kerrors.ErrCorruptInvite, opts.Path, err)
	}
	master, err := s.RequireMaster()
	if err != nil {
		return nil, err
	}

	blob, err := keystore.ReadEnvelope(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", kerrors.ErrFileNotFound, opts.Path, err)
	}
	payload, err := envelope.Unwrap(blob, master.AgeIdentity())
	if err != nil {
		if errors.Is(err, kerrors.ErrNoMatchingRecipient) {
			return nil, fmt.Errorf("invite %s is not addressed to you: %w", opts.Path, err)
		}
		return nil, fmt.Errorf("%w: %v", kerrors.ErrCorruptInvite, err)
	}
	defer secrets.Zero(payload)

	team, err := identity.Parse(identity.Team, name, string(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: payload is not a team identity", kerrors.ErrCorruptInvite)
	}

	result := &AcceptInviteResult{Team: name, Path: s.User.TeamKeyFile(name)}
	if s.HasTeam(name) {
		if !opts.Force {
			return nil, fmt.Errorf("%w: team %s is already in your keychain", kerrors.ErrAlreadyExists, name)
		}
		if existing, err := s.LoadTeam(name); err == nil && existing.Secret() == team.Secret() {
			result.Unchanged = true
			return result, nil
		}
	}

	if _, err := s.SaveTeam(team, opts.Force); err != nil {
		return nil, err
	}
	record(s, audit.Entry{Operation: "team-accept", Team: name})
	return result, nil
}

// ListTeamsResult lists the teams visible to the caller.
type ListTeamsResult struct {
	// Local are the teams in the user's keychain.
	Local []string

	// Granted are the teams with a grant in the current repository.
	Granted []string
}

// ListTeams lists keychain teams and, inside an initialized repository,
// the teams granted access to it.
func ListTeams(_ context.Context, s *keyring.Session) (*ListTeamsResult, error) {
	local, err := s.Teams()
	if err != nil {
		return nil, fmt.Errorf("reading keychain: %w", err)
	}
	result := &ListTeamsResult{Local: local}

	if s.HasRepo() && s.Store.Exists() {
		entries, err := s.Store.Envelopes()
		if err != nil {
			return nil, fmt.Errorf("reading key store: %w", err)
		}
		for _, e := range keystore.Filter(entries, keystore.TeamGrant) {
			result.Granted = append(result.Granted, e.Name)
		}
	}
	return result, nil
}
