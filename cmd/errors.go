package cmd

import (
	"errors"
	"fmt"

	kerrors "github.com/arcanehq/arcane/internal/errors"
	"github.com/arcanehq/arcane/internal/ui"
	"github.com/briandowns/spinner"
)

// ReportedError wraps an error whose message was already shown to the user.
type ReportedError struct {
	Err error
}

func (e *ReportedError) Error() string { return e.Err.Error() }

func (e *ReportedError) Unwrap() error { return e.Err }

// ExitCodeError asks main to exit with Code without printing anything.
type ExitCodeError struct {
	Code int
}

func (e *ExitCodeError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

// ExitCode returns the process exit code for an error returned by
// ArcaneCmd, and whether its message still needs printing.
func ExitCode(err error) (code int, show bool) {
	var exit *ExitCodeError
	if errors.As(err, &exit) {
		return exit.Code, false
	}
	var reported *ReportedError
	if errors.As(err, &reported) {
		return 1, false
	}
	return 1, true
}

// fail shows err as the spinner's final message and returns it marked as
// reported.
func fail(s *spinner.Spinner, err error) error {
	Logger.Debugf("Command failed: %v", err)
	s.FinalMSG = formatError(err)
	return &ReportedError{Err: err}
}

// formatError maps sentinel errors to a message and a follow-up hint.
func formatError(err error) string {
	switch {
	case errors.Is(err, kerrors.ErrNotGitRepository):
		return ui.Failed("Not inside a git repository") + "\n" +
			ui.Info.Sprint("→") + " Run arcane inside a repository or pass " + ui.Flag.Sprint("--repo")

	case errors.Is(err, kerrors.ErrNotInitialized):
		return ui.Failed("Arcane has not been initialized in this repository") + "\n" +
			ui.Hint("arcane init", "first")

	case errors.Is(err, kerrors.ErrAlreadyInitialized):
		return ui.Failed("Arcane is already initialized in this repository") + "\n" +
			ui.Hint("arcane member list", "to see who has access")

	case errors.Is(err, kerrors.ErrAccessDenied):
		return ui.Failed("You don't have access to this repository") + "\n" +
			ui.Hint("arcane identity show", "and ask a member to add your public key")

	case errors.Is(err, kerrors.ErrMasterIdentityRequired):
		return ui.Failed("No identity found") + "\n" +
			ui.Hint("arcane identity new", "to create one")

	case errors.Is(err, kerrors.ErrIdentityExists):
		return ui.Failed("An identity already exists") + "\n" +
			ui.Hint("arcane identity show", "to print its public key")

	case errors.Is(err, kerrors.ErrTeamNotFound):
		return ui.Failed(err.Error()) + "\n" +
			ui.Hint("arcane team create <name>", "or accept an invite")

	case errors.Is(err, kerrors.ErrMemberNotFound):
		return ui.Failed(err.Error()) + "\n" +
			ui.Hint("arcane member list", "to see the current members")

	case errors.Is(err, kerrors.ErrPublicKeyNotFound):
		return ui.Failed(err.Error()) + "\n" +
			ui.Info.Sprint("→") + " Add the members again with " + ui.Code.Sprint("arcane member add") + " after rotating"

	case errors.Is(err, kerrors.ErrAlreadyExists):
		return ui.Failed(err.Error()) + "\n" +
			ui.Info.Sprint("→") + " Use " + ui.Flag.Sprint("--force") + " to replace it where supported"

	case errors.Is(err, kerrors.ErrNoMatchingRecipient):
		return ui.Failed(err.Error()) + "\n" +
			ui.Info.Sprint("→") + " The file was encrypted for someone else"

	case errors.Is(err, kerrors.ErrDecryptionFailure):
		return ui.Failed("Content could not be decrypted with any key you hold") + "\n" +
			ui.Info.Sprint("→") + " It may have been sealed before you were granted access"

	case errors.Is(err, kerrors.ErrInvalidAlias),
		errors.Is(err, kerrors.ErrInvalidTeamName),
		errors.Is(err, kerrors.ErrInvalidPublicKey),
		errors.Is(err, kerrors.ErrInvalidIdentity),
		errors.Is(err, kerrors.ErrInvalidKeyLength),
		errors.Is(err, kerrors.ErrInvalidDateFormat),
		errors.Is(err, kerrors.ErrCorruptInvite),
		errors.Is(err, kerrors.ErrSnapshotNotFound),
		errors.Is(err, kerrors.ErrPathOutsideRepository),
		errors.Is(err, kerrors.ErrFileNotFound),
		errors.Is(err, kerrors.ErrInvalidFormat):
		return ui.Failed(err.Error())

	default:
		return ui.Failed(err.Error()) + "\n\n" +
			ui.Error.Sprint("Error: ") + "unexpected failure, rerun with " + ui.Flag.Sprint("--debug") + " for details"
	}
}
