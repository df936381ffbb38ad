package cmd

import (
	"context"
	"strings"

	"github.com/arcanehq/arcane/internal/ui"
	"github.com/arcanehq/arcane/internal/utils"
	"github.com/arcanehq/arcane/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	rotateKeep  []string
	rotateForce bool
)

func init() {
	rotateCmd.Flags().StringSliceVar(&rotateKeep, "keep", nil, "aliases that receive the new key (comma-separated)")
	rotateCmd.Flags().BoolVar(&rotateForce, "force", false, "skip confirmation prompt")
}

// resetRotateCommandState resets the rotate command's global state for testing.
func resetRotateCommandState() {
	rotateKeep = nil
	rotateForce = false
}

var rotateCmd = &cobra.Command{
	Use:   "rotate --keep <aliases>",
	Short: "Replace the repository key",
	Long: `Generates a new repository key and wraps it only for the kept members.

The command will:
  1. Copy every current grant into .git/arcane/keys/history/<timestamp>
     and delete the live envelopes
  2. Generate a new repository key
  3. Wrap it for each kept alias, using the public key recorded in <alias>.pub

Old commits stay readable: the smudge filter falls back to history keys.
Team and machine grants are retired too and have to be granted again.

Examples:
  # Revoke everyone except alice and bob
  arcane rotate --keep alice,bob

  # Rotate without confirmation prompt
  arcane rotate --keep alice --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting rotate command")
		spinner, cleanup := startSpinner("Rotating repository key...")
		defer cleanup()

		s, err := newSession(true)
		if err != nil {
			return fail(spinner, err)
		}

		if !rotateForce {
			question := ui.Warning.Sprint("Warning:") + " every grant except " +
				strings.Join(rotateKeep, ", ") + " will be revoked. Continue?"
			if !confirm(spinner, question) {
				spinner.FinalMSG = ui.Warning.Sprint("⚠") + " Rotation cancelled."
				if !utils.IsTerminal() {
					spinner.FinalMSG += "\n" + ui.Info.Sprint("→") + " Pass " + ui.Flag.Sprint("--force") + " when running non-interactively"
				}
				return nil
			}
		}

		result, err := workflows.Rotate(context.Background(), s, workflows.RotateOptions{Keep: rotateKeep})
		if err != nil {
			return fail(spinner, err)
		}

		msg := ui.Done("Repository key rotated") + "\n" +
			"    retired grants saved to " + ui.Path.Sprint(result.SnapshotDir) + "\n"
		if len(result.Kept) > 0 {
			msg += "Re-granted:\n" + ui.List(result.Kept, ui.Highlight)
		}
		if len(result.Skipped) > 0 {
			msg += ui.Warning.Sprint("⚠") + " No public key recorded, not re-granted:\n" + ui.List(result.Skipped, ui.Highlight)
		}
		if len(result.Dropped) > 0 {
			msg += ui.Warning.Sprint("⚠") + " Retired, grant again if still needed:\n" + ui.List(result.Dropped, ui.Highlight)
		}
		msg += ui.Info.Sprint("→") + " Re-commit your secret files so they are sealed with the new key"
		spinner.FinalMSG = msg
		return nil
	},
}
