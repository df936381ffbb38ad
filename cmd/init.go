package cmd

import (
	"context"

	"github.com/arcanehq/arcane/internal/ui"
	"github.com/arcanehq/arcane/internal/utils"
	"github.com/arcanehq/arcane/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	initAlias          string
	initSkipGitConfig  bool
	initSkipAttributes bool
)

func init() {
	initCmd.Flags().StringVar(&initAlias, "alias", workflows.DefaultOwnerAlias, "alias for your envelope")
	initCmd.Flags().BoolVar(&initSkipGitConfig, "skip-git-config", false, "do not write the filter into .git/config")
	initCmd.Flags().BoolVar(&initSkipAttributes, "skip-attributes", false, "do not touch .gitattributes or .gitignore")
}

// resetInitCommandState resets the init command's global state for testing.
func resetInitCommandState() {
	initAlias = workflows.DefaultOwnerAlias
	initSkipGitConfig = false
	initSkipAttributes = false
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the repository key",
	Long: `Generates a new repository key and wraps it for your identity.

The command will:
  1. Write .git/arcane/keys/<alias>.age and <alias>.pub
  2. Register the git-arcane clean and smudge filters in .git/config
  3. Route .env files through the filter in .gitattributes
  4. Remove .env patterns from .gitignore so git sees the files

Examples:
  arcane init
  arcane init --alias alice
  arcane init --skip-git-config   # filters already set up by 'arcane setup'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting init command")
		spinner, cleanup := startSpinner("Initializing repository...")
		defer cleanup()

		s, err := newSession(true)
		if err != nil {
			return fail(spinner, err)
		}

		result, err := workflows.Init(context.Background(), s, workflows.InitOptions{
			Alias:          initAlias,
			SkipGitConfig:  initSkipGitConfig,
			SkipAttributes: initSkipAttributes,
		})
		if err != nil {
			return fail(spinner, err)
		}

		spinner.FinalMSG = formatInitResult(result)
		return nil
	},
}

func formatInitResult(result *workflows.InitResult) string {
	msg := ui.Done("Repository key created for "+ui.Highlight.Sprint(result.Alias)) + "\n" +
		"    " + ui.Path.Sprint(result.EnvelopePath) + "\n"
	if result.GitConfigured {
		msg += ui.Done("Configured the git-arcane filter") + "\n"
	}
	if result.AttributesUpdated {
		msg += ui.Done("Updated .gitattributes") + "\n"
	}
	if len(result.Untracked) > 0 {
		msg += ui.Warning.Sprint("⚠") + " Removed from .gitignore so they are encrypted on commit:" +
			utils.FormatPaths(result.Untracked)
	}
	msg += "\n" + ui.Hint("arcane member add <alias> <public key>", "to share access")
	return msg
}
