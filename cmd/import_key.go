package cmd

import (
	"context"
	"errors"
	"strings"

	"github.com/arcanehq/arcane/internal/secrets"
	"github.com/arcanehq/arcane/internal/utils"
	"github.com/arcanehq/arcane/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	importLegacy string
	importStdin  bool
)

func init() {
	importKeyCmd.Flags().StringVar(&importLegacy, "legacy", "", "path to a repo.key written by an older installation")
	importKeyCmd.Flags().BoolVar(&importStdin, "stdin", false, "read the raw or encoded key from stdin")
	importKeyCmd.Flags().StringVar(&initAlias, "alias", workflows.DefaultOwnerAlias, "alias for your envelope")
	importKeyCmd.Flags().BoolVar(&initSkipGitConfig, "skip-git-config", false, "do not write the filter into .git/config")
	importKeyCmd.Flags().BoolVar(&initSkipAttributes, "skip-attributes", false, "do not touch .gitattributes or .gitignore")
}

// resetImportKeyCommandState resets the import-key command's global state for testing.
func resetImportKeyCommandState() {
	importLegacy = ""
	importStdin = false
}

var importKeyCmd = &cobra.Command{
	Use:   "import-key [key]",
	Short: "Initialize the repository with an existing key",
	Long: `Initializes the repository like 'arcane init', but with a repository key that
already exists elsewhere, so content sealed with it can be read here.

The key can be given as hex or base64 text, piped on stdin (raw 32 bytes or
text), or read from a legacy plaintext repo.key.

Examples:
  arcane import-key 6f1c...e2
  arcane import-key --stdin < repo.key
  arcane import-key --legacy .git/arcane/repo.key`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting import-key command")

		opts := workflows.ImportKeyOptions{
			InitOptions: workflows.InitOptions{
				Alias:          initAlias,
				SkipGitConfig:  initSkipGitConfig,
				SkipAttributes: initSkipAttributes,
			},
			LegacyFile: importLegacy,
		}
		switch {
		case len(args) == 1:
			opts.Encoded = args[0]
		case importStdin:
			data, err := utils.ReadStdin()
			if err != nil {
				return err
			}
			defer secrets.Zero(data)
			if len(data) == secrets.KeySize {
				opts.Raw = data
			} else {
				opts.Encoded = strings.TrimSpace(string(data))
			}
		case importLegacy == "":
			return errors.New("provide a key argument, --stdin or --legacy")
		}

		spinner, cleanup := startSpinner("Importing repository key...")
		defer cleanup()

		s, err := newSession(true)
		if err != nil {
			return fail(spinner, err)
		}
		result, err := workflows.ImportKey(context.Background(), s, opts)
		if err != nil {
			return fail(spinner, err)
		}

		spinner.FinalMSG = formatInitResult(result)
		return nil
	},
}
