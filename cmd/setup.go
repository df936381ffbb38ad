package cmd

import (
	"context"

	"github.com/arcanehq/arcane/internal/ui"
	"github.com/arcanehq/arcane/internal/utils"
	"github.com/arcanehq/arcane/internal/workflows"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Register the arcane git filters globally",
	Long: `Writes filter.git-arcane.{clean,smudge,required} into ~/.gitconfig, pointing at
this binary. The git-seal filter name is registered too, so repositories set
up by git-seal keep working.

With the filters configured globally and a .gitattributes entry such as
  .env filter=git-arcane diff=git-arcane
a repository initializes itself the first time a secret file is committed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting setup command")
		spinner, cleanup := startSpinner("Configuring git...")
		defer cleanup()

		s, err := newSession(false)
		if err != nil {
			return fail(spinner, err)
		}
		result, err := workflows.Setup(context.Background(), s, workflows.SetupOptions{})
		if err != nil {
			if result != nil && len(result.Keys) > 0 {
				Logger.Warnf("Partially configured: %v", result.Keys)
			}
			return fail(spinner, err)
		}

		spinner.FinalMSG = ui.Done("Configured git to use "+ui.Path.Sprint(result.Executable)) +
			utils.FormatPaths(result.Keys)
		return nil
	},
}
