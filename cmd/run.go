package cmd

import (
	"os"

	"github.com/arcanehq/arcane/internal/workflows"
	"github.com/spf13/cobra"
)

var runFile string

func init() {
	runCmd.Flags().StringVarP(&runFile, "file", "f", ".env", "sealed or plaintext dotenv file")
}

// resetRunCommandState resets the run command's global state for testing.
func resetRunCommandState() {
	runFile = ".env"
}

var runCmd = &cobra.Command{
	Use:   "run [--file .env] -- <command> [args...]",
	Short: "Run a command with the variables of a secret file",
	Long: `Decrypts a dotenv file when it is sealed, and runs the command with its
variables added to the environment. Values from the file win over inherited
ones. Nothing is written to disk.

The command's exit status is passed through.

Examples:
  arcane run -- npm start
  arcane run --file config/.env.production -- ./deploy.sh`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting run command")

		s, err := newSession(false)
		if err != nil {
			return err
		}
		result, err := workflows.Run(cmd.Context(), s, workflows.RunOptions{
			File:    runFile,
			Command: args,
			Stdin:   os.Stdin,
			Stdout:  cmd.OutOrStdout(),
			Stderr:  cmd.ErrOrStderr(),
		})
		if err != nil {
			return err
		}
		Logger.Debugf("Injected %v", result.Variables)

		if result.ExitCode != 0 {
			return &ExitCodeError{Code: result.ExitCode}
		}
		return nil
	},
}
