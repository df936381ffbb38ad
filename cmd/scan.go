package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/arcanehq/arcane/internal/ui"
	"github.com/arcanehq/arcane/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	scanAll  bool
	scanJSON bool
)

func init() {
	scanCmd.Flags().BoolVar(&scanAll, "all", false, "scan the whole working tree of the current repository")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "output findings as JSON")
}

// resetScanCommandState resets the scan command's global state for testing.
func resetScanCommandState() {
	scanAll = false
	scanJSON = false
}

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Look for credentials in plaintext files",
	Long: `Scans a file or directory for well-known credential formats: AWS keys, Stripe
live keys, PEM private keys, Google API keys, GitHub and Slack tokens, and
*PRIVATE_KEY* assignments. Extra patterns can be added under [[scan.patterns]]
in ~/.arcane/config.toml.

Directories are walked honoring .gitignore files. The exit status is 1 when
anything was found, so the command can guard a pre-commit hook.

Examples:
  arcane scan
  arcane scan config/
  arcane scan --all --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting scan command")
		spinner, cleanup := startSpinner("Scanning for secrets...")
		defer cleanup()

		s, err := newSession(scanAll)
		if err != nil {
			return fail(spinner, err)
		}
		opts := workflows.ScanOptions{Repo: scanAll}
		if len(args) == 1 {
			opts.Path = args[0]
		}

		result, err := workflows.Scan(cmd.Context(), s, opts)
		if err != nil {
			return fail(spinner, err)
		}

		if scanJSON {
			spinner.FinalMSG = ""
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(result.Findings); err != nil {
				return err
			}
		} else if len(result.Findings) == 0 {
			spinner.FinalMSG = ui.Done("No secrets found in " + ui.Path.Sprint(result.Root))
		} else {
			msg := ui.Failed(fmt.Sprintf("Found possible secrets in %d file(s):", len(result.Findings))) + "\n"
			for _, f := range result.Findings {
				msg += fmt.Sprintf("    %s  %s\n", ui.Path.Sprint(f.Path), ui.Muted.Sprint(strings.Join(f.Patterns, ", ")))
			}
			msg += ui.Info.Sprint("→") + " Move them into a .env file so they are encrypted on commit"
			spinner.FinalMSG = msg
		}

		if len(result.Findings) > 0 {
			return &ExitCodeError{Code: 1}
		}
		return nil
	},
}
