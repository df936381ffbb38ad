package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/arcanehq/arcane/internal/ui"
	"github.com/arcanehq/arcane/internal/workflows"
	"github.com/spf13/cobra"
)

var doctorJSONOutput bool

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSONOutput, "json", false, "output in JSON format")
}

func resetDoctorCommandState() {
	doctorJSONOutput = false
}

var doctorCmd = &cobra.Command{
	Use:   "doctor [paths...]",
	Short: "Run health checks on your identity and the repository",
	Long: `Runs a series of health checks and reports issues.

The doctor command checks:
  - Identity existence and permissions
  - Repository key store initialization
  - Access to the repository key
  - Git filter configuration
  - The managed .gitattributes block
  - Gitignore rules hiding .env files from the filter
  - A leftover plaintext repo.key
  - .env files in the working tree

Exit codes:
  0 - All checks passed
  1 - Warnings found (non-critical issues)
  2 - Errors found (critical issues)

Paths limit the .env check to files, directories or globs such as
'services/**/.env*'. Without them the whole working tree is searched.

Use --json for machine-readable output.`,
	Args: cobra.ArbitraryArgs,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting doctor command")

	spinner, cleanup := startSpinner("Running health checks...")
	defer cleanup()

	s, err := newSession(false)
	if err != nil {
		return fail(spinner, err)
	}
	result, err := workflows.Doctor(context.Background(), s, workflows.DoctorOptions{Paths: args})
	if err != nil {
		spinner.FinalMSG = ui.Failed("Failed to run health checks: " + err.Error())
		return &ReportedError{Err: err}
	}

	for _, check := range result.Checks {
		Logger.Debugf("Check %s: status=%s, message=%s", check.Name, check.Status.String(), check.Message)
	}

	if doctorJSONOutput {
		spinner.FinalMSG = ""
		if err := outputDoctorJSON(result); err != nil {
			return err
		}
	} else {
		spinner.FinalMSG = ""
		printDoctorResults(result)
		switch {
		case result.Summary.Errors > 0:
			spinner.FinalMSG = ui.Failed("Health checks completed with errors")
		case result.Summary.Warnings > 0:
			spinner.FinalMSG = ui.Warning.Sprint("⚠") + " Health checks completed with warnings"
		default:
			spinner.FinalMSG = ui.Done("Health checks completed")
		}
	}

	switch {
	case result.Summary.Errors > 0:
		return &ExitCodeError{Code: 2}
	case result.Summary.Warnings > 0:
		return &ExitCodeError{Code: 1}
	}
	return nil
}

// outputDoctorJSON outputs the result as JSON.
func outputDoctorJSON(result *workflows.DoctorResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// printDoctorResults prints the doctor results in a human-readable format.
func printDoctorResults(result *workflows.DoctorResult) {
	for _, check := range result.Checks {
		var statusIcon string
		switch check.Status {
		case workflows.CheckPass:
			statusIcon = ui.Success.Sprint("✓")
		case workflows.CheckWarning:
			statusIcon = ui.Warning.Sprint("⚠")
		case workflows.CheckError:
			statusIcon = ui.Error.Sprint("✗")
		}
		fmt.Printf("%s %-24s %s\n", statusIcon, check.Name, check.Message)
	}

	fmt.Println()
	fmt.Printf("Summary: %d passed", result.Summary.Passed)
	if result.Summary.Warnings > 0 {
		fmt.Printf(", %s", ui.Warning.Sprint(fmt.Sprintf("%d warning(s)", result.Summary.Warnings)))
	}
	if result.Summary.Errors > 0 {
		fmt.Printf(", %s", ui.Error.Sprint(fmt.Sprintf("%d error(s)", result.Summary.Errors)))
	}
	fmt.Println()

	if len(result.Suggestions) > 0 {
		fmt.Println()
		fmt.Println("Suggestions:")
		for _, suggestion := range result.Suggestions {
			fmt.Printf("  %s %s\n", ui.Info.Sprint("→"), suggestion)
		}
	}
}
