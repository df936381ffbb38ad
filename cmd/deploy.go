package cmd

import (
	"context"
	"fmt"

	"github.com/arcanehq/arcane/internal/keyring"
	"github.com/arcanehq/arcane/internal/ui"
	"github.com/arcanehq/arcane/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	deployLabel string
	deployForce bool
)

func init() {
	deployGenKeyCmd.Flags().StringVar(&deployLabel, "label", "", "machine label (default: hostname)")
	deployAllowCmd.Flags().BoolVar(&deployForce, "force", false, "replace an existing grant for the same machine")

	deployCmd.AddCommand(deployGenKeyCmd)
	deployCmd.AddCommand(deployAllowCmd)
}

// resetDeployCommandState resets the deploy commands' global state for testing.
func resetDeployCommandState() {
	deployLabel = ""
	deployForce = false
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Grant CI and deploy machines access",
	Long: `Machines authenticate with an identity passed in the ` + keyring.MachineKeyEnv + `
environment variable instead of a file on disk.

Typical flow:
  arcane deploy gen-key --label ci     # store the secret in your CI secret store
  arcane deploy allow age1...          # grant the machine access, then commit`,
}

var deployGenKeyCmd = &cobra.Command{
	Use:   "gen-key",
	Short: "Generate a machine identity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting deploy gen-key command")

		result, err := workflows.GenerateMachine(context.Background(), workflows.GenerateMachineOptions{Label: deployLabel})
		if err != nil {
			return err
		}

		fmt.Printf("%s Generated machine identity %s\n\n", ui.Success.Sprint("✓"), ui.Highlight.Sprint(result.Label))
		fmt.Printf("Secret (set as %s, shown once):\n    %s\n\n", keyring.MachineKeyEnv, ui.Secret.Sprint(result.Secret))
		fmt.Printf("Public key:\n    %s\n", result.PublicKey)
		fmt.Printf("Fingerprint:\n    %s\n\n", result.Fingerprint)
		fmt.Println(ui.Hint("arcane deploy allow "+result.PublicKey, "in the repository"))
		return nil
	},
}

var deployAllowCmd = &cobra.Command{
	Use:   "allow <public key>",
	Short: "Grant a machine access to this repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting deploy allow command")
		spinner, cleanup := startSpinner("Granting machine access...")
		defer cleanup()

		s, err := newSession(true)
		if err != nil {
			return fail(spinner, err)
		}
		result, err := workflows.WhitelistMachine(context.Background(), s, workflows.WhitelistMachineOptions{
			PublicKey: args[0],
			Force:     deployForce,
		})
		if err != nil {
			return fail(spinner, err)
		}

		verb := "Granted"
		if result.Replaced {
			verb = "Replaced grant for"
		}
		spinner.FinalMSG = ui.Done(verb+" machine "+ui.Highlight.Sprint(result.Fingerprint)) + "\n" +
			"    " + ui.Path.Sprint(result.EnvelopePath)
		return nil
	},
}
