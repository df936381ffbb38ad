package cmd

import (
	"context"
	"fmt"

	"github.com/arcanehq/arcane/internal/ui"
	"github.com/arcanehq/arcane/internal/workflows"
	figure "github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

var identityBanner bool

func init() {
	identityShowCmd.Flags().BoolVar(&identityBanner, "banner", false, "print a banner above the identity")

	identityCmd.AddCommand(identityNewCmd)
	identityCmd.AddCommand(identityShowCmd)
}

// resetIdentityCommandState resets the identity commands' global state for testing.
func resetIdentityCommandState() {
	identityBanner = false
}

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Manage your personal identity",
	Long: `Your identity is an age X25519 key pair stored in ~/.arcane/identity.age.
Its public key is what other members add to a repository to grant you access.`,
}

var identityNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create your identity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting identity new command")
		spinner, cleanup := startSpinner("Generating identity...")
		defer cleanup()

		s, err := newSession(false)
		if err != nil {
			return fail(spinner, err)
		}
		result, err := workflows.NewIdentity(context.Background(), s)
		if err != nil {
			return fail(spinner, err)
		}

		spinner.FinalMSG = ui.Done("Identity created at "+ui.Path.Sprint(result.Path)) + "\n\n" +
			"Your public key:\n    " + result.PublicKey + "\n\n" +
			ui.Info.Sprint("→") + " Share it with a member so they can run " +
			ui.Code.Sprint("arcane member add <alias> "+result.PublicKey)
		return nil
	},
}

var identityShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print your public key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting identity show command")

		s, err := newSession(false)
		if err != nil {
			return err
		}
		result, err := workflows.ShowIdentity(context.Background(), s)
		if err != nil {
			fmt.Println(formatError(err))
			return &ReportedError{Err: err}
		}

		if identityBanner {
			fmt.Println()
			figure.NewColorFigure("Arcane", "alligator2", "green", true).Print()
			fmt.Println()
		}
		fmt.Printf("Public key:   %s\n", result.PublicKey)
		fmt.Printf("Fingerprint:  %s\n", ui.Highlight.Sprint(result.Fingerprint))
		fmt.Printf("Identity:     %s\n", ui.Path.Sprint(result.Path))
		if len(result.Imported) > 0 {
			fmt.Printf("Imported:\n%s", ui.List(result.Imported, ui.Muted))
		}
		if len(result.Teams) > 0 {
			fmt.Printf("Teams:\n%s", ui.List(result.Teams, ui.Highlight))
		}
		return nil
	},
}
