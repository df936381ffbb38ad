package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/arcanehq/arcane/internal/keystore"
	"github.com/arcanehq/arcane/internal/ui"
	"github.com/arcanehq/arcane/internal/utils"
	"github.com/arcanehq/arcane/internal/workflows"
	"github.com/spf13/cobra"
)

func init() {
	memberCmd.AddCommand(memberAddCmd)
	memberCmd.AddCommand(memberRemoveCmd)
	memberCmd.AddCommand(memberListCmd)
}

var memberCmd = &cobra.Command{
	Use:     "member",
	Aliases: []string{"members"},
	Short:   "Manage who can read the repository",
}

var memberAddCmd = &cobra.Command{
	Use:   "add <alias> <public key>",
	Short: "Grant a user access",
	Long: `Wraps the repository key for a user's public key as .git/arcane/keys/<alias>.age.

You need access yourself. The user's public key is recorded in <alias>.pub so
the grant can be renewed by 'arcane rotate --keep <alias>'.

Examples:
  arcane member add bob age1qyqszqgpqyqszqgpqyqszqgpqyqszqgpqyqszqgpqyqszqgpqyqs3290gq`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting member add command")
		spinner, cleanup := startSpinner("Adding member...")
		defer cleanup()

		s, err := newSession(true)
		if err != nil {
			return fail(spinner, err)
		}
		result, err := workflows.AddMember(context.Background(), s, workflows.AddMemberOptions{
			Alias:     args[0],
			PublicKey: args[1],
		})
		if err != nil {
			return fail(spinner, err)
		}

		spinner.FinalMSG = ui.Done("Granted access to "+ui.Highlight.Sprint(result.Alias)) + "\n" +
			"    " + ui.Path.Sprint(result.EnvelopePath) + " " + ui.Muted.Sprint(result.Fingerprint)
		return nil
	},
}

var memberRemoveCmd = &cobra.Command{
	Use:   "remove <alias>",
	Short: "Remove a user's grant",
	Long: `Deletes <alias>.age and <alias>.pub.

The member may still hold a copy of the repository key. Run 'arcane rotate'
afterwards to replace it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting member remove command")
		spinner, cleanup := startSpinner("Removing member...")
		defer cleanup()

		s, err := newSession(true)
		if err != nil {
			return fail(spinner, err)
		}
		result, err := workflows.RemoveMember(context.Background(), s, workflows.RemoveMemberOptions{Alias: args[0]})
		if err != nil {
			return fail(spinner, err)
		}

		spinner.FinalMSG = ui.Done("Removed "+ui.Highlight.Sprint(result.Alias)) + utils.FormatPaths(result.Removed) + "\n" +
			ui.Warning.Sprint("⚠") + " They may have kept a copy of the key\n" +
			ui.Hint("arcane rotate --keep <aliases>", "to replace it")
		return nil
	},
}

var memberListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the grants of the repository",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting member list command")

		s, err := newSession(true)
		if err != nil {
			fmt.Println(formatError(err))
			return &ReportedError{Err: err}
		}
		result, err := workflows.ListMembers(context.Background(), s)
		if err != nil {
			fmt.Println(formatError(err))
			return &ReportedError{Err: err}
		}

		if len(result.Members) == 0 {
			fmt.Println("No grants in the key store.")
		}
		for _, m := range result.Members {
			detail := ""
			switch m.Kind {
			case keystore.Direct:
				detail = utils.ShortKey(m.PublicKey)
				if detail == "" {
					detail = ui.Warning.Sprint("no public key recorded")
				}
			case keystore.TeamGrant, keystore.MachineGrant:
				detail = ui.Muted.Sprint(filepath.Base(m.Envelope))
			}
			fmt.Printf("%-8s  %-24s  %s\n", m.Kind, ui.Highlight.Sprint(m.Name), detail)
		}
		if result.Eras > 0 {
			fmt.Printf("\n%d retired key era(s) in history\n", result.Eras)
		}
		return nil
	},
}
