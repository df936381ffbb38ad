package cmd

import (
	"context"
	"fmt"

	"github.com/arcanehq/arcane/internal/ui"
	"github.com/arcanehq/arcane/internal/workflows"
	"github.com/spf13/cobra"
)

var teamAcceptForce bool

func init() {
	teamAcceptCmd.Flags().BoolVar(&teamAcceptForce, "force", false, "replace a different secret already stored for the team")

	teamCmd.AddCommand(teamCreateCmd)
	teamCmd.AddCommand(teamAddRepoCmd)
	teamCmd.AddCommand(teamInviteCmd)
	teamCmd.AddCommand(teamAcceptCmd)
	teamCmd.AddCommand(teamListCmd)
}

// resetTeamCommandState resets the team commands' global state for testing.
func resetTeamCommandState() {
	teamAcceptForce = false
}

var teamCmd = &cobra.Command{
	Use:     "team",
	Aliases: []string{"teams"},
	Short:   "Share access through team identities",
	Long: `A team is an identity kept in ~/.arcane/teams, encrypted to your own identity.
Granting a team access to a repository lets everyone holding the team identity
read it, and invites hand the team identity to new people.

Typical flow:
  arcane team create backend
  arcane team add-repo backend
  arcane team invite backend age1...     # commit arcane/invites/backend/<id>.age
  arcane team accept arcane/invites/backend/<id>.age   # run by the invitee`,
}

var teamCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a team identity in your keychain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting team create command")
		spinner, cleanup := startSpinner("Creating team...")
		defer cleanup()

		s, err := newSession(false)
		if err != nil {
			return fail(spinner, err)
		}
		result, err := workflows.CreateTeam(context.Background(), s, workflows.CreateTeamOptions{Name: args[0]})
		if err != nil {
			return fail(spinner, err)
		}

		spinner.FinalMSG = ui.Done("Created team "+ui.Highlight.Sprint(result.Name)) + "\n" +
			"    " + ui.Path.Sprint(result.Path) + "\n" +
			ui.Hint("arcane team add-repo "+result.Name, "inside a repository to grant the team access")
		return nil
	},
}

var teamAddRepoCmd = &cobra.Command{
	Use:   "add-repo <name>",
	Short: "Grant a team access to this repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting team add-repo command")
		spinner, cleanup := startSpinner("Granting team access...")
		defer cleanup()

		s, err := newSession(true)
		if err != nil {
			return fail(spinner, err)
		}
		result, err := workflows.AddRepoToTeam(context.Background(), s, workflows.AddRepoToTeamOptions{Team: args[0]})
		if err != nil {
			return fail(spinner, err)
		}

		spinner.FinalMSG = ui.Done("Granted team "+ui.Highlight.Sprint(result.Team)+" access") + "\n" +
			"    " + ui.Path.Sprint(result.EnvelopePath)
		return nil
	},
}

var teamInviteCmd = &cobra.Command{
	Use:   "invite <name> <public key>",
	Short: "Write an invite that hands the team identity to a user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting team invite command")
		spinner, cleanup := startSpinner("Writing invite...")
		defer cleanup()

		s, err := newSession(true)
		if err != nil {
			return fail(spinner, err)
		}
		result, err := workflows.CreateInvite(context.Background(), s, workflows.CreateInviteOptions{
			Team:      args[0],
			PublicKey: args[1],
		})
		if err != nil {
			return fail(spinner, err)
		}

		spinner.FinalMSG = ui.Done("Invite written to "+ui.Path.Sprint(result.Path)) + "\n" +
			ui.Info.Sprint("→") + " Commit it and ask the invitee to run " +
			ui.Code.Sprint("arcane team accept "+result.Path)
		return nil
	},
}

var teamAcceptCmd = &cobra.Command{
	Use:   "accept <invite file>",
	Short: "Store the team identity from an invite",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting team accept command")
		spinner, cleanup := startSpinner("Accepting invite...")
		defer cleanup()

		s, err := newSession(false)
		if err != nil {
			return fail(spinner, err)
		}
		result, err := workflows.AcceptInvite(context.Background(), s, workflows.AcceptInviteOptions{
			Path:  args[0],
			Force: teamAcceptForce,
		})
		if err != nil {
			return fail(spinner, err)
		}

		if result.Unchanged {
			spinner.FinalMSG = ui.Done("Team " + ui.Highlight.Sprint(result.Team) + " is already in your keychain")
			return nil
		}
		spinner.FinalMSG = ui.Done("Joined team "+ui.Highlight.Sprint(result.Team)) + "\n" +
			"    " + ui.Path.Sprint(result.Path)
		return nil
	},
}

var teamListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your teams and the teams granted this repository",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting team list command")

		s, err := newSession(false)
		if err != nil {
			return err
		}
		result, err := workflows.ListTeams(context.Background(), s)
		if err != nil {
			return err
		}

		if len(result.Local) == 0 {
			fmt.Println("No teams in your keychain.")
		} else {
			fmt.Printf("Your teams:\n%s", ui.List(result.Local, ui.Highlight))
		}
		if s.HasRepo() {
			if len(result.Granted) == 0 {
				fmt.Println("No team has access to this repository.")
			} else {
				fmt.Printf("Granted in this repository:\n%s", ui.List(result.Granted, ui.Highlight))
			}
		}
		return nil
	},
}
