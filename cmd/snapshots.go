package cmd

import (
	"context"
	"fmt"

	"github.com/arcanehq/arcane/internal/ui"
	"github.com/arcanehq/arcane/internal/workflows"
	"github.com/spf13/cobra"
)

func init() {
	snapshotsCmd.AddCommand(snapshotsListCmd)
	snapshotsCmd.AddCommand(snapshotsRestoreCmd)
}

var snapshotsCmd = &cobra.Command{
	Use:     "snapshots",
	Aliases: []string{"backups"},
	Short:   "List and restore encrypted backups of .env files",
	Long: `Every time the clean filter encrypts a .env file it also keeps an encrypted
copy, readable only with your identity, under .git/arcane/backups. Disable
this with "[backup] enabled = false" in ~/.arcane/config.toml.`,
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting snapshots list command")

		s, err := newSession(true)
		if err != nil {
			fmt.Println(formatError(err))
			return &ReportedError{Err: err}
		}
		snapshots, err := workflows.ListSnapshots(context.Background(), s)
		if err != nil {
			return err
		}

		if len(snapshots) == 0 {
			fmt.Println("No backups found.")
			return nil
		}
		for _, snap := range snapshots {
			fmt.Printf("%s  %-30s  %6d B  %s\n",
				snap.Time.Local().Format("2006-01-02 15:04:05"), snap.File, snap.Size, ui.Muted.Sprint(snap.Name))
		}
		return nil
	},
}

var snapshotsRestoreCmd = &cobra.Command{
	Use:   "restore <name> <target>",
	Short: "Decrypt a backup into the working tree",
	Long: `Decrypts a backup with your identity and writes it to target, a path inside
the repository.

Examples:
  arcane snapshots restore config_.env.1700000000.bak.age config/.env`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting snapshots restore command")
		spinner, cleanup := startSpinner("Restoring backup...")
		defer cleanup()

		s, err := newSession(true)
		if err != nil {
			return fail(spinner, err)
		}
		result, err := workflows.RestoreSnapshot(context.Background(), s, workflows.RestoreSnapshotOptions{
			Name:   args[0],
			Target: args[1],
		})
		if err != nil {
			return fail(spinner, err)
		}

		spinner.FinalMSG = ui.Done(fmt.Sprintf("Restored %d bytes to %s", result.Bytes, ui.Path.Sprint(result.Target)))
		return nil
	},
}
