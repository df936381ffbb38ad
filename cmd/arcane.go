package cmd

import (
	logger "github.com/arcanehq/arcane/internal/logging"
	"github.com/spf13/cobra"
)

var (
	verbose  bool
	debug    bool
	repoFlag repoPath
	Logger   logger.Logger

	ArcaneCmd = &cobra.Command{
		Use:   "arcane",
		Short: "Arcane - transparent encryption for secrets in git repositories",
		Long: `Arcane encrypts secret files as git stores them and decrypts them on checkout.

Every repository has one symmetric key. That key is wrapped, with age, for each
member's public key, for teams and for CI machines, and lives under .git/arcane.
Git's clean and smudge filters call arcane, so working copies stay plaintext
while commits only ever contain ciphertext.

Getting started:
  arcane identity new      # create your personal identity
  arcane setup             # register the git filters globally
  arcane init              # create the key for the current repository
  arcane member add bob age1...`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
			}
			Logger.Debugf("Initializing %s with verbose=%t, debug=%t", cmd.CommandPath(), verbose, debug)
		},
	}
)

func init() {
	ArcaneCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	ArcaneCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	ArcaneCmd.PersistentFlags().Var(&repoFlag, "repo", "repository to operate on (default: the enclosing git repository)")

	ArcaneCmd.AddCommand(initCmd)
	ArcaneCmd.AddCommand(importKeyCmd)
	ArcaneCmd.AddCommand(identityCmd)
	ArcaneCmd.AddCommand(memberCmd)
	ArcaneCmd.AddCommand(teamCmd)
	ArcaneCmd.AddCommand(deployCmd)
	ArcaneCmd.AddCommand(rotateCmd)
	ArcaneCmd.AddCommand(cleanCmd)
	ArcaneCmd.AddCommand(smudgeCmd)
	ArcaneCmd.AddCommand(scanCmd)
	ArcaneCmd.AddCommand(runCmd)
	ArcaneCmd.AddCommand(setupCmd)
	ArcaneCmd.AddCommand(snapshotsCmd)
	ArcaneCmd.AddCommand(doctorCmd)
	ArcaneCmd.AddCommand(logCmd)
}

// Helper functions for testing

// GetArcaneCmd returns the ArcaneCmd for testing.
func GetArcaneCmd() *cobra.Command {
	return ArcaneCmd
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	repoFlag = ""
	resetInitCommandState()
	resetImportKeyCommandState()
	resetIdentityCommandState()
	resetDeployCommandState()
	resetTeamCommandState()
	resetRotateCommandState()
	resetScanCommandState()
	resetRunCommandState()
	resetDoctorCommandState()
	resetLogCommandState()
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}
