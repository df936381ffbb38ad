package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/arcanehq/arcane/internal/workflows"
	"github.com/spf13/cobra"
)

// The filters stream file content on stdout, so every message goes to
// stderr and no spinner is drawn.

var cleanCmd = &cobra.Command{
	Use:    "clean [file]",
	Short:  "Git clean filter: encrypt stdin to stdout",
	Hidden: true,
	Args:   cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Out = cmd.ErrOrStderr()
		Logger.Err = cmd.ErrOrStderr()

		file := ""
		if len(args) == 1 {
			file = args[0]
		}
		Logger.Debugf("clean %q", file)

		s, err := newSession(true)
		if err != nil {
			return filterError(cmd.ErrOrStderr(), err)
		}
		result, err := workflows.Clean(context.Background(), s, workflows.CleanOptions{
			File: file,
			In:   cmd.InOrStdin(),
			Out:  cmd.OutOrStdout(),
		})
		if err != nil {
			return filterError(cmd.ErrOrStderr(), err)
		}
		if result.Backup != "" {
			Logger.Debugf("Backup written to %s", result.Backup)
		}
		return nil
	},
}

var smudgeCmd = &cobra.Command{
	Use:    "smudge",
	Short:  "Git smudge filter: decrypt stdin to stdout",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Out = cmd.ErrOrStderr()
		Logger.Err = cmd.ErrOrStderr()

		s, err := newSession(true)
		if err != nil {
			return filterError(cmd.ErrOrStderr(), err)
		}
		result, err := workflows.Smudge(context.Background(), s, workflows.SmudgeOptions{
			In:  cmd.InOrStdin(),
			Out: cmd.OutOrStdout(),
		})
		if err != nil {
			return filterError(cmd.ErrOrStderr(), err)
		}
		if result.Era != "" {
			Logger.Infof("Decrypted with a retired key from %s", result.Era)
		}
		return nil
	},
}

// filterError prints err to w and marks it reported.
func filterError(w io.Writer, err error) error {
	fmt.Fprintln(w, formatError(err))
	return &ReportedError{Err: err}
}
