package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arcanehq/arcane/internal/audit"
	kerrors "github.com/arcanehq/arcane/internal/errors"
	"github.com/arcanehq/arcane/internal/ui"
	"github.com/arcanehq/arcane/internal/utils"
	"github.com/arcanehq/arcane/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	logLimit     int
	logReverse   bool
	logActor     string
	logOperation string
	logSince     string
	logUntil     string
	logOneline   bool
	logJSON      bool
)

func init() {
	logCmd.Flags().IntVarP(&logLimit, "number", "n", 0, "limit number of entries shown")
	logCmd.Flags().BoolVar(&logReverse, "reverse", false, "show most recent entries first")
	logCmd.Flags().StringVar(&logActor, "actor", "", "filter by public key or machine:<fingerprint> (prefix match)")
	logCmd.Flags().StringVar(&logOperation, "operation", "", "filter by operation type (comma-separated)")
	logCmd.Flags().StringVar(&logSince, "since", "", "show entries after date (YYYY-MM-DD)")
	logCmd.Flags().StringVar(&logUntil, "until", "", "show entries before date (YYYY-MM-DD)")
	logCmd.Flags().BoolVar(&logOneline, "oneline", false, "compact one-line format")
	logCmd.Flags().BoolVar(&logJSON, "json", false, "output as JSON array")
}

// resetLogCommandState resets the log command's global state for testing.
func resetLogCommandState() {
	logLimit = 0
	logReverse = false
	logActor = ""
	logOperation = ""
	logSince = ""
	logUntil = ""
	logOneline = false
	logJSON = false
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View the audit log",
	Long: `Displays the audit log of key operations kept in .git/arcane/audit.jsonl.

Shows who granted, revoked or rotated what and when. Use filters to narrow
down the results.

Examples:
  arcane log                                  # View full log
  arcane log -n 10                            # Last 10 entries
  arcane log --reverse                        # Most recent first
  arcane log --actor age1qy                   # Filter by actor
  arcane log --operation member-add,rotate    # Filter by operation
  arcane log --since 2024-01-01               # Filter by date
  arcane log --json                           # JSON output`,
	Args: cobra.NoArgs,
	RunE: runLog,
}

func runLog(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting log command")

	spinner, cleanup := startSpinner("Loading audit log...")
	defer cleanup()

	s, err := newSession(true)
	if err != nil {
		return fail(spinner, err)
	}

	result, err := workflows.Log(context.Background(), s, workflows.LogOptions{
		Limit:      logLimit,
		Reverse:    logReverse,
		Actor:      logActor,
		Operations: logOperation,
		Since:      logSince,
		Until:      logUntil,
	})
	if err != nil {
		if errors.Is(err, kerrors.ErrInvalidDateFormat) {
			spinner.FinalMSG = ui.Failed(err.Error())
			return &ReportedError{Err: err}
		}
		return fail(spinner, err)
	}

	Logger.Debugf("Parsed %d entries from audit log", result.TotalEntriesBeforeFilter)
	Logger.Debugf("After filtering: %d entries", len(result.Entries))

	spinner.FinalMSG = ""
	if len(result.Entries) == 0 {
		if result.TotalEntriesBeforeFilter == 0 {
			fmt.Println("No audit log entries found.")
		} else {
			fmt.Println("No audit log entries found matching the filters.")
		}
		return nil
	}

	switch {
	case logJSON:
		return outputLogJSON(result.Entries)
	case logOneline:
		outputLogOneline(result.Entries)
	default:
		outputLogDefault(result.Entries)
	}
	return nil
}

func outputLogJSON(entries []audit.Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entries to JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func outputLogOneline(entries []audit.Entry) {
	for _, e := range entries {
		fmt.Printf("%s %s %s %s\n", formatDate(e.Timestamp), utils.ShortKey(e.Actor), e.Operation, formatDetails(e))
	}
}

func outputLogDefault(entries []audit.Entry) {
	for _, e := range entries {
		fmt.Printf("%-19s  %-20s  %-14s  %s\n", formatDateTime(e.Timestamp), utils.ShortKey(e.Actor), e.Operation, formatDetails(e))
	}
}

func parseTimestamp(ts string) (time.Time, bool) {
	t, err := time.Parse(audit.TimeFormat, ts)
	if err != nil {
		t, err = time.Parse(time.RFC3339, ts)
	}
	return t, err == nil
}

// formatDate renders a timestamp as a local date, or the raw value if it
// cannot be parsed.
func formatDate(ts string) string {
	t, ok := parseTimestamp(ts)
	if !ok {
		return ts
	}
	return t.Local().Format("2006-01-02")
}

func formatDateTime(ts string) string {
	t, ok := parseTimestamp(ts)
	if !ok {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// formatDetails summarizes the operation-specific fields of an entry.
func formatDetails(e audit.Entry) string {
	var parts []string
	add := func(label, value string) {
		if value != "" {
			parts = append(parts, label+"="+value)
		}
	}
	add("alias", e.Alias)
	add("team", e.Team)
	add("machine", e.Fingerprint)
	add("invite", e.Invite)
	add("era", e.Era)
	if len(e.Kept) > 0 {
		add("kept", strings.Join(e.Kept, ","))
	}
	if len(e.Skipped) > 0 {
		add("skipped", strings.Join(e.Skipped, ","))
	}
	if len(e.Files) > 0 {
		add("files", strings.Join(e.Files, ","))
	}
	if e.Operation == "scan" {
		parts = append(parts, fmt.Sprintf("findings=%d", e.Findings))
	}
	if e.Via != "" {
		parts = append(parts, "via "+e.Via)
	}
	return strings.Join(parts, " ")
}
