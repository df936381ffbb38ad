// Package ui provides semantic text formatting for CLI output.
//
// Formatters colorize when the terminal allows it and fall back to plain
// decorations (backticks, quotes, angles) when NO_COLOR is set or the
// output is not a color terminal.
//
//	ui.Code.Sprint("arcane init")          // commands
//	ui.Path.Sprint(".git/arcane/keys")     // paths
//	ui.Highlight.Sprint("team:backend")    // aliases, teams, fingerprints
//	ui.Secret.Sprint(secret)               // key material shown once
//
// Done, Failed and Hint build the "✓", "✗" and "→ Run ..." lines used as
// spinner final messages.
package ui
