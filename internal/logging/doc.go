// Package logger provides leveled console logging for arcane commands.
//
// Output is prefixed and colored with fatih/color. Two flags control
// verbosity:
//
//   - --verbose: info and warning messages
//   - --debug: everything, including per-envelope resolution attempts
//
// Without flags only WarnfAlways and Errorf produce output.
//
// # Filter Commands
//
// The clean and smudge filters stream file content over stdout, so they
// construct their logger with Out set to os.Stderr:
//
//	log := Logger{Debug: debug, Out: os.Stderr}
package logger
