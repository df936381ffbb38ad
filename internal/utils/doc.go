// Package utils provides shared utility functions for arcane.
//
// # Filesystem Utilities
//
//   - FindRepoRoot: walks up directories to find the enclosing git repository
//   - FormatPaths: formats file paths for human-readable output
//
// # System Utilities
//
//   - GetHostname: returns the system hostname
//   - SanitizeName: normalizes a free-form label into a safe file name
//   - MachineLabel: a default label for a deploy machine
//
// # I/O Utilities
//
//   - ReadStdin: reads all data from standard input
//   - IsTerminal: checks whether stdin is a terminal
package utils
