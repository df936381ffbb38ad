// Package scanner finds credentials in plaintext files before they are
// committed.
//
// A Scanner holds an ordered list of named regular expressions. Scan reports
// which of them match a piece of text; ScanFile does the same for a file,
// silently skipping binary and oversized content. ScanRepository walks a
// working tree, honoring .gitignore files at every level, and scans the
// remaining files concurrently.
package scanner
