package utils

import (
	"strings"

	"github.com/arcanehq/arcane/internal/ui"
)

// FormatPaths formats a slice of paths into a readable string.
func FormatPaths(paths []string) string {
	var b strings.Builder
	b.WriteString("\n")
	for _, path := range paths {
		b.WriteString("    - ")
		b.WriteString(ui.Path.Sprint(path))
		b.WriteString("\n")
	}
	return b.String()
}

// ShortKey abbreviates an age public key for tables: the prefix and the
// last eight characters.
func ShortKey(key string) string {
	if len(key) <= 20 {
		return key
	}
	return key[:8] + "…" + key[len(key)-8:]
}
