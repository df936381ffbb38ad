package utils

import (
	"os"
	"regexp"
	"strings"
)

var (
	unsafeNameChars = regexp.MustCompile(`[^a-z0-9\-_]`)
	repeatedHyphens = regexp.MustCompile(`-+`)
)

// GetHostname returns the system hostname.
func GetHostname() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", err
	}
	return hostname, nil
}

// SanitizeName turns a free-form label into something safe to use as an
// alias or file name: lowercase, spaces to hyphens, everything else outside
// [a-z0-9-_] removed. Returns fallback when nothing is left.
func SanitizeName(name, fallback string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "-")
	name = unsafeNameChars.ReplaceAllString(name, "")
	name = repeatedHyphens.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")

	if name == "" {
		return fallback
	}
	return name
}

// MachineLabel returns a label for a freshly generated deploy key, derived
// from the hostname.
func MachineLabel() string {
	hostname, err := GetHostname()
	if err != nil {
		return "machine"
	}
	return SanitizeName(hostname, "machine")
}
