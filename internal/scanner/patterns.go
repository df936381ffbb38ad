package scanner

import (
	"fmt"
	"regexp"

	"github.com/arcanehq/arcane/internal/configs"
)

// Pattern is a named credential signature.
type Pattern struct {
	Name   string
	Regexp *regexp.Regexp
}

var defaultPatterns = []Pattern{
	{"AWS Access Key", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"Stripe Live Key", regexp.MustCompile(`sk_live_[0-9a-zA-Z]{24}`)},
	{"Private Key", regexp.MustCompile(`-----BEGIN ([A-Z0-9]+ )*PRIVATE KEY-----`)},
	{"Google API Key", regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`)},
	{"GitHub Token", regexp.MustCompile(`gh[pousr]_[0-9A-Za-z]{36}`)},
	{"Slack Token", regexp.MustCompile(`xox[baprs]-[0-9A-Za-z-]{10,48}`)},
	{"Generic Private Key Assignment", regexp.MustCompile(`(?i)[A-Z0-9_]*PRIVATE_KEY[A-Z0-9_]*\s*=\s*[A-Za-z0-9_\-/+]{20,}`)},
}

// DefaultPatterns returns a copy of the built-in patterns.
func DefaultPatterns() []Pattern {
	return append([]Pattern(nil), defaultPatterns...)
}

// Compile builds a Pattern from a user-supplied expression.
func Compile(name, expr string) (Pattern, error) {
	if name == "" {
		return Pattern{}, fmt.Errorf("scan pattern %q has no name", expr)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("invalid scan pattern %q: %w", name, err)
	}
	return Pattern{Name: name, Regexp: re}, nil
}

// FromConfig compiles the [[scan.patterns]] entries of the user config.
func FromConfig(cfgs []configs.PatternConfig) ([]Pattern, error) {
	out := make([]Pattern, 0, len(cfgs))
	for _, c := range cfgs {
		p, err := Compile(c.Name, c.Regex)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
