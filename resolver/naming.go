package resolver

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	hyphenRe     = regexp.MustCompile(`-+`)
	nonWordRe    = regexp.MustCompile(`[^\w]+`)
)

// NormalizeName turns an arbitrary schema or variable name into a token
// that is a valid identifier in the generated code.
func NormalizeName(name string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		name,
	)
	if err != nil {
		folded = name
	}

	out := strings.TrimSpace(folded)
	out = whitespaceRe.ReplaceAllString(out, "_")
	out = hyphenRe.ReplaceAllString(out, "_")
	out = nonWordRe.ReplaceAllString(out, "_")

	if out == "" {
		return "_"
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	return out
}
