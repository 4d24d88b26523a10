// Package expand implements the Path Expander: substituting %TOKEN%
// occurrences in a template string against a variable lookup, returning the
// cross-product of substitutions.
package expand

import (
	"regexp"
	"strings"

	"github.com/blackvault/artifactresolver/internal/model"
)

// tokenPattern matches a %TOKEN% occurrence, also tolerating a doubled '%'
// on either side (%%TOKEN%, %TOKEN%%); a token needs at least one '%' on
// each side.
// Token chars are letters, digits, '_', '.', '-'.
var tokenPattern = regexp.MustCompile(`%?%([A-Za-z0-9_.\-]+)%?%`)

// VarLookup resolves a canonical variable name to its ordered value-set.
// Returning an empty slice means "unresolvable".
type VarLookup func(canonicalName string) []string

// Expander substitutes %TOKEN% templates against a VarLookup.
type Expander struct {
	lookup VarLookup
	warn   func(format string, args ...interface{})
}

// New builds an Expander backed by lookup. warn may be nil, in which case
// warnings are discarded.
func New(lookup VarLookup, warn func(string, ...interface{})) *Expander {
	if warn == nil {
		warn = func(string, ...interface{}) {}
	}
	return &Expander{lookup: lookup, warn: warn}
}

// token is one occurrence of a %TOKEN% found in a template, along with its
// canonicalised variable name.
type token struct {
	raw       string // e.g. "%SystemRoot%"
	canonical string
}

func findTokens(s string) []token {
	matches := tokenPattern.FindAllStringSubmatch(s, -1)
	out := make([]token, 0, len(matches))
	for _, m := range matches {
		out = append(out, token{raw: m[0], canonical: model.CanonicalizeVar(m[1])})
	}
	return out
}

// Expand returns every concrete string obtainable by substituting each
// %TOKEN% in template with each of its resolved values, recursing into
// values that themselves contain tokens. Fails soft: returns an empty slice
// (and a warning) when any token in the template is unresolvable, or when a
// nested substitution yields more than one value (treated as a hard error,
// since an ambiguous nested expansion can't be collapsed back to one string).
func (e *Expander) Expand(template string) []string {
	tokens := findTokens(template)
	results := []string{template}

	for _, tok := range tokens {
		values := e.lookup(tok.canonical)
		if len(values) == 0 {
			e.warn("cannot resolve template %q: %q is unknown", template, tok.raw)
			return nil
		}

		var next []string
		for _, result := range results {
			for _, value := range values {
				replacement := value
				if len(findTokens(value)) > 0 {
					nested := e.Expand(value)
					if len(nested) != 1 {
						e.warn("nested variable replacement in %q found while expanding %q, aborting", value, template)
						return nil
					}
					replacement = nested[0]
				}
				next = append(next, strings.Replace(result, tok.raw, replacement, 1))
			}
		}
		results = next
	}

	return results
}

// ApplySeparator translates separator occurrences to '/' in every result,
// and additionally translates '\' to '/' when onWindows is set.
func ApplySeparator(results []string, separator string, onWindows bool) []string {
	if separator == "" && !onWindows {
		return results
	}
	out := make([]string, len(results))
	for i, r := range results {
		if separator != "" {
			r = strings.ReplaceAll(r, separator, "/")
		}
		if onWindows {
			r = strings.ReplaceAll(r, `\`, "/")
		}
		out[i] = r
	}
	return out
}

// NormalizeDriveLetter rewrites a fully-expanded path beginning with `C:\`
// (any drive letter, case-insensitive) to start with `/`, replacing `\`
// with `/` throughout. Paths without a drive prefix are returned unchanged.
func NormalizeDriveLetter(path string) string {
	if len(path) >= 3 && path[1] == ':' && (path[2] == '\\' || path[2] == '/') {
		return strings.ReplaceAll("/"+path[3:], `\`, "/")
	}
	return path
}
