// Package normalize provides canonicalization of user-supplied tag names.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Matches runs of whitespace (for collapsing to a single space).
var whitespaceRe = regexp.MustCompile(`\s+`)

// TagName converts raw user input to the canonical tag name used for
// identity. Tag names are case-insensitive and whitespace-trimmed; the
// normalized form is the unique key in storage.
//
// Normalization rules:
//  1. Unicode NFKC normalization (compatibility forms collapse)
//  2. Strip null bytes
//  3. Trim surrounding whitespace and lowercase
//  4. Collapse internal whitespace runs to a single space
//
// Examples:
//
//	"Java"        → "java"
//	"  Spring  "  → "spring"
//	"Slow  Burn"  → "slow burn"
//	"   "         → ""
//
// An empty result means the input carried no usable name and must be
// discarded by the caller.
func TagName(raw string) string {
	s := norm.NFKC.String(raw)

	// Null bytes show up in copy-pasted input and break both storage
	// uniqueness and JSON round-trips.
	s = strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, s)

	s = strings.ToLower(strings.TrimSpace(s))
	s = whitespaceRe.ReplaceAllString(s, " ")

	return s
}

// TagNames normalizes a list of raw names, discarding empties and
// collapsing duplicates. Order of first appearance is preserved.
func TagNames(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		n := TagName(r)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
