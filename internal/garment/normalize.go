// Package garment implements the pure tagging pipeline: raw classifier
// labels are folded into a canonical vocabulary, the canonical set is
// mapped onto a garment category, and category plus tags drive the
// generation prompt templates. Every function here is total and free of
// side effects; all network-facing behavior lives in the provider packages.
package garment

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Fold canonicalizes a single raw label for table lookup: NFKC form,
// collapsed inner whitespace, lowercase.
func Fold(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(strings.Join(fields, " "))
}

// Normalize maps raw classifier labels into the canonical tag vocabulary.
// Unrecognized labels are dropped, duplicates collapse onto the first
// occurrence, and first-seen order is preserved. Normalize([]) == [].
func Normalize(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, label := range raw {
		canonical, ok := canonicalByTerm[Fold(label)]
		if !ok {
			continue
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}
	return out
}

// Describe renders the canonical tag set as a garment description suitable
// for prompt interpolation and the try-on request. When nothing survives
// normalization the generic fallback keeps downstream prompts well-formed.
func Describe(raw []string) string {
	tags := Normalize(raw)
	if len(tags) == 0 {
		return "fashion garment"
	}
	return strings.Join(tags, ", ")
}
