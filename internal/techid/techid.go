// Package techid canonicalizes MITRE ATT&CK technique identifiers across the
// notations used by alert sources and the knowledge graph. Alert pipelines
// emit "t1059.001", ontologies mint IRIs like "http://x/ns#T1059_001"; every
// identifier entering the system goes through Normalize so comparisons across
// sources are always valid.
package techid

import (
	"regexp"
	"strings"
)

// Pattern matches a technique identifier in free text: the letter T followed
// by four digits and an optional three-digit sub-technique suffix, matched
// case-insensitively on word boundaries.
var Pattern = regexp.MustCompile(`(?i)\bT\d{4}(?:\.\d{3})?\b`)

// Normalize canonicalizes a technique identifier: trims whitespace, reduces
// an IRI to its trailing fragment, upper-cases, and replaces every '.' with
// '_'. Empty input yields an empty string, never an error. Normalize is
// idempotent.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = LastFragment(s)
	s = strings.ToUpper(s)
	return strings.ReplaceAll(s, ".", "_")
}

// LastFragment returns the trailing fragment of an IRI: the text after the
// last '#' if present, else after the last '/', else the value unchanged.
func LastFragment(iri string) string {
	if i := strings.LastIndexByte(iri, '#'); i >= 0 {
		return iri[i+1:]
	}
	if i := strings.LastIndexByte(iri, '/'); i >= 0 {
		return iri[i+1:]
	}
	return iri
}

// FindAll scans free text for technique identifiers and returns each match
// normalized, in order of appearance. Callers are expected to deduplicate.
func FindAll(text string) []string {
	matches := Pattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, Normalize(m))
	}
	return out
}
