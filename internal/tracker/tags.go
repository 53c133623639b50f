package tracker

import "strings"

// NormalizeTags canonicalizes a tag string: lower-cased, collapsed to
// single spaces, duplicate tokens dropped (first occurrence wins).
// The result is stable under repeated normalization.
func NormalizeTags(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 {
		return ""
	}
	seen := make(map[string]struct{}, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}

// TagList splits a normalized tag string into its tokens.
func TagList(s string) []string {
	return strings.Fields(s)
}
