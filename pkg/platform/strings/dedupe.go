// Package strings normalizes list-valued settings such as broker addresses.
package strings

import "strings"

// Normalize trims each entry and drops blanks and repeats, keeping the first
// occurrence. A nil or empty input comes back as nil.
func Normalize(entries []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

// SplitList splits a comma separated setting and normalizes the parts.
func SplitList(s string) []string {
	return Normalize(strings.Split(s, ","))
}
