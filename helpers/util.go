package helpers

import (
	"strings"
)

// Slugify lower-cases s, trims it and collapses internal whitespace runs into sep.
func Slugify(s string, sep string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), sep)
}

// CleanText trims s and collapses internal whitespace runs into single spaces.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ContainsAnyFold reports whether s contains any of tokens, ignoring case.
func ContainsAnyFold(s string, tokens []string) bool {
	lower := strings.ToLower(s)
	for _, token := range tokens {
		token = strings.ToLower(strings.TrimSpace(token))
		if token != "" && strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

// SplitList splits a comma separated list, dropping empty entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
