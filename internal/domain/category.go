package domain

import (
	"slices"
	"strings"
)

// AllCategories is the filter value that disables category filtering.
const AllCategories = "all"

// Categories returns the distinct, trimmed, non-empty categories present in quotes,
// sorted lexicographically. Distinctness is case-sensitive.
func Categories(quotes []Quote) []string {
	seen := make(map[string]struct{}, len(quotes))
	out := make([]string, 0, len(quotes))

	for _, q := range quotes {
		c := strings.TrimSpace(q.Category)
		if c == "" {
			continue
		}

		if _, ok := seen[c]; ok {
			continue
		}

		seen[c] = struct{}{}
		out = append(out, c)
	}

	slices.Sort(out)

	return out
}

// MatchesCategory reports whether q belongs to category, case-insensitively.
// An empty category or AllCategories matches every quote.
func MatchesCategory(q Quote, category string) bool {
	category = strings.TrimSpace(category)
	if category == "" || strings.EqualFold(category, AllCategories) {
		return true
	}

	return strings.EqualFold(q.Category, category)
}

// Filter returns the quotes that match both the category and the search term.
// The returned slice never aliases the input.
func Filter(quotes []Quote, category, search string) []Quote {
	out := make([]Quote, 0, len(quotes))

	for _, q := range quotes {
		if q.Matches(category, search) {
			out = append(out, q)
		}
	}

	return out
}
