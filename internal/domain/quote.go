// Package domain contains core business entities and rules.
package domain

import (
	"strings"
)

// keySeparator joins the normalized text and category in a quote key.
const keySeparator = "__"

// ServerCategory is the category assigned to every quote pulled from the remote resource.
const ServerCategory = "server"

// Quote is a quotation tagged with a free-form category.
// It carries no identity field; identity is derived from content via Key.
type Quote struct {
	// Text is the quotation itself.
	Text string `json:"text"`

	// Category groups quotes for filtering.
	Category string `json:"category"`
}

// NewQuote trims both fields and validates them.
func NewQuote(text, category string) (Quote, error) {
	q := Quote{
		Text:     strings.TrimSpace(text),
		Category: strings.TrimSpace(category),
	}

	if err := q.Validate(); err != nil {
		return Quote{}, err
	}

	return q, nil
}

// Validate reports whether both fields are non-empty after trimming.
func (q Quote) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return NewValidationError("text", "please enter a quote")
	}

	if strings.TrimSpace(q.Category) == "" {
		return NewValidationError("category", "please enter a category")
	}

	return nil
}

// Key derives the merge identity of the quote from its current field values.
// Two quotes are the same entity iff their keys are equal.
func (q Quote) Key() string {
	return strings.ToLower(q.Text) + keySeparator + strings.ToLower(q.Category)
}

// Matches reports whether the quote passes a category filter and a search term.
// An empty or "all" category matches everything; comparison is case-insensitive.
// The search term is matched as a case-insensitive substring of text or category.
func (q Quote) Matches(category, search string) bool {
	if !MatchesCategory(q, category) {
		return false
	}

	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return true
	}

	return strings.Contains(strings.ToLower(q.Text), search) ||
		strings.Contains(strings.ToLower(q.Category), search)
}

// DefaultQuotes returns the starter set used when nothing usable is stored.
// A fresh slice is returned on every call.
func DefaultQuotes() []Quote {
	return []Quote{
		{Text: "Simplicity is the soul of efficiency.", Category: "productivity"},
		{Text: "Programs must be written for people to read.", Category: "software"},
		{Text: "First, solve the problem. Then, write the code.", Category: "software"},
		{Text: "The only way to learn a new programming language is by writing programs in it.", Category: "learning"},
		{Text: "Performance is a feature.", Category: "engineering"},
	}
}
