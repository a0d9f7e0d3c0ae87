package domain

import (
	"encoding/json"
)

// looseQuote accepts any JSON shape for the two fields so that non-string
// values can be told apart from missing ones.
type looseQuote struct {
	Text     any `json:"text"`
	Category any `json:"category"`
}

// DecodeQuotes parses a JSON array of quotes. Elements that are not objects
// with string text and category are dropped. The input must be an array,
// otherwise a ParseError is returned; an array with no usable element yields
// an empty slice and no error.
func DecodeQuotes(source string, data []byte) ([]Quote, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		var v any
		if json.Unmarshal(data, &v) == nil {
			return nil, NewParseError(source, "expected an array of quotes", nil)
		}

		return nil, NewParseError(source, "invalid JSON", err)
	}

	if raw == nil {
		return nil, NewParseError(source, "expected an array of quotes", nil)
	}

	quotes := make([]Quote, 0, len(raw))
	for _, item := range raw {
		var lq looseQuote
		if err := json.Unmarshal(item, &lq); err != nil {
			continue
		}

		text, ok := lq.Text.(string)
		if !ok {
			continue
		}

		category, ok := lq.Category.(string)
		if !ok {
			continue
		}

		quotes = append(quotes, Quote{Text: text, Category: category})
	}

	return quotes, nil
}

// EncodeQuotes renders quotes as indented JSON. A nil slice encodes as [].
func EncodeQuotes(quotes []Quote) ([]byte, error) {
	if quotes == nil {
		quotes = []Quote{}
	}

	return json.MarshalIndent(quotes, "", "  ")
}
