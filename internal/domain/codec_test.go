package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeQuotes(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      []Quote
		wantParse bool
	}{
		{
			name:  "valid array",
			input: `[{"text":"a","category":"x"},{"text":"b","category":"y"}]`,
			want:  []Quote{{Text: "a", Category: "x"}, {Text: "b", Category: "y"}},
		},
		{
			name:  "drops wrong shapes",
			input: `[{"text":"a","category":"x"},{"text":1,"category":"y"},{"text":"c"},null,"str",42,{"text":"d","category":"z","extra":true}]`,
			want:  []Quote{{Text: "a", Category: "x"}, {Text: "d", Category: "z"}},
		},
		{
			name:  "keeps duplicates and untrimmed values",
			input: `[{"text":" a ","category":"x"},{"text":" a ","category":"x"}]`,
			want:  []Quote{{Text: " a ", Category: "x"}, {Text: " a ", Category: "x"}},
		},
		{
			name:  "empty array",
			input: `[]`,
			want:  []Quote{},
		},
		{
			name:      "object is not an array",
			input:     `{"text":"a","category":"x"}`,
			wantParse: true,
		},
		{
			name:      "null",
			input:     `null`,
			wantParse: true,
		},
		{
			name:      "malformed json",
			input:     `[{"text":`,
			wantParse: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeQuotes("import", []byte(tt.input))

			if tt.wantParse {
				require.Error(t, err)
				assert.True(t, IsParse(err))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeQuotes_NotArrayMessage(t *testing.T) {
	_, err := DecodeQuotes("import", []byte(`"hello"`))

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "expected an array of quotes", perr.Reason)
	assert.Nil(t, perr.Err)
}

func TestEncodeQuotes(t *testing.T) {
	data, err := EncodeQuotes([]Quote{{Text: "a", Category: "x"}})
	require.NoError(t, err)
	assert.Equal(t, "[\n  {\n    \"text\": \"a\",\n    \"category\": \"x\"\n  }\n]", string(data))

	empty, err := EncodeQuotes(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}
