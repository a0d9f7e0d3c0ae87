package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound,
		ErrConflict,
		ErrValidation,
		ErrUnavailable,
		ErrStorage,
		ErrParse,
		ErrNetwork,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				assert.NotErrorIs(t, a, b,
					"sentinels should be distinct: %v vs %v", a, b)
			}
		}
	}
}

func TestNotFoundError(t *testing.T) {
	tests := []struct {
		name        string
		entity      string
		id          string
		expectedMsg string
	}{
		{
			name:        "with entity and ID",
			entity:      "quote",
			id:          "abc__x",
			expectedMsg: `quote with id "abc__x" not found`,
		},
		{
			name:        "with entity only",
			entity:      "last viewed quote",
			id:          "",
			expectedMsg: "last viewed quote not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewNotFoundError(tt.entity, tt.id)

			assert.Equal(t, tt.expectedMsg, err.Error())
			require.ErrorIs(t, err, ErrNotFound)

			var notFound *NotFoundError
			require.ErrorAs(t, err, &notFound)
			assert.Equal(t, tt.entity, notFound.Entity)
			assert.Equal(t, tt.id, notFound.ID)
		})
	}
}

func TestConflictError(t *testing.T) {
	err := NewConflictError("sync", "already in progress")

	assert.Equal(t, "sync conflict: already in progress", err.Error())
	require.ErrorIs(t, err, ErrConflict)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "sync", conflict.Entity)
	assert.Equal(t, ErrConflict, conflict.Unwrap())
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name        string
		field       string
		message     string
		expectedMsg string
	}{
		{
			name:        "with field",
			field:       "text",
			message:     "please enter a quote",
			expectedMsg: "validation failed for text: please enter a quote",
		},
		{
			name:        "without field",
			field:       "",
			message:     "general validation error",
			expectedMsg: "validation failed: general validation error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidationError(tt.field, tt.message)

			assert.Equal(t, tt.expectedMsg, err.Error())
			require.ErrorIs(t, err, ErrValidation)

			var validation *ValidationError
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, tt.field, validation.Field)
			assert.Equal(t, tt.message, validation.Message)
		})
	}
}

func TestUnavailableError(t *testing.T) {
	tests := []struct {
		name        string
		service     string
		reason      string
		expectedMsg string
	}{
		{
			name:        "with reason",
			service:     "posts-api",
			reason:      "circuit breaker is open",
			expectedMsg: `service "posts-api" unavailable: circuit breaker is open`,
		},
		{
			name:        "without reason",
			service:     "redis",
			reason:      "",
			expectedMsg: `service "redis" unavailable`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewUnavailableError(tt.service, tt.reason)

			assert.Equal(t, tt.expectedMsg, err.Error())
			require.ErrorIs(t, err, ErrUnavailable)

			var unavailable *UnavailableError
			require.ErrorAs(t, err, &unavailable)
			assert.Equal(t, tt.service, unavailable.Service)
			assert.Equal(t, tt.reason, unavailable.Reason)
		})
	}
}

func TestStorageError(t *testing.T) {
	cause := errors.New("disk full")

	t.Run("with cause", func(t *testing.T) {
		err := NewStorageError("set", "quotes", cause)

		assert.Equal(t, `store set "quotes": disk full`, err.Error())
		require.ErrorIs(t, err, ErrStorage)
		require.ErrorIs(t, err, cause)

		var storage *StorageError
		require.ErrorAs(t, err, &storage)
		assert.Equal(t, "set", storage.Op)
		assert.Equal(t, "quotes", storage.Key)
	})

	t.Run("without cause", func(t *testing.T) {
		err := NewStorageError("get", "lastSync", nil)

		assert.Equal(t, `store get "lastSync" failed`, err.Error())
		require.ErrorIs(t, err, ErrStorage)
	})
}

func TestParseError(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")

	t.Run("with cause", func(t *testing.T) {
		err := NewParseError("import", "invalid JSON", cause)

		assert.Equal(t, "parsing import: invalid JSON: unexpected end of JSON input", err.Error())
		require.ErrorIs(t, err, ErrParse)
		require.ErrorIs(t, err, cause)
	})

	t.Run("without cause", func(t *testing.T) {
		err := NewParseError("import", "no valid quotes found", nil)

		assert.Equal(t, "parsing import: no valid quotes found", err.Error())
		require.ErrorIs(t, err, ErrParse)

		var parse *ParseError
		require.ErrorAs(t, err, &parse)
		assert.Equal(t, "import", parse.Source)
	})
}

func TestNetworkError(t *testing.T) {
	tests := []struct {
		name        string
		statusCode  int
		reason      string
		expectedMsg string
	}{
		{
			name:        "with status",
			statusCode:  503,
			reason:      "server error",
			expectedMsg: "posts-api FetchQuotes: HTTP 503: server error",
		},
		{
			name:        "transport failure",
			statusCode:  0,
			reason:      "connection refused",
			expectedMsg: "posts-api FetchQuotes: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewNetworkError("posts-api", "FetchQuotes", tt.statusCode, tt.reason)

			assert.Equal(t, tt.expectedMsg, err.Error())
			require.ErrorIs(t, err, ErrNetwork)

			var network *NetworkError
			require.ErrorAs(t, err, &network)
			assert.Equal(t, tt.statusCode, network.StatusCode)
		})
	}
}

func TestIsHelpers(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		isFunc   func(error) bool
		expected bool
	}{
		{"IsNotFound with NotFoundError", NewNotFoundError("quote", ""), IsNotFound, true},
		{"IsNotFound with wrapped", fmt.Errorf("wrapped: %w", ErrNotFound), IsNotFound, true},
		{"IsNotFound with other error", ErrConflict, IsNotFound, false},
		{"IsNotFound with nil", nil, IsNotFound, false},

		{"IsConflict with ConflictError", NewConflictError("sync", "busy"), IsConflict, true},
		{"IsConflict with other error", ErrNotFound, IsConflict, false},

		{"IsValidation with ValidationError", NewValidationError("text", "empty"), IsValidation, true},
		{"IsValidation with other error", ErrParse, IsValidation, false},

		{"IsUnavailable with UnavailableError", NewUnavailableError("redis", ""), IsUnavailable, true},
		{"IsUnavailable with other error", ErrNetwork, IsUnavailable, false},

		{"IsStorage with StorageError", NewStorageError("get", "quotes", errors.New("x")), IsStorage, true},
		{"IsStorage with wrapped", fmt.Errorf("load: %w", NewStorageError("get", "quotes", nil)), IsStorage, true},
		{"IsStorage with other error", ErrParse, IsStorage, false},

		{"IsParse with ParseError", NewParseError("import", "not an array", nil), IsParse, true},
		{"IsParse with other error", ErrStorage, IsParse, false},

		{"IsNetwork with NetworkError", NewNetworkError("api", "op", 500, "boom"), IsNetwork, true},
		{"IsNetwork with wrapped", fmt.Errorf("sync: %w", NewNetworkError("api", "op", 0, "dial")), IsNetwork, true},
		{"IsNetwork with other error", ErrUnavailable, IsNetwork, false},
		{"IsNetwork with nil", nil, IsNetwork, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.isFunc(tt.err))
		})
	}
}

func TestErrorWrappingChain(t *testing.T) {
	t.Run("deeply wrapped NetworkError", func(t *testing.T) {
		original := NewNetworkError("posts-api", "FetchQuotes", 502, "bad gateway")
		wrapped := fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", original))

		assert.True(t, IsNetwork(wrapped))

		var network *NetworkError
		require.ErrorAs(t, wrapped, &network)
		assert.Equal(t, 502, network.StatusCode)
	})

	t.Run("deeply wrapped StorageError keeps cause", func(t *testing.T) {
		cause := errors.New("database is locked")
		wrapped := fmt.Errorf("persist: %w", NewStorageError("set", "quotes", cause))

		assert.True(t, IsStorage(wrapped))
		require.ErrorIs(t, wrapped, cause)
	})
}
