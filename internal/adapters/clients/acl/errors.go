package acl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jsamuelsen/quotesync/internal/adapters/clients"
	"github.com/jsamuelsen/quotesync/internal/domain"
)

// maxErrorBody bounds how much of an error body is read for its message.
const maxErrorBody = 4 << 10

// ErrorResponse is the message and optional code the remote put in an error
// body. The posts API answers errors with `{}`, which carries neither.
type ErrorResponse struct {
	Code    string
	Message string
}

// ParseErrorResponse reads the message from an error body. It understands
// {"error":{"code","message"}}, {"error":"text"} and {"message":"text"}, in
// that order, and returns nil when none of them yields a message.
func ParseErrorResponse(body io.Reader) *ErrorResponse {
	if body == nil {
		return nil
	}

	var raw struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(body, maxErrorBody)).Decode(&raw); err != nil {
		return nil
	}

	var (
		nested ErrorResponse
		text   string
	)

	switch {
	case json.Unmarshal(raw.Error, &nested) == nil && nested.Message != "":
		return &nested
	case json.Unmarshal(raw.Error, &text) == nil && text != "":
		return &ErrorResponse{Message: text}
	case raw.Message != "":
		return &ErrorResponse{Message: raw.Message}
	default:
		return nil
	}
}

// MapHTTPError maps a failed exchange with the remote service to a domain error.
//
//   - any client error (no response, including an open circuit):
//     domain.NetworkError with status 0
//   - a non-2xx response: domain.NetworkError carrying the status code
//
// A 2xx response maps to nil.
func MapHTTPError(resp *http.Response, clientErr error, serviceName, operation string) error {
	if clientErr != nil {
		return mapClientError(clientErr, serviceName, operation)
	}

	if resp == nil {
		return domain.NewNetworkError(serviceName, operation, 0, "no response received")
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	message := defaultMessageForStatus(resp.StatusCode)
	if errResp := ParseErrorResponse(resp.Body); errResp != nil {
		message = errResp.Message
	}

	return domain.NewNetworkError(serviceName, operation, resp.StatusCode, message)
}

func mapClientError(err error, serviceName, operation string) error {
	switch {
	case errors.Is(err, clients.ErrCircuitOpen):
		return domain.NewNetworkError(serviceName, operation, 0, "circuit breaker open")

	case errors.Is(err, context.DeadlineExceeded):
		return domain.NewNetworkError(serviceName, operation, 0, "request timed out")

	case errors.Is(err, context.Canceled):
		return domain.NewNetworkError(serviceName, operation, 0, "request canceled")

	default:
		return domain.NewNetworkError(serviceName, operation, 0, err.Error())
	}
}

func defaultMessageForStatus(status int) string {
	if text := http.StatusText(status); text != "" {
		return text
	}

	return fmt.Sprintf("unexpected status %d", status)
}
