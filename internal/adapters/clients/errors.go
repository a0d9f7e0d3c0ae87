// Package clients provides the instrumented HTTP client used to reach the remote posts resource.
package clients

import "errors"

// Transport failures returned by Client.Do. The acl package turns them into
// domain errors for the posts resource.
var (
	// ErrCircuitOpen means the breaker rejected the call without sending it.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrMaxRetriesExceeded wraps the last attempt's error once every retry
	// has failed.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)
