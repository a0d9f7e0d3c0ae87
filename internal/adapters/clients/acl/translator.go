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

// BaseAdapter is embedded by remote adapters such as PostsClient. It sends
// through the resilient client and turns failures into domain errors.
type BaseAdapter struct {
	client      *clients.Client
	serviceName string
}

func NewBaseAdapter(client *clients.Client, serviceName string) BaseAdapter {
	return BaseAdapter{client: client, serviceName: serviceName}
}

func (a *BaseAdapter) Client() *clients.Client { return a.client }

// ServiceName is the remote's name in errors, metrics and health reports.
func (a *BaseAdapter) ServiceName() string { return a.serviceName }

// Get returns the body of a 2xx response to GET path. The caller closes it.
func (a *BaseAdapter) Get(ctx context.Context, path, operation string) (io.ReadCloser, error) {
	return a.exchange(operation, func() (*http.Response, error) {
		return a.client.Get(ctx, path)
	})
}

// Post returns the body of a 2xx response to POST path. The caller closes it.
func (a *BaseAdapter) Post(ctx context.Context, path string, body io.Reader, operation string) (io.ReadCloser, error) {
	return a.exchange(operation, func() (*http.Response, error) {
		return a.client.Post(ctx, path, body)
	})
}

// exchange maps transport failures and any status outside 200-299 to a
// domain.NetworkError for operation.
func (a *BaseAdapter) exchange(operation string, send func() (*http.Response, error)) (io.ReadCloser, error) {
	resp, err := send()
	if err != nil {
		return nil, MapHTTPError(nil, err, a.serviceName, operation)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer func() { _ = resp.Body.Close() }()

		return nil, MapHTTPError(resp, nil, a.serviceName, operation)
	}

	return resp.Body, nil
}

// DecodeResponse decodes a JSON body into T and closes it. A body that does
// not decode is the remote's fault and comes back as a domain.NetworkError.
func DecodeResponse[T any](body io.ReadCloser, serviceName, operation string) (*T, error) {
	if body == nil {
		return nil, domain.NewNetworkError(serviceName, operation, 0, "empty response")
	}
	defer func() { _ = body.Close() }()

	var result T
	if err := json.NewDecoder(body).Decode(&result); err != nil {
		return nil, domain.NewNetworkError(serviceName, operation, 0, "malformed response: "+err.Error())
	}

	return &result, nil
}

// ValidateRequired returns a domain.ValidationError for an empty value.
func ValidateRequired(value, fieldName string) error {
	if value == "" {
		return domain.NewValidationError(fieldName, "is required")
	}

	return nil
}

// Translator turns one remote record into a domain value. A
// domain.ValidationError marks the record as unusable.
type Translator[External any, Domain any] func(ext *External) (Domain, error)

// TranslateValid translates items, skipping and counting those rejected with
// a domain.ValidationError. Any other error aborts the batch.
func TranslateValid[E any, D any](items []E, translate Translator[E, D]) ([]D, int, error) {
	result := make([]D, 0, len(items))
	dropped := 0

	for i := range items {
		translated, err := translate(&items[i])
		if err != nil {
			var verr *domain.ValidationError
			if errors.As(err, &verr) {
				dropped++
				continue
			}

			return nil, dropped, fmt.Errorf("translating item %d: %w", i, err)
		}

		result = append(result, translated)
	}

	return result, dropped, nil
}
