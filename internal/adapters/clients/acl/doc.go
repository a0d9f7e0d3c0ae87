// Package acl is the anti-corruption layer between the remote posts resource
// and the quote domain.
//
// Remote DTOs never leave this package. [PostsClient] turns posts into
// [domain.Quote] values on the way in and quotes into posts on the way out,
// and [MapHTTPError] turns transport failures and non-2xx responses into
// domain errors so callers only ever branch on domain.IsNetwork. Only the
// health check reports an open circuit as domain.IsUnavailable.
//
// # Package Components
//
//   - [BaseAdapter]: embeddable GET/POST helpers with error mapping
//   - [DecodeResponse]: JSON body decoding into a DTO, failures as domain.NetworkError
//   - [TranslateValid]: slice translation that drops records failing validation
//   - [ParseErrorResponse]: best-effort parsing of an error body for its message
package acl
