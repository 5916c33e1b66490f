// Package wire contains the descriptors exchanged with the HTTP
// transport, which is an external collaborator: this library never
// performs network I/O itself.
package wire

import (
	"net/http"
	"net/url"
)

// Request describes a fully serialized request ready for a transport
// to execute. The body is always a finalized byte sequence by the time
// the request leaves the serializer.
type Request struct {
	// Method is the HTTP method.
	Method string

	// URLPath is the URL path with any path placeholders already
	// substituted and percent-encoded.
	URLPath string

	// Query contains the query-string parameters.
	Query url.Values

	// Headers contains the request headers.
	Headers http.Header

	// Body is the finalized request body. A nil body means the
	// request carries no body.
	Body []byte
}

// NewRequest creates an empty [Request] with allocated query and
// header maps.
func NewRequest() *Request {
	return &Request{
		Query:   url.Values{},
		Headers: http.Header{},
	}
}

// Response describes a transport response to parse. The caller supplies
// the decoded body bytes; the parser performs no network I/O.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Headers contains the response headers.
	Headers http.Header

	// Body is the raw byte content of the response body.
	Body []byte
}
