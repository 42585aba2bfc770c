// Package batch implements the batch request dispatch engine: the registry
// of executable operations, the per-item error normalizer, and the two
// transaction-boundary execution modes.
package batch

import "encoding/json"

// MaxOperations caps the number of sub-requests accepted in one batch call.
const MaxOperations = 1024

// Header is one opaque key/value pair forwarded from a sub-request to its
// response.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Request is one client-submitted sub-operation inside a batch call.
// RequestID is caller-assigned and used purely for correlation. Reference
// optionally names an earlier RequestID whose response feeds this request's
// body and URL through $.token substitution.
type Request struct {
	RequestID   int64           `json:"requestId"`
	RelativeURL string          `json:"relativeUrl"`
	Method      string          `json:"method"`
	Headers     []Header        `json:"headers,omitempty"`
	Reference   *int64          `json:"reference,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
}

// Response is the result of one sub-request, one-to-one and in order with
// the submitted requests. Headers echo the originating request's headers.
type Response struct {
	RequestID  int64           `json:"requestId"`
	StatusCode int             `json:"statusCode"`
	Headers    []Header        `json:"headers,omitempty"`
	Body       json.RawMessage `json:"body"`
}

// ok builds a 200 response for req carrying body.
func ok(req Request, body json.RawMessage) Response {
	return Response{
		RequestID:  req.RequestID,
		StatusCode: 200,
		Headers:    req.Headers,
		Body:       body,
	}
}

// failed builds the response for req carrying a normalized error.
func failed(req Request, info ErrorInfo) Response {
	return Response{
		RequestID:  req.RequestID,
		StatusCode: info.StatusCode,
		Headers:    req.Headers,
		Body:       info.body(),
	}
}
