// Package model defines the per-request values passed between the handler,
// service and client layers.
package model

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"
)

// ForwardPayload is the inbound JSON body describing the call to perform.
// Fields are validated by the service layer before use; Timeout is kept raw
// because callers send it either as a string or as a number.
type ForwardPayload struct {
	Method  string          `json:"method"`
	URL     string          `json:"url"`
	Body    string          `json:"body"`
	Headers string          `json:"headers"` // JSON-encoded object, not an object
	Timeout json.RawMessage `json:"timeout"`
}

// OutboundRequest is the normalized description of the outbound call.
type OutboundRequest struct {
	Method  string
	URL     *url.URL
	Header  http.Header
	Body    string // empty means no body is attached
	Timeout time.Duration
}

// HasBody reports whether a request body should be sent.
func (r *OutboundRequest) HasBody() bool {
	return r.Body != ""
}
