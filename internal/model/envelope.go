package model

import (
	"bytes"
	"encoding/json"
)

// ContentTypeJSON is the content type of every envelope response.
const ContentTypeJSON = "application/json;charset=UTF-8"

// Envelope is the uniform response body returned for every inbound request.
type Envelope struct {
	Status int    `json:"status"`
	Reason string `json:"reason"`
	Data   string `json:"data"`
}

// Failure builds an envelope for a gateway-side failure.
func Failure(status int, reason string) Envelope {
	return Envelope{Status: status, Reason: reason}
}

// Marshal encodes the envelope without HTML escaping and without a trailing newline.
func (e Envelope) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
