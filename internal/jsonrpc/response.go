package jsonrpc

import (
	"encoding/json"
	"errors"
)

// ErrNotEnvelope reports a body that is valid JSON but not a JSON object, so
// it carries neither a result nor an error member.
var ErrNotEnvelope = errors.New("response is not a JSON-RPC object")

// Response is a JSON-RPC response object. Result keeps the raw bytes so a
// present-but-null result is distinguishable from an absent one.
type Response struct {
	Version string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// HasResult reports whether the response carried a result member.
func (r Response) HasResult() bool {
	return len(r.Result) > 0
}

// DecodeResponse parses a response body. Valid JSON that is not an object
// yields ErrNotEnvelope; anything else that fails to decode is returned as is.
func DecodeResponse(data []byte) (Response, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		if json.Valid(data) {
			return Response{}, ErrNotEnvelope
		}
		return Response{}, err
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}
