package jsonrpc

import "encoding/json"

// Request is a JSON-RPC request object. Each proxied call is a single
// request/response exchange, so a numeric ID is enough.
type Request struct {
	Version string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// NewRequest builds a request, marshaling params.
func NewRequest(id int64, method string, params any) (Request, error) {
	var raw json.RawMessage
	if params != nil {
		var err error
		raw, err = json.Marshal(params)
		if err != nil {
			return Request{}, err
		}
	}

	return Request{
		Version: Version,
		ID:      id,
		Method:  method,
		Params:  raw,
	}, nil
}

// NewToolCall builds a tools/call request for the named tool. Arguments are
// forwarded verbatim; empty arguments become {}.
func NewToolCall(id int64, name string, arguments json.RawMessage) (Request, error) {
	if len(arguments) == 0 {
		arguments = json.RawMessage("{}")
	}
	return NewRequest(id, MethodToolsCall, CallToolParams{Name: name, Arguments: arguments})
}
