// Package jsonrpc defines the JSON-RPC 2.0 envelope used to forward tool
// calls to the backend MCP server.
package jsonrpc

import "encoding/json"

// Version is the JSON-RPC protocol version sent on every request.
const Version = "2.0"

// MethodToolsCall is the MCP method that executes a tool.
const MethodToolsCall = "tools/call"

// CallToolParams are the params of a tools/call request. Arguments hold the
// caller's JSON unchanged, so numbers keep their exact text.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}
