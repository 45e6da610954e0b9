package mcp

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

// errorResult creates an MCP error result.
func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}

// jsonResult marshals v into a single text content block.
func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.Marshal(v)
	if err != nil {
		return errorResult("failed to marshal result: " + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(out))},
	}
}
