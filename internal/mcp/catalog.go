package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bobmcallan/hopstack-mcp/internal/catalog"
	"github.com/bobmcallan/hopstack-mcp/internal/common"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// DispatchResult is the echo returned by a dispatched tool.
type DispatchResult struct {
	Tool               string         `json:"tool"`
	Description        string         `json:"description"`
	ParametersReceived map[string]any `json:"parameters_received"`
	Status             string         `json:"status"`
	Note               string         `json:"note"`
}

// BuildMCPTool converts a catalog definition into an mcp.Tool carrying the
// definition's own input schema.
func BuildMCPTool(t catalog.Tool) (mcp.Tool, error) {
	if _, err := t.Schema(); err != nil {
		return mcp.Tool{}, err
	}
	schema := t.InputSchema
	if len(schema) == 0 || string(schema) == "null" {
		schema = json.RawMessage(`{"type":"object"}`)
	}
	return mcp.NewToolWithRawSchema(t.Name, t.Description, schema), nil
}

// DispatchHandler returns the handler for one dispatched definition. It checks
// required parameters and echoes what it received.
func DispatchHandler(t catalog.Tool, params catalog.Parameters) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := r.GetArguments()

		var missing []string
		for _, name := range params.Required {
			if v, ok := args[name]; !ok || v == nil {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			return errorResult(fmt.Sprintf("Error: missing required parameters: %s", strings.Join(missing, ", "))), nil
		}

		received := make(map[string]any, len(params.Required)+len(params.Optional)+len(args))
		for _, name := range params.Optional {
			received[name] = nil
		}
		for k, v := range args {
			received[k] = v
		}

		return jsonResult(DispatchResult{
			Tool:               t.Name,
			Description:        t.Description,
			ParametersReceived: received,
			Status:             "dispatched",
			Note:               "real execution happens elsewhere",
		}), nil
	}
}

// RegisterDispatchTools registers one MCP tool per distinct catalog name and
// returns how many were registered. For repeated names the indexed (last)
// definition wins. Definitions that cannot be built are logged and skipped.
func RegisterDispatchTools(s *server.MCPServer, cat *catalog.Catalog, logger *common.Logger) int {
	index := cat.ByName()
	seen := make(map[string]bool, len(index))
	count := 0

	for _, entry := range cat.All() {
		if seen[entry.Name] {
			logger.Warn().Str("name", entry.Name).Msg("duplicate tool definition, earlier entry shadowed")
			continue
		}
		seen[entry.Name] = true

		t := index[entry.Name]
		tool, err := BuildMCPTool(t)
		if err != nil {
			logger.Warn().Str("name", t.Name).Str("error", err.Error()).Msg("skipping tool with invalid schema")
			continue
		}
		params, err := t.Params()
		if err != nil {
			logger.Warn().Str("name", t.Name).Str("error", err.Error()).Msg("skipping tool with invalid schema")
			continue
		}

		s.AddTool(tool, DispatchHandler(t, params))
		count++
	}

	logger.Info().Int("registered", count).Int("definitions", cat.Len()).Msg("dispatch tools registered")
	return count
}
