package mcp

import (
	"context"
	"encoding/json"

	"github.com/bobmcallan/hopstack-mcp/internal/catalog"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Meta-tool names.
const (
	ToolListAvailable = "list_available_tools"
	ToolGetSchema     = "get_tool_schema"
	ToolExecute       = "execute_ue_tool"
)

// metaInstructions is sent to clients on initialize in meta mode.
const metaInstructions = `This server fronts a large catalog of Unreal Engine editor tools through three meta-tools.
1. Call list_available_tools to browse or search (filter by category, page with limit/offset).
2. Call get_tool_schema with a tool name to see its full parameter schema.
3. Call execute_ue_tool with the tool name and a JSON object of arguments to run it in the editor.`

// RegisterMetaTools registers the three discovery and execution tools.
func RegisterMetaTools(s *server.MCPServer, cat *catalog.Catalog, p *Proxy) int {
	s.AddTool(listAvailableTool(), listAvailableHandler(cat))
	s.AddTool(getSchemaTool(), getSchemaHandler(cat))
	s.AddTool(executeTool(), executeHandler(p))
	return 3
}

func listAvailableTool() mcp.Tool {
	return mcp.NewTool(ToolListAvailable,
		mcp.WithDescription("List available Unreal Engine tools with pagination. Filter by category (the name prefix before '.' or '_') and/or a search term matched against names and descriptions."),
		mcp.WithString("category", mcp.Description("Category prefix, e.g. 'blueprintgraph' or 'material'")),
		mcp.WithString("search", mcp.Description("Case-insensitive text to match in tool names or descriptions")),
		mcp.WithNumber("limit", mcp.Description("Maximum tools to return (max 200)"), mcp.DefaultNumber(catalog.DefaultListLimit)),
		mcp.WithNumber("offset", mcp.Description("Number of tools to skip"), mcp.DefaultNumber(0)),
	)
}

func listAvailableHandler(cat *catalog.Catalog) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(cat.List(catalog.ListOptions{
			Category: r.GetString("category", ""),
			Search:   r.GetString("search", ""),
			Limit:    r.GetInt("limit", catalog.DefaultListLimit),
			Offset:   r.GetInt("offset", 0),
		})), nil
	}
}

func getSchemaTool() mcp.Tool {
	return mcp.NewTool(ToolGetSchema,
		mcp.WithDescription("Get the full input schema of a tool. Call this before execute_ue_tool to learn the required parameters."),
		mcp.WithString("tool_name", mcp.Required(), mcp.Description("Exact tool name from list_available_tools")),
	)
}

func getSchemaHandler(cat *catalog.Catalog) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := r.RequireString("tool_name")
		if err != nil {
			return errorResult("Error: tool_name parameter is required"), nil
		}
		return jsonResult(cat.Schema(name)), nil
	}
}

func executeTool() mcp.Tool {
	return mcp.NewTool(ToolExecute,
		mcp.WithDescription("Execute an Unreal Engine tool in the running editor."),
		mcp.WithString("tool_name", mcp.Required(), mcp.Description("Tool name from list_available_tools")),
		mcp.WithString("arguments", mcp.Description(`Tool arguments as a JSON object string, e.g. {"actor": "Cube"}`), mcp.DefaultString("{}")),
	)
}

func executeHandler(p *Proxy) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := r.RequireString("tool_name")
		if err != nil {
			return errorResult("Error: tool_name parameter is required"), nil
		}
		return jsonResult(p.Execute(ctx, name, argumentsString(r))), nil
	}
}

// argumentsString accepts the arguments parameter as a JSON string or as an
// already-decoded object.
func argumentsString(r mcp.CallToolRequest) string {
	v, ok := r.GetArguments()["arguments"]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	out, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(out)
}
