// Package mcp serves the tool catalog over the Model Context Protocol, either
// as three meta-tools backed by the execution proxy or as one dispatched tool
// per catalog definition.
package mcp

import (
	"net/http"

	"github.com/bobmcallan/hopstack-mcp/internal/catalog"
	"github.com/bobmcallan/hopstack-mcp/internal/common"
	"github.com/bobmcallan/hopstack-mcp/internal/config"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Handler is the HTTP handler for the MCP endpoint.
// It wraps mcp-go's StreamableHTTPServer and delegates to it.
type Handler struct {
	server     *mcpserver.MCPServer
	streamable *mcpserver.StreamableHTTPServer
	logger     *common.Logger
	mode       string
	toolCount  int
}

// NewHandler builds the MCP server for the configured mode over cat.
func NewHandler(cfg *config.Config, cat *catalog.Catalog, logger *common.Logger) *Handler {
	mode := cfg.MCP.Mode
	if mode != config.ModeDispatch {
		mode = config.ModeMeta
	}

	opts := []mcpserver.ServerOption{mcpserver.WithToolCapabilities(true)}
	if mode == config.ModeMeta {
		opts = append(opts, mcpserver.WithInstructions(metaInstructions))
	}
	mcpSrv := mcpserver.NewMCPServer(cfg.MCP.Name, common.GetVersion(), opts...)

	var toolCount int
	switch mode {
	case config.ModeDispatch:
		toolCount = RegisterDispatchTools(mcpSrv, cat, logger)
	default:
		toolCount = RegisterMetaTools(mcpSrv, cat, NewProxy(cfg, cat, logger))
	}

	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithStateLess(true),
	)

	logger.Info().
		Str("mode", mode).
		Int("catalog_tools", cat.Len()).
		Int("mcp_tools", toolCount).
		Str("backend", cfg.Backend.Endpoint()).
		Msg("MCP handler initialized")

	return &Handler{
		server:     mcpSrv,
		streamable: streamable,
		logger:     logger,
		mode:       mode,
		toolCount:  toolCount,
	}
}

// ServeHTTP delegates to the mcp-go StreamableHTTPServer.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.streamable.ServeHTTP(w, r)
}

// Server returns the underlying MCP server, for stdio transport.
func (h *Handler) Server() *mcpserver.MCPServer {
	return h.server
}

// Mode returns the active mode, "meta" or "dispatch".
func (h *Handler) Mode() string {
	return h.mode
}

// ModeLabel is the mode as reported by the health endpoint.
func (h *Handler) ModeLabel() string {
	if h.mode == config.ModeDispatch {
		return "dispatch"
	}
	return "meta-tools"
}

// ToolCount returns the number of registered MCP tools.
func (h *Handler) ToolCount() int {
	return h.toolCount
}
