package handlers

import (
	"net/http"

	"github.com/bobmcallan/hopstack-mcp/internal/catalog"
	"github.com/bobmcallan/hopstack-mcp/internal/common"
)

// MCPStatus reports what the MCP endpoint is serving.
type MCPStatus interface {
	ModeLabel() string
	ToolCount() int
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status             string `json:"status"`
	Tools              int    `json:"tools"`
	Mode               string `json:"mode"`
	RegisteredMCPTools int    `json:"registered_mcp_tools"`
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	logger  *common.Logger
	catalog *catalog.Catalog
	mcp     MCPStatus
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(logger *common.Logger, cat *catalog.Catalog, status MCPStatus) *HealthHandler {
	return &HealthHandler{logger: logger, catalog: cat, mcp: status}
}

// ServeHTTP handles GET /health.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:             "ok",
		Tools:              h.catalog.Len(),
		Mode:               h.mcp.ModeLabel(),
		RegisteredMCPTools: h.mcp.ToolCount(),
	})
}
