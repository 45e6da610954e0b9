package server

import (
	"net/http"

	"github.com/bobmcallan/hopstack-mcp/internal/handlers"
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// MCP endpoint (streamable HTTP, all methods)
	r.Handle("/mcp", s.app.MCPHandler)
	r.Handle("/mcp/", s.app.MCPHandler)

	r.HandleFunc("/health", s.app.HealthHandler.ServeHTTP)
	r.HandleFunc("/version", s.app.VersionHandler.ServeHTTP)

	// Catalog views
	r.HandleFunc("/tools.json", s.app.CatalogHandler.ToolsJSON)
	r.HandleFunc("/categories", s.app.CatalogHandler.Categories)
	r.HandleFunc("/tool/*", s.app.CatalogHandler.ToolSchema)

	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleMethodNotAllowed)

	return r
}

// handleNotFound returns a JSON 404 for unmatched routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	handlers.WriteError(w, http.StatusNotFound, "Not Found")
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	handlers.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
}
