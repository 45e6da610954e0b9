package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/bobmcallan/hopstack-mcp/internal/cache"
	"github.com/bobmcallan/hopstack-mcp/internal/catalog"
	"github.com/bobmcallan/hopstack-mcp/internal/common"
	"github.com/go-chi/chi/v5"
)

// CatalogHandler serves read-only views of the tool catalog.
// Rendered /tools.json bodies are cached per query since the catalog is fixed.
type CatalogHandler struct {
	logger  *common.Logger
	catalog *catalog.Catalog
	exports *cache.RenderCache
}

// NewCatalogHandler creates a catalog handler.
func NewCatalogHandler(logger *common.Logger, cat *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{
		logger:  logger,
		catalog: cat,
		exports: cache.New(cache.DefaultMaxEntries),
	}
}

// ToolsJSON handles GET /tools.json?compact=1&names_only=1&category=X&limit=N&offset=N.
func (h *CatalogHandler) ToolsJSON(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	q := r.URL.Query()
	opts := catalog.ExportOptions{
		Compact:   q.Get("compact") == "1",
		NamesOnly: q.Get("names_only") == "1",
		Category:  q.Get("category"),
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "offset must be an integer")
		return
	}
	hasLimit := q.Get("limit") != ""
	if hasLimit {
		opts.Limit = &limit
	}
	opts.Offset = offset

	key := cache.MakeKey("tools.json", opts.Category, hasLimit, limit, opts.Offset, opts.Compact, opts.NamesOnly)
	body, err := h.exports.GetOrRender(key, func() ([]byte, error) {
		data, err := json.Marshal(h.catalog.Export(opts))
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	})
	if err != nil {
		if h.logger != nil {
			h.logger.Error().Err(err).Msg("failed to render tool export")
		}
		WriteError(w, http.StatusInternalServerError, "failed to render tools")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// ToolSchema handles GET /tool/{name}/schema. The name may itself contain slashes.
func (h *CatalogHandler) ToolSchema(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	rest := chi.URLParam(r, "*")
	raw, ok := strings.CutSuffix(rest, "/schema")
	if !ok || raw == "" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	name, err := url.PathUnescape(raw)
	if err != nil {
		name = raw
	}

	tool, found := h.catalog.Lookup(name)
	if !found {
		WriteError(w, http.StatusNotFound, catalog.NotFoundMessage(name))
		return
	}
	WriteJSON(w, http.StatusOK, tool)
}

// Categories handles GET /categories.
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, h.catalog.Categories())
}
