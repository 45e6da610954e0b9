package catalog

import (
	"encoding/json"
	"sort"
	"strings"
)

const (
	// DefaultListLimit is the page size used when a caller does not ask for one.
	DefaultListLimit = 50
	// MaxListLimit caps the page size of List regardless of the requested limit.
	MaxListLimit = 200
	// maxSummaryLen is the description length kept in listings.
	maxSummaryLen = 100
	// generalCategory is assigned to names with neither separator.
	generalCategory = "general"
)

// Catalog is the ordered set of loaded definitions plus a name index.
// It is never mutated after construction and is safe for concurrent readers.
type Catalog struct {
	tools  []Tool
	byName map[string]Tool
}

// New builds a catalog from definitions in load order. When names repeat the
// sequence keeps every entry and the index keeps the last one.
func New(tools []Tool) *Catalog {
	c := &Catalog{
		tools:  make([]Tool, len(tools)),
		byName: make(map[string]Tool, len(tools)),
	}
	copy(c.tools, tools)
	for _, t := range c.tools {
		c.byName[t.Name] = t
	}
	return c
}

// Len returns the number of loaded definitions, duplicates included.
func (c *Catalog) Len() int {
	return len(c.tools)
}

// All returns the definitions in load order.
func (c *Catalog) All() []Tool {
	out := make([]Tool, len(c.tools))
	copy(out, c.tools)
	return out
}

// ByName returns a copy of the name index.
func (c *Catalog) ByName() map[string]Tool {
	out := make(map[string]Tool, len(c.byName))
	for k, v := range c.byName {
		out[k] = v
	}
	return out
}

// Lookup resolves a name exactly, then case-insensitively in catalog order.
func (c *Catalog) Lookup(name string) (Tool, bool) {
	if t, ok := c.byName[name]; ok {
		return t, true
	}
	for _, t := range c.tools {
		if strings.EqualFold(t.Name, name) {
			return c.byName[t.Name], true
		}
	}
	return Tool{}, false
}

// Category derives the category of a tool name: the prefix before the first
// ".", else before the first "_", else "general".
func Category(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	if i := strings.IndexByte(name, '_'); i >= 0 {
		return name[:i]
	}
	return generalCategory
}

// Categories returns the sorted set of categories across the catalog.
func (c *Catalog) Categories() []string {
	seen := make(map[string]struct{})
	for _, t := range c.tools {
		seen[Category(t.Name)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for cat := range seen {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}

// Filter returns the definitions matching both a category and a search term.
// Empty arguments do not filter.
func (c *Catalog) Filter(category, search string) []Tool {
	out := c.tools
	if category != "" {
		out = filterTools(out, func(t Tool) bool {
			return matchesCategory(t.Name, category, true)
		})
	}
	if search != "" {
		needle := strings.ToLower(search)
		out = filterTools(out, func(t Tool) bool {
			return strings.Contains(strings.ToLower(t.Name), needle) ||
				strings.Contains(strings.ToLower(t.Description), needle)
		})
	}
	if len(out) == len(c.tools) {
		return c.All()
	}
	return out
}

// ListOptions selects and pages a listing.
type ListOptions struct {
	Category string
	Search   string
	Limit    int
	Offset   int
}

// ListResult is one page of a listing.
type ListResult struct {
	Tools      []Summary `json:"tools"`
	Total      int       `json:"total"`
	Returned   int       `json:"returned"`
	HasMore    bool      `json:"has_more"`
	Categories []string  `json:"categories,omitempty"`
}

// List filters, then pages in catalog order. The limit is taken as given up
// to MaxListLimit. Categories are only attached to the unfiltered first page.
func (c *Catalog) List(opts ListOptions) ListResult {
	filtered := c.Filter(opts.Category, opts.Search)
	total := len(filtered)

	limit := min(opts.Limit, MaxListLimit)
	limit = max(limit, 0)
	offset := max(opts.Offset, 0)

	page := window(filtered, offset, limit)
	summaries := make([]Summary, 0, len(page))
	for _, t := range page {
		summaries = append(summaries, Summary{
			Name:        t.Name,
			Description: truncate(t.Description, maxSummaryLen, "..."),
		})
	}

	result := ListResult{
		Tools:    summaries,
		Total:    total,
		Returned: len(summaries),
		HasMore:  offset+limit < total,
	}
	if opts.Category == "" && opts.Search == "" && offset == 0 {
		result.Categories = c.Categories()
	}
	return result
}

// SchemaResult is the outcome of a schema lookup. Absence is a value, not an error.
type SchemaResult struct {
	Found       bool            `json:"found"`
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
	Error       string          `json:"error,omitempty"`
	Suggestion  string          `json:"suggestion,omitempty"`
}

// MarshalJSON emits the found and not-found shapes without empty placeholders.
func (r SchemaResult) MarshalJSON() ([]byte, error) {
	if !r.Found {
		return json.Marshal(struct {
			Found      bool   `json:"found"`
			Error      string `json:"error"`
			Suggestion string `json:"suggestion"`
		}{false, r.Error, r.Suggestion})
	}
	return json.Marshal(struct {
		Found       bool            `json:"found"`
		Name        string          `json:"name"`
		Description string          `json:"description"`
		InputSchema json.RawMessage `json:"inputSchema"`
	}{true, r.Name, r.Description, r.InputSchema})
}

// NotFoundMessage is the user-facing message for an unknown tool name.
func NotFoundMessage(name string) string {
	return "Tool '" + name + "' not found"
}

// ListSuggestion points callers at the discovery meta-tool.
const ListSuggestion = "Use list_available_tools to find available tools"

// Schema returns the full parameter schema of a tool.
func (c *Catalog) Schema(name string) SchemaResult {
	t, ok := c.Lookup(name)
	if !ok {
		return SchemaResult{
			Found:      false,
			Error:      NotFoundMessage(name),
			Suggestion: ListSuggestion,
		}
	}
	return SchemaResult{
		Found:       true,
		Name:        t.Name,
		Description: t.Description,
		InputSchema: t.SchemaOrEmpty(),
	}
}

// ExportOptions selects the /tools.json view. A nil Limit means no limit;
// a given limit always slices, so zero yields an empty page.
type ExportOptions struct {
	Compact   bool
	NamesOnly bool
	Category  string
	Limit     *int
	Offset    int
}

// Export renders the catalog for plain HTTP consumers: full definitions,
// compact summaries, or bare names. Only prefix category matches apply here,
// and without a limit everything from the offset on is returned.
func (c *Catalog) Export(opts ExportOptions) any {
	tools := c.tools
	if opts.Category != "" {
		tools = filterTools(tools, func(t Tool) bool {
			return matchesCategory(t.Name, opts.Category, false)
		})
	}

	offset := max(opts.Offset, 0)
	switch {
	case opts.Limit != nil:
		tools = window(tools, offset, *opts.Limit)
	case offset > 0:
		tools = window(tools, offset, len(tools))
	}

	switch {
	case opts.NamesOnly:
		names := make([]string, len(tools))
		for i, t := range tools {
			names[i] = t.Name
		}
		return names
	case opts.Compact:
		out := make([]Summary, len(tools))
		for i, t := range tools {
			out[i] = Summary{Name: t.Name, Description: truncate(t.Description, maxSummaryLen, "")}
		}
		return out
	default:
		out := make([]Tool, len(tools))
		copy(out, tools)
		return out
	}
}

func matchesCategory(name, category string, allowExact bool) bool {
	lname := strings.ToLower(name)
	lcat := strings.ToLower(category)
	return strings.HasPrefix(lname, lcat+".") ||
		strings.HasPrefix(lname, lcat+"_") ||
		(allowExact && lname == lcat)
}

func filterTools(tools []Tool, keep func(Tool) bool) []Tool {
	out := make([]Tool, 0, len(tools))
	for _, t := range tools {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// window returns tools[offset:offset+limit] clamped to the slice bounds.
func window(tools []Tool, offset, limit int) []Tool {
	if offset >= len(tools) || limit <= 0 {
		return nil
	}
	end := len(tools)
	if limit < end-offset {
		end = offset + limit
	}
	return tools[offset:end]
}

// truncate shortens s to at most n runes. When suffix is set the cut keeps
// room for it.
func truncate(s string, n int, suffix string) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	keep := n - len([]rune(suffix))
	return string(r[:keep]) + suffix
}
