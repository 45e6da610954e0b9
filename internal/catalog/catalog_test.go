package catalog

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
)

// --- Helpers ---

func mustParse(t *testing.T, src string) []Tool {
	t.Helper()
	tools, err := Parse([]byte(src), ".json")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return tools
}

func sampleCatalog(t *testing.T) *Catalog {
	t.Helper()
	return New(mustParse(t, `[
		{"_comment": "blueprint graph tools"},
		{
			"name": "blueprintgraph.spawn_function_node",
			"description": "Spawn a function call node in a Blueprint graph.",
			"inputSchema": {
				"type": "object",
				"properties": {
					"blueprint": {"type": "string"},
					"function": {"type": "string"},
					"x": {"type": "number"}
				},
				"required": ["blueprint", "function"]
			}
		},
		{
			"name": "material.set_param",
			"description": "Set a scalar or vector parameter on a material instance.",
			"inputSchema": {
				"type": "object",
				"properties": {"material": {"type": "string"}, "param": {"type": "string"}, "value": {}},
				"required": ["material", "param"]
			}
		},
		{"name": "level_load", "description": "Load a level by path."},
		{"name": "screenshot", "description": "Capture the active viewport."}
	]`))
}

// --- Category ---

func TestCategory(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"blueprintgraph.spawn_function_node", "blueprintgraph"},
		{"level_load", "level"},
		{"material.set_param", "material"},
		{"anim_bp.add_state", "anim_bp"},
		{"screenshot", "general"},
		{".hidden", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Category(tt.name); got != tt.want {
				t.Errorf("Category(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestCategories_SortedUnique(t *testing.T) {
	c := sampleCatalog(t)
	got := strings.Join(c.Categories(), ",")
	want := "blueprintgraph,general,level,material"
	if got != want {
		t.Errorf("Categories() = %q, want %q", got, want)
	}
}

// --- Parse ---

func TestParse_SkipsEntriesWithoutName(t *testing.T) {
	tools := mustParse(t, `[
		{"_comment": "section"},
		{"name": ""},
		{"name": null},
		"not an object",
		42,
		{"name": "a.one", "description": 7}
	]`)
	if len(tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(tools))
	}
	if tools[0].Description != "" {
		t.Errorf("non-string description should become empty, got %q", tools[0].Description)
	}
}

func TestParse_JSONWithComments(t *testing.T) {
	tools := mustParse(t, `[
		// viewport tools
		{"name": "viewport.focus", /* inline */ "description": "Focus the viewport."},
	]`)
	if len(tools) != 1 || tools[0].Name != "viewport.focus" {
		t.Fatalf("unexpected tools: %+v", tools)
	}
}

func TestParse_YAML(t *testing.T) {
	src := `
- name: actor.spawn
  description: Spawn an actor.
  inputSchema:
    type: object
    properties:
      class:
        type: string
    required: [class]
- note: comment entry
`
	tools, err := Parse([]byte(src), ".yml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(tools))
	}
	p, err := tools[0].Params()
	if err != nil {
		t.Fatalf("Params: %v", err)
	}
	if len(p.Required) != 1 || p.Required[0] != "class" {
		t.Errorf("unexpected required params: %v", p.Required)
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	if _, err := Parse([]byte(`{"name": "x"}`), ".json"); err == nil {
		t.Error("expected error for non-array document")
	}
	if _, err := Parse([]byte(`[{`), ".json"); err == nil {
		t.Error("expected error for truncated document")
	}
}

func TestTool_MarshalPreservesSource(t *testing.T) {
	tools := mustParse(t, `[{"name":"a.b","description":"d","x-extra":{"k":1}}]`)
	data, err := json.Marshal(tools[0])
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"x-extra"`) {
		t.Errorf("expected unmodelled fields preserved, got %s", data)
	}

	built := Tool{Name: "c.d", Description: "built"}
	data, _ = json.Marshal(built)
	if string(data) != `{"name":"c.d","description":"built"}` {
		t.Errorf("unexpected marshal of constructed tool: %s", data)
	}
}

// --- Lookup ---

func TestLookup_ExactAndCaseInsensitive(t *testing.T) {
	c := sampleCatalog(t)

	if _, ok := c.Lookup("material.set_param"); !ok {
		t.Error("exact lookup failed")
	}
	got, ok := c.Lookup("MATERIAL.Set_Param")
	if !ok || got.Name != "material.set_param" {
		t.Errorf("case-insensitive lookup = %q, %v", got.Name, ok)
	}
	if _, ok := c.Lookup("material.missing"); ok {
		t.Error("expected miss")
	}
}

func TestNew_DuplicatesLastWins(t *testing.T) {
	c := New(mustParse(t, `[
		{"name": "dup.tool", "description": "first"},
		{"name": "other.tool", "description": "x"},
		{"name": "dup.tool", "description": "second"}
	]`))
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3 (sequence keeps duplicates)", c.Len())
	}
	if got, _ := c.Lookup("dup.tool"); got.Description != "second" {
		t.Errorf("index should keep last entry, got %q", got.Description)
	}
	if got, _ := c.Lookup("DUP.TOOL"); got.Description != "second" {
		t.Errorf("case-insensitive lookup should agree with index, got %q", got.Description)
	}
	if len(c.ByName()) != 2 {
		t.Errorf("ByName() size = %d, want 2", len(c.ByName()))
	}
}

func TestNew_CopiesInput(t *testing.T) {
	in := []Tool{{Name: "a.one"}}
	c := New(in)
	in[0].Name = "mutated"
	if c.All()[0].Name != "a.one" {
		t.Error("catalog should not alias the input slice")
	}
}

// --- Filter ---

func TestFilter_CategoryRules(t *testing.T) {
	c := New([]Tool{
		{Name: "material.set_param"},
		{Name: "material_create"},
		{Name: "materialx.thing"},
		{Name: "material"},
		{Name: "level.load"},
	})

	got := names(c.Filter("Material", ""))
	want := "material.set_param,material_create,material"
	if got != want {
		t.Errorf("Filter(category) = %q, want %q", got, want)
	}
}

func TestFilter_SearchAndCategory(t *testing.T) {
	c := sampleCatalog(t)

	got := names(c.Filter("", "VIEWPORT"))
	if got != "screenshot" {
		t.Errorf("search over description = %q", got)
	}
	got = names(c.Filter("material", "blueprint"))
	if got != "" {
		t.Errorf("category and search should AND, got %q", got)
	}
	got = names(c.Filter("blueprintgraph", "spawn"))
	if got != "blueprintgraph.spawn_function_node" {
		t.Errorf("category+search = %q", got)
	}
}

func names(tools []Tool) string {
	out := make([]string, len(tools))
	for i, t := range tools {
		out[i] = t.Name
	}
	return strings.Join(out, ",")
}

// --- List ---

func manyTools(n int) *Catalog {
	tools := make([]Tool, n)
	for i := range tools {
		tools[i] = Tool{Name: fmt.Sprintf("cat%d.tool_%03d", i%3, i), Description: "tool"}
	}
	return New(tools)
}

func TestList_FirstPageIncludesCategories(t *testing.T) {
	c := sampleCatalog(t)
	res := c.List(ListOptions{Limit: DefaultListLimit})

	if res.Total != 4 || res.Returned != 4 || res.HasMore {
		t.Errorf("unexpected page: total=%d returned=%d has_more=%v", res.Total, res.Returned, res.HasMore)
	}
	if len(res.Categories) != 4 {
		t.Errorf("expected categories on unfiltered first page, got %v", res.Categories)
	}

	res = c.List(ListOptions{Limit: 2, Offset: 2})
	if res.Categories != nil {
		t.Error("categories should be omitted past the first page")
	}
	res = c.List(ListOptions{Category: "material", Limit: 10})
	if res.Categories != nil {
		t.Error("categories should be omitted when filtered")
	}
	data, _ := json.Marshal(res)
	if strings.Contains(string(data), "categories") {
		t.Errorf("categories key should be absent, got %s", data)
	}
}

func TestList_Pagination(t *testing.T) {
	c := manyTools(120)

	var seen []string
	for offset := 0; ; offset += 50 {
		res := c.List(ListOptions{Limit: 50, Offset: offset})
		for _, s := range res.Tools {
			seen = append(seen, s.Name)
		}
		if !res.HasMore {
			break
		}
	}
	if len(seen) != 120 {
		t.Fatalf("paged %d tools, want 120", len(seen))
	}
	for i, name := range seen {
		if name != c.All()[i].Name {
			t.Fatalf("page order diverged at %d: %s", i, name)
		}
	}
}

func TestList_RepeatedCallsReturnSamePage(t *testing.T) {
	c := manyTools(120)
	opts := []ListOptions{
		{Limit: 50},
		{Limit: 50, Offset: 50},
		{Category: "cat1", Limit: 7, Offset: 3},
		{Search: "tool_1", Limit: 20, Offset: 5},
	}

	for _, o := range opts {
		first := c.List(o)

		var wg sync.WaitGroup
		pages := make([]ListResult, 8)
		for i := range pages {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				pages[i] = c.List(o)
			}(i)
		}
		wg.Wait()

		for i, p := range append(pages, c.List(o)) {
			if !reflect.DeepEqual(p, first) {
				t.Errorf("%+v: call %d returned a different page", o, i)
			}
		}
	}
}

func TestList_LimitClamp(t *testing.T) {
	c := manyTools(300)

	res := c.List(ListOptions{Limit: 1000})
	if res.Returned != MaxListLimit || !res.HasMore {
		t.Errorf("returned=%d has_more=%v, want %d/true", res.Returned, res.HasMore, MaxListLimit)
	}

	res = c.List(ListOptions{Limit: -5, Offset: -10})
	if res.Returned != 0 || !res.HasMore {
		t.Errorf("negative limit should yield an empty page with more available, got %d/%v", res.Returned, res.HasMore)
	}

	res = c.List(ListOptions{Limit: 10, Offset: 500})
	if res.Returned != 0 || res.HasMore || res.Total != 300 {
		t.Errorf("offset past end: returned=%d has_more=%v total=%d", res.Returned, res.HasMore, res.Total)
	}
	if res.Tools == nil {
		t.Error("tools should marshal as an empty array, not null")
	}
}

func TestList_TruncatesDescriptions(t *testing.T) {
	long := strings.Repeat("é", 150)
	c := New([]Tool{{Name: "a.long", Description: long}, {Name: "a.short", Description: "short"}})
	res := c.List(ListOptions{Limit: 10})

	got := res.Tools[0].Description
	if len([]rune(got)) != 100 || !strings.HasSuffix(got, "...") {
		t.Errorf("expected 100-rune description ending in ..., got %d runes", len([]rune(got)))
	}
	if res.Tools[1].Description != "short" {
		t.Errorf("short description changed: %q", res.Tools[1].Description)
	}
}

// --- Schema ---

func TestSchema_Found(t *testing.T) {
	c := sampleCatalog(t)
	res := c.Schema("Blueprintgraph.Spawn_Function_Node")
	if !res.Found || res.Name != "blueprintgraph.spawn_function_node" {
		t.Fatalf("unexpected result: %+v", res)
	}

	data, _ := json.Marshal(res)
	var got map[string]any
	json.Unmarshal(data, &got)
	for _, key := range []string{"found", "name", "description", "inputSchema"} {
		if _, ok := got[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}
	if _, ok := got["error"]; ok {
		t.Errorf("found result should not carry error: %s", data)
	}
}

func TestSchema_MissingSchemaIsEmptyObject(t *testing.T) {
	c := sampleCatalog(t)
	res := c.Schema("screenshot")
	if string(res.InputSchema) != "{}" {
		t.Errorf("InputSchema = %s, want {}", res.InputSchema)
	}
}

func TestSchema_NotFound(t *testing.T) {
	c := sampleCatalog(t)
	data, _ := json.Marshal(c.Schema("foo.bar"))
	want := `{"found":false,"error":"Tool 'foo.bar' not found","suggestion":"Use list_available_tools to find available tools"}`
	if string(data) != want {
		t.Errorf("got %s\nwant %s", data, want)
	}
}

// --- Export ---

func TestExport_Views(t *testing.T) {
	c := New([]Tool{
		{Name: "material.a", Description: strings.Repeat("x", 120)},
		{Name: "material_b", Description: "b"},
		{Name: "material", Description: "exact"},
		{Name: "level.c", Description: "c"},
	})

	namesOnly, ok := c.Export(ExportOptions{NamesOnly: true, Category: "material"}).([]string)
	if !ok || strings.Join(namesOnly, ",") != "material.a,material_b" {
		t.Errorf("names view = %v (exact category match not allowed here)", namesOnly)
	}

	compact, ok := c.Export(ExportOptions{Compact: true}).([]Summary)
	if !ok || len(compact) != 4 {
		t.Fatalf("compact view = %v", compact)
	}
	if len(compact[0].Description) != 100 || strings.HasSuffix(compact[0].Description, "...") {
		t.Errorf("compact description should be a plain 100-char cut, got %q", compact[0].Description)
	}

	full, ok := c.Export(ExportOptions{Offset: 2}).([]Tool)
	if !ok || len(full) != 2 || full[0].Name != "material" {
		t.Errorf("offset without limit should return the remainder, got %v", full)
	}

	one := 1
	full, _ = c.Export(ExportOptions{Limit: &one, Offset: 1}).([]Tool)
	if len(full) != 1 || full[0].Name != "material_b" {
		t.Errorf("limit window = %v", full)
	}
}

func TestExport_ZeroLimitIsEmpty(t *testing.T) {
	c := New([]Tool{{Name: "material.a"}, {Name: "level.c"}})

	zero := 0
	names, ok := c.Export(ExportOptions{NamesOnly: true, Limit: &zero}).([]string)
	if !ok {
		t.Fatal("expected a names slice")
	}
	if names == nil || len(names) != 0 {
		t.Errorf("expected an empty non-nil slice, got %#v", names)
	}
}
