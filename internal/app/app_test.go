package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bobmcallan/hopstack-mcp/internal/common"
	"github.com/bobmcallan/hopstack-mcp/internal/config"
)

func TestNew_LoadsConfiguredSources(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.json"), []byte(`[{"name":"a.one"},{"name":"b_two"}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.NewDefaultConfig()
	cfg.Catalog.DataDir = dir
	cfg.Catalog.Files = []string{"a.json", "missing.json"}

	a, err := New(context.Background(), cfg, common.NewSilentLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.Catalog.Len() != 2 {
		t.Errorf("expected 2 tools, got %d", a.Catalog.Len())
	}
	if a.MCPHandler.ToolCount() != 3 {
		t.Errorf("expected 3 meta-tools, got %d", a.MCPHandler.ToolCount())
	}
	if a.HealthHandler == nil || a.VersionHandler == nil || a.CatalogHandler == nil {
		t.Error("expected all HTTP handlers initialized")
	}
}

func TestNew_CancelledContext(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Catalog.Files = nil
	cfg.Catalog.Sources = []string{"http://127.0.0.1:1/tools.json"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New(ctx, cfg, common.NewSilentLogger()); err == nil {
		t.Error("expected error for cancelled context")
	}
}
