package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bobmcallan/hopstack-mcp/internal/catalog"
	"github.com/bobmcallan/hopstack-mcp/internal/common"
	"github.com/bobmcallan/hopstack-mcp/internal/config"
	"github.com/bobmcallan/hopstack-mcp/internal/mcp"
)

func newDispatchServer(t *testing.T) *httptest.Server {
	t.Helper()
	tools, err := catalog.Parse([]byte(`[
		{"name": "actor.spawn", "description": "Spawn an actor.", "inputSchema": {"type": "object", "properties": {"class": {"type": "string"}}}},
		{"name": "actor.destroy", "description": "Destroy an actor."},
		{"name": "level_save", "description": "Save the level."}
	]`), ".json")
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}

	cfg := config.NewDefaultConfig()
	cfg.MCP.Mode = config.ModeDispatch
	h := mcp.NewHandler(cfg, catalog.New(tools), common.NewSilentLogger())

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_AllToolsRespond(t *testing.T) {
	srv := newDispatchServer(t)

	var out, logs bytes.Buffer
	rep, err := run(context.Background(), &out, common.NewLoggerWithOutput("debug", &logs), srv.URL, 10, 5*time.Second)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out.String())
	}

	if rep.ServerName != "HopStackMCP" {
		t.Errorf("expected server name HopStackMCP, got %s", rep.ServerName)
	}
	if rep.Tools != 3 || rep.Sampled != 3 || rep.Failed() != 0 {
		t.Errorf("unexpected report: %+v", rep)
	}
	if !strings.Contains(out.String(), "ALL GOOD") {
		t.Errorf("expected ALL GOOD summary, got:\n%s", out.String())
	}
	for _, name := range []string{"actor.spawn", "actor.destroy", "level_save"} {
		if !strings.Contains(logs.String(), "DEBUG ["+name+"] call returned") {
			t.Errorf("expected a call log for %s, got:\n%s", name, logs.String())
		}
	}
	if strings.Contains(logs.String(), "is_error=true") {
		t.Errorf("unexpected error result:\n%s", logs.String())
	}
}

func TestRun_SampleSizeCapped(t *testing.T) {
	srv := newDispatchServer(t)

	var out bytes.Buffer
	rep, err := run(context.Background(), &out, common.NewSilentLogger(), srv.URL, 2, 5*time.Second)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Sampled != 2 {
		t.Errorf("expected 2 sampled tools, got %d", rep.Sampled)
	}
}

func TestRun_Unreachable(t *testing.T) {
	var out bytes.Buffer
	if _, err := run(context.Background(), &out, common.NewSilentLogger(), "http://127.0.0.1:1/mcp", 1, time.Second); err == nil {
		t.Error("expected error for unreachable server")
	}
}
