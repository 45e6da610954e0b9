package config

import "github.com/bobmcallan/hopstack-mcp/internal/common"

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8000,
			Host: "0.0.0.0",
		},
		MCP: MCPConfig{
			Name: "HopStackMCP",
			Mode: ModeMeta,
		},
		Catalog: CatalogConfig{
			DataDir: "data",
			Files: []string{
				"ue_cpp_api_tools_with_schema.json",
				"ue_cpp_api_tools_with_schema_more.json",
			},
			FetchRetries: 2,
		},
		Backend: BackendConfig{
			URL:     "http://localhost:9315",
			Timeout: "60s",
		},
		Logging: common.LoggingConfig{
			Level:   "info",
			Outputs: []string{"console"},
		},
	}
}
