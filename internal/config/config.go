package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/hopstack-mcp/internal/common"
	"github.com/pelletier/go-toml/v2"
)

// MCP surface modes.
const (
	// ModeMeta exposes three meta-tools and proxies execution to the backend.
	ModeMeta = "meta"
	// ModeDispatch registers one echo tool per catalog definition.
	ModeDispatch = "dispatch"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig         `toml:"server"`
	MCP     MCPConfig            `toml:"mcp"`
	Catalog CatalogConfig        `toml:"catalog"`
	Backend BackendConfig        `toml:"backend"`
	Logging common.LoggingConfig `toml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// MCPConfig contains MCP server identity and mode.
type MCPConfig struct {
	Name string `toml:"name"`
	Mode string `toml:"mode"` // "meta" or "dispatch"
}

// CatalogConfig lists where tool definitions are loaded from.
type CatalogConfig struct {
	DataDir      string   `toml:"data_dir"`      // relative paths resolve against the binary dir, then CWD
	Files        []string `toml:"files"`         // file names inside DataDir, loaded first, in order
	Sources      []string `toml:"sources"`       // extra paths or http(s) URLs, loaded after Files
	FetchRetries int      `toml:"fetch_retries"` // retries for URL sources
}

// BackendConfig points at the UE plugin MCP server that performs real execution.
type BackendConfig struct {
	URL               string `toml:"url"`
	Timeout           string `toml:"timeout"`
	ValidateArguments bool   `toml:"validate_arguments"`
}

// GetTimeout parses and returns the backend request timeout.
func (c *BackendConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// Endpoint returns the backend MCP endpoint URL.
func (c *BackendConfig) Endpoint() string {
	return strings.TrimRight(c.URL, "/") + "/mcp"
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config.
// PORT and UE_PLUGIN_MCP_URL are honored for deployment platforms that set them.
func applyEnvOverrides(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if port := os.Getenv("HOPSTACK_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("HOPSTACK_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if mode := os.Getenv("HOPSTACK_MCP_MODE"); mode != "" {
		config.MCP.Mode = mode
	}
	if dir := os.Getenv("HOPSTACK_DATA_DIR"); dir != "" {
		config.Catalog.DataDir = dir
	}
	if u := os.Getenv("UE_PLUGIN_MCP_URL"); u != "" {
		config.Backend.URL = u
	}
	if u := os.Getenv("HOPSTACK_BACKEND_URL"); u != "" {
		config.Backend.URL = u
	}
	if timeout := os.Getenv("HOPSTACK_BACKEND_TIMEOUT"); timeout != "" {
		config.Backend.Timeout = timeout
	}
	if level := os.Getenv("HOPSTACK_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host, mode string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
	if mode != "" {
		config.MCP.Mode = mode
	}
}

// Validate returns a list of configuration problems, empty when the config is usable.
func (c *Config) Validate() []string {
	var issues []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		issues = append(issues, fmt.Sprintf("server.port must be between 1 and 65535 (got %d)", c.Server.Port))
	}
	switch c.MCP.Mode {
	case ModeMeta, ModeDispatch:
	default:
		issues = append(issues, fmt.Sprintf("mcp.mode must be %q or %q (got %q)", ModeMeta, ModeDispatch, c.MCP.Mode))
	}
	if c.MCP.Mode == ModeMeta {
		u, err := url.Parse(c.Backend.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			issues = append(issues, fmt.Sprintf("backend.url must be an http(s) URL (got %q)", c.Backend.URL))
		}
	}
	if c.Backend.Timeout != "" {
		if d, err := time.ParseDuration(c.Backend.Timeout); err != nil || d <= 0 {
			issues = append(issues, fmt.Sprintf("backend.timeout must be a positive duration (got %q)", c.Backend.Timeout))
		}
	}
	if c.Catalog.FetchRetries < 0 {
		issues = append(issues, "catalog.fetch_retries must not be negative")
	}

	return issues
}

// CatalogSources returns the ordered catalog sources: the data directory files
// first, then any extra sources.
func (c *Config) CatalogSources() []string {
	dir := ResolveDataDir(c.Catalog.DataDir)

	sources := make([]string, 0, len(c.Catalog.Files)+len(c.Catalog.Sources))
	for _, f := range c.Catalog.Files {
		if f == "" {
			continue
		}
		if filepath.IsAbs(f) {
			sources = append(sources, f)
			continue
		}
		sources = append(sources, filepath.Join(dir, f))
	}
	for _, s := range c.Catalog.Sources {
		if s != "" {
			sources = append(sources, s)
		}
	}
	return sources
}

// ResolveDataDir resolves a relative data directory against the executable's
// directory, falling back to the working directory when it does not exist there.
func ResolveDataDir(dir string) string {
	if dir == "" {
		dir = "data"
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), dir)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
	}
	return dir
}

// Address returns the host:port listen address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
