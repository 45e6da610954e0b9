package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bobmcallan/hopstack-mcp/internal/app"
	"github.com/bobmcallan/hopstack-mcp/internal/common"
	"github.com/bobmcallan/hopstack-mcp/internal/config"
	"github.com/bobmcallan/hopstack-mcp/internal/server"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// configPaths is a custom flag type that allows multiple -config flags.
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles configPaths
	serverPort  = flag.Int("port", 0, "Server port (overrides config)")
	serverPortP = flag.Int("p", 0, "Server port (shorthand)")
	serverHost  = flag.String("host", "", "Server host (overrides config)")
	mcpMode     = flag.String("mode", "", "MCP mode: meta or dispatch (overrides config)")
	useStdio    = flag.Bool("stdio", false, "Serve MCP over stdin/stdout instead of HTTP")
	showVersion = flag.Bool("version", false, "Print version information")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("hopstack-mcp %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Merge port flags (shorthand takes precedence)
	finalPort := *serverPort
	if *serverPortP != 0 {
		finalPort = *serverPortP
	}

	// Auto-discover config file if not specified.
	if len(configFiles) == 0 {
		for _, path := range configSearchPaths() {
			if _, err := os.Stat(path); err == nil {
				configFiles = append(configFiles, path)
				break
			}
		}
	}

	cfg, err := config.LoadFromFiles(configFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// CLI flags have the highest priority
	config.ApplyFlagOverrides(cfg, finalPort, *serverHost, *mcpMode)

	if issues := cfg.Validate(); len(issues) > 0 {
		fmt.Fprintln(os.Stderr, "Configuration error:")
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "  - %s\n", issue)
		}
		fmt.Fprintln(os.Stderr, "Values can be set via TOML file, HOPSTACK_* environment variables, or CLI flags.")
		os.Exit(1)
	}

	logger := common.NewLoggerFromConfig(cfg.Logging)

	logger.Info().
		Int("port", cfg.Server.Port).
		Str("host", cfg.Server.Host).
		Str("mode", cfg.MCP.Mode).
		Str("backend", cfg.Backend.Endpoint()).
		Str("config_files", fmt.Sprintf("%v", configFiles)).
		Msg("configuration loaded")

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 2*time.Minute)
	application, err := app.New(loadCtx, cfg, logger)
	cancelLoad()
	if err != nil {
		logger.Error().Str("error", err.Error()).Msg("failed to initialize application")
		os.Exit(1)
	}

	if *useStdio {
		logger.Info().Msg("serving MCP over stdio")
		if err := mcpserver.ServeStdio(application.MCPHandler.Server()); err != nil {
			logger.Error().Str("error", err.Error()).Msg("stdio server failed")
			os.Exit(1)
		}
		return
	}

	srv := server.New(application)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info().Msg("shutdown signal received")
	case err := <-errChan:
		if err != nil {
			logger.Error().Str("error", err.Error()).Msg("server failed to start")
			os.Exit(1)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Str("error", err.Error()).Msg("server shutdown failed")
	}

	if err := application.Close(); err != nil {
		logger.Error().Str("error", err.Error()).Msg("application shutdown failed")
	}

	logger.Info().Msg("server stopped")
}

// configSearchPaths returns TOML files to auto-discover (first match wins).
// Binary-relative paths are tried first, then the working directory.
func configSearchPaths() []string {
	candidates := []string{
		"hopstack-mcp.toml",
		"config/hopstack-mcp.toml",
	}

	exe, err := os.Executable()
	if err != nil {
		return candidates
	}
	binDir := filepath.Dir(exe)

	paths := []string{
		filepath.Join(binDir, "hopstack-mcp.toml"),
		filepath.Join(binDir, "config", "hopstack-mcp.toml"),
	}
	paths = append(paths, candidates...)

	// Deduplicate via absolute path.
	seen := make(map[string]bool, len(paths))
	deduped := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		deduped = append(deduped, p)
	}
	return deduped
}
