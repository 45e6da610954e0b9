package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/bobmcallan/hopstack-mcp/internal/catalog"
	"github.com/bobmcallan/hopstack-mcp/internal/common"
	"github.com/bobmcallan/hopstack-mcp/internal/config"
	"github.com/bobmcallan/hopstack-mcp/internal/jsonrpc"
)

// maxResponseSize caps the backend response body.
const maxResponseSize = 50 << 20 // 50MB

// maxDetailsLen caps the backend body echoed back on an HTTP error status.
const maxDetailsLen = 500

const (
	hintPluginStatus  = "Ensure Unreal Editor is running with Agent Integration Kit"
	hintPluginConnect = "Ensure Unreal Editor is running with Agent Integration Kit plugin loaded"
	hintTimeout       = "The tool may still be executing. Check Unreal Editor."
)

// ExecuteResult is the outcome of a proxied tool call. Failures are values,
// never Go errors.
type ExecuteResult struct {
	Success           bool            `json:"success"`
	Tool              string          `json:"tool,omitempty"`
	Result            json.RawMessage `json:"result,omitempty"`
	Error             string          `json:"error,omitempty"`
	Code              json.RawMessage `json:"code,omitempty"` // null when the backend sent none
	Details           string          `json:"details,omitempty"`
	URL               string          `json:"url,omitempty"`
	Hint              string          `json:"hint,omitempty"`
	Suggestion        string          `json:"suggestion,omitempty"`
	ArgumentsReceived string          `json:"arguments_received,omitempty"`
}

// Proxy forwards tool calls to the backend MCP server as JSON-RPC tools/call requests.
type Proxy struct {
	endpoint   string
	timeout    time.Duration
	validate   bool
	catalog    *catalog.Catalog
	httpClient *http.Client
	logger     *common.Logger
}

// NewProxy creates a proxy for the configured backend.
func NewProxy(cfg *config.Config, cat *catalog.Catalog, logger *common.Logger) *Proxy {
	timeout := cfg.Backend.GetTimeout()
	return &Proxy{
		endpoint: cfg.Backend.Endpoint(),
		timeout:  timeout,
		validate: cfg.Backend.ValidateArguments,
		catalog:  cat,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Execute resolves name in the catalog, parses argumentsJSON and forwards the
// call. The outbound request ignores caller cancellation and is bounded only
// by the backend timeout.
func (p *Proxy) Execute(ctx context.Context, name, argumentsJSON string) ExecuteResult {
	tool, ok := p.catalog.Lookup(name)
	if !ok {
		return ExecuteResult{
			Error:      catalog.NotFoundMessage(name),
			Suggestion: catalog.ListSuggestion,
		}
	}
	logger := p.logger.ForContext(ctx).ForTool(tool.Name)

	args, err := parseArguments(argumentsJSON)
	if err != nil {
		return ExecuteResult{
			Error:             "Invalid JSON in arguments: " + err.Error(),
			ArgumentsReceived: argumentsJSON,
		}
	}

	if p.validate {
		if err := checkArguments(tool, args); err != nil {
			return ExecuteResult{
				Error:             fmt.Sprintf("Invalid arguments for '%s': %v", tool.Name, err),
				ArgumentsReceived: argumentsJSON,
			}
		}
	}

	req, err := jsonrpc.NewToolCall(1, tool.Name, args)
	if err != nil {
		return unexpected(tool.Name, err)
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return unexpected(tool.Name, err)
	}

	status, body, err := p.post(context.WithoutCancel(ctx), logger, payload)
	if err != nil {
		logger.Error().
			Str("url", p.endpoint).
			Str("error", err.Error()).
			Msg("backend call failed")
		return p.transportFailure(tool.Name, err)
	}

	if status != http.StatusOK {
		return ExecuteResult{
			Error:   fmt.Sprintf("UE Plugin returned HTTP %d", status),
			Details: truncateRunes(body, maxDetailsLen),
			Hint:    hintPluginStatus,
		}
	}

	resp, err := jsonrpc.DecodeResponse(body)
	switch {
	case errors.Is(err, jsonrpc.ErrNotEnvelope):
		return ExecuteResult{Success: true, Tool: tool.Name, Result: json.RawMessage(body)}
	case err != nil:
		return unexpected(tool.Name, err)
	}

	switch {
	case resp.Error != nil:
		logger.Warn().
			Str("error", resp.Error.Error()).
			Msg("backend returned a JSON-RPC error")
		code, _ := json.Marshal(resp.Error.Code)
		return ExecuteResult{
			Error: resp.Error.MessageOr("Unknown error"),
			Code:  code,
		}
	case resp.HasResult():
		return ExecuteResult{Success: true, Tool: tool.Name, Result: resp.Result}
	default:
		return ExecuteResult{Success: true, Tool: tool.Name, Result: json.RawMessage(body)}
	}
}

// post sends the envelope and returns the status and capped body.
func (p *Proxy) post(ctx context.Context, logger *common.Logger, payload []byte) (int, []byte, error) {
	logger.Debug().Str("method", "POST").Str("url", p.endpoint).Msg("proxy request")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if id := common.CorrelationID(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}

	logger.Debug().
		Int("status", resp.StatusCode).
		Int64("duration_ms", duration.Milliseconds()).
		Msg("proxy response")

	return resp.StatusCode, body, nil
}

func (p *Proxy) transportFailure(tool string, err error) ExecuteResult {
	switch {
	case isTimeout(err):
		return ExecuteResult{
			Error: fmt.Sprintf("Request to Unreal Engine timed out (%ss)", formatSeconds(p.timeout)),
			Tool:  tool,
			Hint:  hintTimeout,
		}
	case isConnectFailure(err):
		return ExecuteResult{
			Error: "Cannot connect to Unreal Engine MCP server",
			URL:   p.endpoint,
			Hint:  hintPluginConnect,
		}
	default:
		return unexpected(tool, err)
	}
}

// checkArguments validates forwarded arguments against the tool's schema.
// Only an object can satisfy a parameter schema.
func checkArguments(tool catalog.Tool, args json.RawMessage) error {
	var plain any
	if err := json.Unmarshal(args, &plain); err != nil {
		return err
	}
	obj, ok := plain.(map[string]any)
	if !ok {
		return errors.New("arguments must be a JSON object")
	}
	err := catalog.ValidateArguments(tool, obj)
	var ve *catalog.ValidationError
	if errors.As(err, &ve) {
		return ve.Err
	}
	return err
}

// parseArguments checks that raw is one JSON value and returns it compacted.
// Empty input is an empty object; any other value, object or not, is
// forwarded as given.
func parseArguments(raw string) (json.RawMessage, error) {
	if raw == "" {
		return json.RawMessage("{}"), nil
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(raw)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unexpected(tool string, err error) ExecuteResult {
	return ExecuteResult{
		Error: "Unexpected error: " + err.Error(),
		Tool:  tool,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

func isConnectFailure(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

// truncateRunes keeps at most n characters of b.
func truncateRunes(b []byte, n int) string {
	if utf8.RuneCount(b) <= n {
		return string(b)
	}
	r := []rune(string(b))
	return string(r[:n])
}
