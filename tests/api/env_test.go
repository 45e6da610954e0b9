package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bobmcallan/hopstack-mcp/tests/common"
)

// ServerEnv points a test at a running hopstack-mcp: a container started for
// the requested mode, or the server named by HOPSTACK_TEST_URL.
type ServerEnv struct {
	t          *testing.T
	baseURL    string
	httpClient *http.Client
	resultsDir string
}

func TestMain(m *testing.M) {
	code := m.Run()
	common.CleanupAll(filepath.Join(common.GetResultsDir(), "containers"))
	os.Exit(code)
}

// NewServerEnv returns an environment for the given MCP mode ("meta" or "dispatch").
func NewServerEnv(t *testing.T, mode string) *ServerEnv {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	baseURL := common.GetTestURL()
	if ctr := common.StartServer(t, mode); ctr != nil {
		baseURL = ctr.URL()
	}

	resultsDir := filepath.Join(common.GetResultsDir(), strings.ReplaceAll(t.Name(), "/", "_"))
	os.MkdirAll(resultsDir, 0755)

	env := &ServerEnv{
		t:          t,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		resultsDir: resultsDir,
	}

	// A manually started server runs in one mode only.
	var health struct {
		Mode string `json:"mode"`
	}
	env.GetJSON("/health", &health)
	if wantLabel := modeLabel(mode); health.Mode != wantLabel {
		t.Skipf("server at %s runs %q, test needs %q", env.baseURL, health.Mode, wantLabel)
	}

	t.Logf("Server environment ready: %s (%s)", env.baseURL, mode)
	return env
}

func modeLabel(mode string) string {
	if mode == "dispatch" {
		return "dispatch"
	}
	return "meta-tools"
}

// HTTPRequest sends a request with an optional JSON body.
func (e *ServerEnv) HTTPRequest(method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequest(method, e.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.httpClient.Do(req)
}

// GetJSON issues a GET and decodes the body into out, returning the status code.
func (e *ServerEnv) GetJSON(path string, out any) int {
	e.t.Helper()
	resp, err := e.HTTPRequest(http.MethodGet, path, nil)
	if err != nil {
		e.t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()

	data := readBody(e.t, resp.Body)
	e.SaveResult(strings.NewReplacer("/", "_", "?", "_", "&", "_").Replace(path)+".json", data)
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			e.t.Fatalf("GET %s: decode %q: %v", path, data, err)
		}
	}
	return resp.StatusCode
}

// MCPClient returns an initialized streamable HTTP client for /mcp.
func (e *ServerEnv) MCPClient() *client.Client {
	e.t.Helper()

	c, err := client.NewStreamableHttpClient(e.baseURL + "/mcp")
	if err != nil {
		e.t.Fatalf("create MCP client: %v", err)
	}
	e.t.Cleanup(func() { c.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.Start(ctx); err != nil {
		e.t.Fatalf("start MCP client: %v", err)
	}

	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: "hopstack-api-test", Version: "test"}
	if _, err := c.Initialize(ctx, req); err != nil {
		e.t.Fatalf("initialize: %v", err)
	}
	return c
}

// SaveResult writes a response body to the test's results directory.
func (e *ServerEnv) SaveResult(name string, data []byte) {
	os.WriteFile(filepath.Join(e.resultsDir, name), data, 0644)
}

func readBody(t *testing.T, body io.ReadCloser) []byte {
	t.Helper()
	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return data
}

// callTool calls an MCP tool and returns the text of its first content block.
func callTool(t *testing.T, c *client.Client, name string, args map[string]any) (string, bool) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := c.CallTool(ctx, req)
	if err != nil {
		t.Fatalf("call %s: %v", name, err)
	}
	if len(result.Content) == 0 {
		t.Fatalf("call %s: empty content", name)
	}
	contentJSON, _ := json.Marshal(result.Content[0])
	var text struct {
		Text string `json:"text"`
	}
	json.Unmarshal(contentJSON, &text)
	return text.Text, result.IsError
}
