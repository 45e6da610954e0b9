package common

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	imageRepo = "hopstack-mcp"
	imageTag  = "test"
	httpPort  = "8000/tcp"
)

var (
	imageBuildOnce  sync.Once
	imageBuildError error

	serversMu sync.Mutex
	servers   = map[string]*serverStart{}
)

type serverStart struct {
	once sync.Once
	ctr  *ServerContainer
	err  error
}

// ServerContainer wraps one running hopstack-mcp container.
type ServerContainer struct {
	container testcontainers.Container
	ctx       context.Context
	cancel    context.CancelFunc
	mode      string
	url       string
}

// URL returns the base URL of the running container.
func (s *ServerContainer) URL() string {
	return s.url
}

// Mode returns the MCP mode the container was started in.
func (s *ServerContainer) Mode() string {
	return s.mode
}

// CollectLogs saves container stdout/stderr to dir/.
func (s *ServerContainer) CollectLogs(dir string) {
	if s == nil || s.container == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	os.MkdirAll(dir, 0755)

	reader, err := s.container.Logs(ctx)
	if err != nil {
		return
	}
	defer reader.Close()

	logs, err := io.ReadAll(reader)
	if err != nil {
		return
	}
	os.WriteFile(filepath.Join(dir, "hopstack-mcp-"+s.mode+".log"), logs, 0644)
}

// Cleanup terminates the container.
// Uses a fresh context for teardown in case the main context expired.
func (s *ServerContainer) Cleanup() {
	if s == nil {
		return
	}

	cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cleanupCancel()

	if s.container != nil {
		s.container.Terminate(cleanupCtx)
	}
	if s.cancel != nil {
		s.cancel()
	}
}

// buildImage builds the hopstack-mcp:test Docker image once per test run.
func buildImage() error {
	imageBuildOnce.Do(func() {
		ctx := context.Background()

		req := testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				FromDockerfile: testcontainers.FromDockerfile{
					Context:    FindProjectRoot(),
					Dockerfile: "tests/docker/Dockerfile.server",
					Repo:       imageRepo,
					Tag:        imageTag,
					KeepImage:  true,
				},
			},
		}

		_, imageBuildError = testcontainers.GenericContainer(ctx, req)
		if imageBuildError != nil {
			// Image may have built successfully even if container creation failed
			if strings.Contains(imageBuildError.Error(), imageRepo+":"+imageTag) {
				imageBuildError = nil
			}
		}
	})
	return imageBuildError
}

// startContainer runs the test image in the given MCP mode. The backend URL
// points at a closed port so execution paths report connection failures.
func startContainer(mode string) (*ServerContainer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 180*time.Second)

	ctr, err := testcontainers.Run(ctx, imageRepo+":"+imageTag,
		testcontainers.WithExposedPorts(httpPort),
		testcontainers.WithEnv(map[string]string{
			"HOPSTACK_SERVER_HOST":     "0.0.0.0",
			"HOPSTACK_MCP_MODE":        mode,
			"HOPSTACK_BACKEND_URL":     "http://127.0.0.1:9",
			"HOPSTACK_BACKEND_TIMEOUT": "5s",
			"HOPSTACK_LOG_LEVEL":       "debug",
		}),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/health").WithPort(httpPort).WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("start hopstack-mcp (%s): %w", mode, err)
	}

	mappedPort, err := ctr.MappedPort(ctx, httpPort)
	if err != nil {
		ctr.Terminate(ctx)
		cancel()
		return nil, fmt.Errorf("get mapped port: %w", err)
	}

	host, err := ctr.Host(ctx)
	if err != nil {
		ctr.Terminate(ctx)
		cancel()
		return nil, fmt.Errorf("get host: %w", err)
	}

	return &ServerContainer{
		container: ctr,
		ctx:       ctx,
		cancel:    cancel,
		mode:      mode,
		url:       fmt.Sprintf("http://%s:%s", host, mappedPort.Port()),
	}, nil
}

// StartServer starts (once per process and mode) a hopstack-mcp container.
// Returns nil when HOPSTACK_TEST_URL is set (manual mode -- tests use the existing server).
func StartServer(t *testing.T, mode string) *ServerContainer {
	t.Helper()
	ctr, err := StartServerForTestMain(mode)
	if err != nil {
		t.Fatalf("Failed to start test environment: %v", err)
	}
	return ctr
}

// StartServerForTestMain is StartServer for use in TestMain (no *testing.T).
// Returns (nil, nil) when HOPSTACK_TEST_URL is set.
func StartServerForTestMain(mode string) (*ServerContainer, error) {
	if os.Getenv("HOPSTACK_TEST_URL") != "" {
		return nil, nil
	}

	serversMu.Lock()
	start, ok := servers[mode]
	if !ok {
		start = &serverStart{}
		servers[mode] = start
	}
	serversMu.Unlock()

	start.once.Do(func() {
		if err := buildImage(); err != nil {
			start.err = fmt.Errorf("build image: %w", err)
			return
		}
		start.ctr, start.err = startContainer(mode)
	})
	return start.ctr, start.err
}

// CleanupAll terminates every container started by this process.
func CleanupAll(logDir string) {
	serversMu.Lock()
	defer serversMu.Unlock()
	for _, start := range servers {
		if start.ctr == nil {
			continue
		}
		if logDir != "" {
			start.ctr.CollectLogs(logDir)
		}
		start.ctr.Cleanup()
	}
}

// FindProjectRoot walks up from the working directory to the go.mod.
func FindProjectRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "."
		}
		dir = parent
	}
}
