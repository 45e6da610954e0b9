package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/hopstack-mcp/internal/common"
)

const defaultURL = "http://localhost:8000/mcp"

var rootCmd = &cobra.Command{
	Use:   "hopstack-smoke [url]",
	Short: "Smoke test a running hopstack-mcp server",
	Long: `hopstack-smoke connects to a hopstack-mcp server over streamable HTTP,
initializes a session, lists the registered tools, calls the first one with
empty arguments, then spot-checks a random sample of tools concurrently.

It exits non-zero when any step fails.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := defaultURL
		if len(args) == 1 {
			url = args[0]
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		level := "warn"
		if verbose {
			level = "debug"
		}
		logger := common.NewLoggerWithOutput(level, cmd.ErrOrStderr())

		report, err := run(ctx, cmd.OutOrStdout(), logger, url, samples, timeout)
		if err != nil {
			return err
		}
		if report.Failed() > 0 {
			return fmt.Errorf("%d of %d spot checks failed", report.Failed(), report.Sampled)
		}
		return nil
	},
	SilenceUsage: true,
}

var (
	samples int
	timeout time.Duration
	verbose bool
)

func init() {
	rootCmd.Flags().IntVarP(&samples, "samples", "n", 10, "Number of random tools to spot-check")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Per-request timeout")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log every call to stderr")
	rootCmd.Version = common.GetFullVersion()
}

// report summarizes a smoke run.
type report struct {
	ServerName    string
	ServerVersion string
	Tools         int
	Sampled       int
	Passed        int
	FailedNames   []string
}

func (r report) Failed() int {
	return r.Sampled - r.Passed
}

// run executes the smoke sequence against url, printing progress to out.
// Failed calls are logged with their error.
func run(ctx context.Context, out io.Writer, logger *common.Logger, url string, sampleSize int, timeout time.Duration) (report, error) {
	var rep report

	c, err := client.NewStreamableHttpClient(url)
	if err != nil {
		return rep, fmt.Errorf("create client: %w", err)
	}
	defer c.Close()

	if err := c.Start(ctx); err != nil {
		return rep, fmt.Errorf("start client: %w", err)
	}

	// 1. Initialize
	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "hopstack-smoke", Version: common.GetVersion()}

	initCtx, cancel := context.WithTimeout(ctx, timeout)
	info, err := c.Initialize(initCtx, initReq)
	cancel()
	if err != nil {
		return rep, fmt.Errorf("initialize failed: %w", err)
	}
	rep.ServerName = info.ServerInfo.Name
	rep.ServerVersion = info.ServerInfo.Version
	fmt.Fprintf(out, "[1/4] Initialize : OK  (server=%s v%s)\n", rep.ServerName, rep.ServerVersion)

	// 2. List tools
	listCtx, cancel := context.WithTimeout(ctx, timeout)
	list, err := c.ListTools(listCtx, mcp.ListToolsRequest{})
	cancel()
	if err != nil {
		return rep, fmt.Errorf("tools/list failed: %w", err)
	}
	rep.Tools = len(list.Tools)
	fmt.Fprintf(out, "[2/4] tools/list : %d tools returned\n", rep.Tools)
	if rep.Tools == 0 {
		return rep, errors.New("server registered no tools")
	}

	// 3. Call the first tool with empty arguments
	first := list.Tools[0].Name
	status := "OK"
	if err := callEmpty(ctx, logger, c, first, timeout); err != nil {
		status = "FAIL (" + err.Error() + ")"
	}
	fmt.Fprintf(out, "[3/4] tools/call : %s -> %s\n", first, status)

	// 4. Spot-check a random sample concurrently
	n := min(sampleSize, rep.Tools)
	rep.Sampled = n

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, i := range rand.Perm(rep.Tools)[:n] {
		name := list.Tools[i].Name
		g.Go(func() error {
			err := callEmpty(gctx, logger, c, name, timeout)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rep.FailedNames = append(rep.FailedNames, name)
				return nil
			}
			rep.Passed++
			return nil
		})
	}
	g.Wait()

	fmt.Fprintf(out, "[4/4] Spot-check : %d/%d random tools passed\n", rep.Passed, n)
	for _, name := range rep.FailedNames {
		fmt.Fprintf(out, "       FAIL: %s\n", name)
	}

	summary := "ALL GOOD"
	if rep.Failed() > 0 {
		summary = fmt.Sprintf("%d FAILURES", rep.Failed())
	}
	rule := strings.Repeat("=", 50)
	fmt.Fprintf(out, "\n%s\n  Server  : %s\n  Tools   : %d\n  Status  : %s\n%s\n", rule, url, rep.Tools, summary, rule)

	return rep, nil
}

// callEmpty calls name with {} and reports protocol-level failure. A tool
// error result still counts as a response.
func callEmpty(ctx context.Context, logger *common.Logger, c *client.Client, name string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = map[string]any{}

	start := time.Now()
	result, err := c.CallTool(ctx, req)
	logger = logger.ForTool(name)
	if err != nil {
		logger.Warn().Str("error", err.Error()).Msg("call failed")
		return err
	}
	logger.Debug().
		Bool("is_error", result.IsError).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("call returned")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
