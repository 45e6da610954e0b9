package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/bobmcallan/hopstack-mcp/internal/common"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/jsonc"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// maxSourceSize caps a single catalog source (file or URL body).
const maxSourceSize = 64 << 20

// Loader reads catalog sources: JSON (comments allowed) or YAML files, and
// http(s) URLs serving either.
type Loader struct {
	logger *common.Logger
	client *retryablehttp.Client
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithRetries sets how many times a URL source is retried.
func WithRetries(n int) LoaderOption {
	return func(l *Loader) {
		l.client.RetryMax = n
	}
}

// WithRetryWait sets the backoff bounds between URL retries.
func WithRetryWait(minWait, maxWait time.Duration) LoaderOption {
	return func(l *Loader) {
		l.client.RetryWaitMin = minWait
		l.client.RetryWaitMax = maxWait
	}
}

// NewLoader creates a Loader logging through logger.
func NewLoader(logger *common.Logger, opts ...LoaderOption) *Loader {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = 30 * time.Second
	client.Logger = retryLogger{logger: logger}

	l := &Loader{logger: logger, client: client}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads every source and builds a catalog. Sources are fetched
// concurrently but their entries are concatenated in source order. A source
// that is missing, unreachable or unparseable is logged and skipped; only a
// cancelled context fails the load.
func (l *Loader) Load(ctx context.Context, sources []string) (*Catalog, error) {
	results := make([][]Tool, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			tools, err := l.loadSource(gctx, src)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				if errors.Is(err, fs.ErrNotExist) {
					l.logger.Warn().Str("source", src).Msg("tool file not found")
				} else {
					l.logger.Warn().Str("source", src).Str("error", err.Error()).Msg("skipping unreadable tool source")
				}
				return nil
			}
			results[i] = tools
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	var all []Tool
	for _, tools := range results {
		all = append(all, tools...)
	}

	l.logger.Info().
		Int("tools", len(all)).
		Int("sources", len(sources)).
		Msg("loaded tool definitions")

	return New(all), nil
}

func (l *Loader) loadSource(ctx context.Context, src string) ([]Tool, error) {
	if isURL(src) {
		data, err := l.fetch(ctx, src)
		if err != nil {
			return nil, err
		}
		u, _ := url.Parse(src)
		return Parse(data, path.Ext(u.Path))
	}

	info, err := os.Stat(src)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", src)
	}
	if info.Size() > maxSourceSize {
		return nil, fmt.Errorf("%s is too large (%d bytes, max %d)", src, info.Size(), maxSourceSize)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, err
	}
	return Parse(data, path.Ext(src))
}

func (l *Loader) fetch(ctx context.Context, src string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9")

	start := time.Now()
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", src, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: HTTP %d", src, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src, err)
	}

	l.logger.Debug().
		Str("source", src).
		Int("bytes", len(body)).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("fetched tool source")

	return body, nil
}

// Parse decodes a catalog document: a YAML sequence when ext is .yaml or .yml,
// otherwise a JSON array that may contain comments. Entries without a name are
// dropped.
func Parse(data []byte, ext string) ([]Tool, error) {
	var entries []json.RawMessage

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		var doc []any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		for _, item := range doc {
			raw, err := json.Marshal(item)
			if err != nil {
				continue
			}
			entries = append(entries, raw)
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), &entries); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	}

	tools := make([]Tool, 0, len(entries))
	for _, raw := range entries {
		if t, ok := parseEntry(raw); ok {
			tools = append(tools, t)
		}
	}
	return tools, nil
}

func isURL(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// retryLogger routes retryablehttp's leveled logging through the service logger.
type retryLogger struct {
	logger *common.Logger
}

func (r retryLogger) Error(msg string, keysAndValues ...interface{}) {
	r.logger.Error().Str("fields", formatKV(keysAndValues)).Msg(msg)
}

func (r retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	r.logger.Warn().Str("fields", formatKV(keysAndValues)).Msg(msg)
}

func (r retryLogger) Info(msg string, keysAndValues ...interface{}) {
	r.logger.Debug().Str("fields", formatKV(keysAndValues)).Msg(msg)
}

func (r retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	r.logger.Debug().Str("fields", formatKV(keysAndValues)).Msg(msg)
}

func formatKV(kv []interface{}) string {
	var b strings.Builder
	for i := 0; i < len(kv); i += 2 {
		if i > 0 {
			b.WriteByte(' ')
		}
		if i+1 < len(kv) {
			fmt.Fprintf(&b, "%v=%v", kv[i], kv[i+1])
		} else {
			fmt.Fprintf(&b, "%v", kv[i])
		}
	}
	return b.String()
}
