// Package common provides shared utilities for hopstack-mcp.
package common

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/phuslu/log"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
	"github.com/ternarybob/arbor/writers"
)

const (
	defaultLogFile    = "logs/hopstack-mcp.log"
	defaultMaxBackups = 10
	logTimeFormat     = "2006-01-02T15:04:05Z07:00"
)

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// Logger wraps arbor.ILogger to provide a consistent interface
type Logger struct {
	arbor.ILogger
}

type discardWriter struct{}

func (w *discardWriter) Write(p []byte) (int, error)           { return len(p), nil }
func (w *discardWriter) WithLevel(_ log.Level) writers.IWriter { return w }
func (w *discardWriter) GetFilePath() string                   { return "" }
func (w *discardWriter) Close() error                          { return nil }

// lineWriter renders arbor events as one plain line each:
//
//	LEVEL [prefix] message key=value ... error=... request=<correlation id>
//
// Fields are sorted so output is stable.
type lineWriter struct {
	mu    sync.Mutex
	out   io.Writer
	level log.Level
}

func (w *lineWriter) Write(p []byte) (int, error) {
	var evt models.LogEvent
	if err := json.Unmarshal(p, &evt); err != nil {
		return w.out.Write(p)
	}
	if evt.Level < w.level {
		return len(p), nil
	}

	var b strings.Builder
	b.WriteString(strings.ToUpper(evt.Level.String()))
	if evt.Prefix != "" {
		fmt.Fprintf(&b, " [%s]", evt.Prefix)
	}
	b.WriteByte(' ')
	b.WriteString(evt.Message)

	keys := make([]string, 0, len(evt.Fields))
	for k := range evt.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, evt.Fields[k])
	}
	if evt.Error != "" {
		fmt.Fprintf(&b, " error=%s", evt.Error)
	}
	if evt.CorrelationID != "" {
		fmt.Fprintf(&b, " request=%s", evt.CorrelationID)
	}
	b.WriteByte('\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := io.WriteString(w.out, b.String()); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *lineWriter) WithLevel(level log.Level) writers.IWriter {
	w.level = level
	return w
}

func (w *lineWriter) GetFilePath() string { return "" }
func (w *lineWriter) Close() error        { return nil }

// NewLoggerFromConfig creates the server logger. Console output always goes
// to stderr: in stdio mode stdout carries MCP JSON-RPC.
func NewLoggerFromConfig(cfg LoggingConfig) *Logger {
	level := cfg.Level
	if level == "" {
		level = "info"
	}
	outputs := cfg.Outputs
	if len(outputs) == 0 {
		outputs = []string{"console"}
	}

	l := arbor.NewLogger()
	for _, out := range outputs {
		switch out {
		case "console":
			l = l.WithConsoleWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeConsole,
				Writer:     os.Stderr,
				TimeFormat: logTimeFormat,
			})
		case "file":
			l = l.WithFileWriter(fileWriterConfig(cfg))
		}
	}

	l = l.WithMemoryWriter(models.WriterConfiguration{
		Type: models.LogWriterTypeMemory,
	}).WithLevelFromString(level)

	return &Logger{ILogger: l}
}

func fileWriterConfig(cfg LoggingConfig) models.WriterConfiguration {
	path := cfg.FilePath
	if path == "" {
		path = defaultLogFile
	}
	maxSize := int64(cfg.MaxSizeMB) * 1024 * 1024
	if maxSize <= 0 {
		maxSize = 500 * 1024
	}
	maxBackups := cfg.MaxBackups
	if maxBackups <= 0 {
		maxBackups = defaultMaxBackups
	}
	return models.WriterConfiguration{
		Type:       models.LogWriterTypeFile,
		FileName:   path,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		TimeFormat: logTimeFormat,
	}
}

// NewLoggerWithOutput creates a logger writing plain lines to w only.
func NewLoggerWithOutput(level string, w io.Writer) *Logger {
	l := arbor.NewLogger().
		WithWriters([]writers.IWriter{&lineWriter{out: w, level: log.TraceLevel}}).
		WithLevelFromString(level)
	return &Logger{ILogger: l}
}

// NewSilentLogger creates a logger that discards all output.
func NewSilentLogger() *Logger {
	arborLogger := arbor.NewLogger().WithWriters([]writers.IWriter{&discardWriter{}})
	return &Logger{ILogger: arborLogger}
}

// ForContext returns a logger tagged with the request correlation ID carried by ctx,
// or l itself when there is none.
func (l *Logger) ForContext(ctx context.Context) *Logger {
	if id := CorrelationID(ctx); id != "" {
		return &Logger{ILogger: l.ILogger.WithCorrelationId(id)}
	}
	return l
}

// ForTool returns a logger whose lines are prefixed with the MCP tool name.
func (l *Logger) ForTool(name string) *Logger {
	if name == "" {
		return l
	}
	return &Logger{ILogger: l.ILogger.WithPrefix(name)}
}
