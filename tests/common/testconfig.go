package common

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type TestConfig struct {
	Results struct {
		Dir string `toml:"dir"`
	} `toml:"results"`
	Server struct {
		URL string `toml:"url"`
	} `toml:"server"`
}

var (
	globalConfig     *TestConfig
	globalConfigOnce sync.Once
	resultsDir       string
	resultsDirOnce   sync.Once
)

// LoadTestConfig reads tests/test_config.toml when present, over defaults.
func LoadTestConfig() *TestConfig {
	globalConfigOnce.Do(func() {
		globalConfig = &TestConfig{}
		globalConfig.Results.Dir = "tests/results"
		globalConfig.Server.URL = "http://localhost:8000"

		root := FindProjectRoot()
		configPaths := []string{
			filepath.Join(root, "tests", "test_config.toml"),
			"test_config.toml",
		}

		for _, path := range configPaths {
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			if err := toml.Unmarshal(data, globalConfig); err == nil {
				return
			}
		}
	})
	return globalConfig
}

// GetResultsDir returns this run's timestamped results directory, creating it once.
func GetResultsDir() string {
	if dir := os.Getenv("HOPSTACK_TEST_RESULTS_DIR"); dir != "" {
		if abs, err := filepath.Abs(dir); err == nil {
			return abs
		}
		return dir
	}
	resultsDirOnce.Do(func() {
		baseDir := LoadTestConfig().Results.Dir
		if !filepath.IsAbs(baseDir) {
			baseDir = filepath.Join(FindProjectRoot(), baseDir)
		}
		resultsDir = filepath.Join(baseDir, time.Now().Format("2006-01-02-15-04-05"))
		if err := os.MkdirAll(resultsDir, 0755); err != nil {
			panic("failed to create results dir: " + err.Error())
		}
	})
	return resultsDir
}

// GetTestURL returns the manual-mode server URL.
func GetTestURL() string {
	if url := os.Getenv("HOPSTACK_TEST_URL"); url != "" {
		return url
	}
	return LoadTestConfig().Server.URL
}

// WriteResultsSummary appends a suite summary to summary.md in the results directory.
func WriteResultsSummary(suite string, passed, failed, skipped int) {
	summaryPath := filepath.Join(GetResultsDir(), "summary.md")

	f, err := os.OpenFile(summaryPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()

	status := "PASS"
	if failed > 0 {
		status = "FAIL"
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(f, "# Test Results: %s\n\n", timestamp)
	fmt.Fprintf(f, "## %s\n", suite)
	fmt.Fprintf(f, "- Status: %s\n", status)
	fmt.Fprintf(f, "- Passed: %d\n", passed)
	fmt.Fprintf(f, "- Failed: %d\n", failed)
	fmt.Fprintf(f, "- Skipped: %d\n", skipped)
}
