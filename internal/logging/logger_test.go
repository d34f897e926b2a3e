package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// resetState clears the package-level logging state between tests.
func resetState() {
	CloseAll()
	loggers = make(map[Category]*Logger)
	logsDir = ""
	workspace = ""
	config = loggingConfig{}
	configLoaded = false
	logLevel = LevelInfo
}

// TestAllCategoriesLog tests that all categories create log files when debug_mode is true
func TestAllCategoriesLog(t *testing.T) {
	tempDir := t.TempDir()

	configContent := `
logging:
  level: debug
  debug_mode: true
  categories:
    boot: true
    graph: true
    query: true
    cache: true
    cli: true
`
	configPath := filepath.Join(tempDir, "graphlite.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	resetState()
	defer resetState()

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}

	if !IsDebugMode() {
		t.Error("Expected debug mode to be enabled")
	}

	categories := []Category{
		CategoryBoot,
		CategoryGraph,
		CategoryQuery,
		CategoryCache,
		CategoryCLI,
	}

	for _, cat := range categories {
		if !IsCategoryEnabled(cat) {
			t.Errorf("Category %s should be enabled", cat)
		}

		logger := Get(cat)
		logger.Info("Test info message for %s", cat)
		logger.Debug("Test debug message for %s", cat)
		logger.Warn("Test warn message for %s", cat)
		logger.Error("Test error message for %s", cat)
	}

	// Also test convenience functions
	Boot("Convenience boot log")
	Graph("Convenience graph log")
	Query("Convenience query log")
	Cache("Convenience cache log")
	CLI("Convenience cli log")

	CloseAll()

	// Verify a log file exists per category
	logsPath := filepath.Join(tempDir, ".graphlite", "logs")
	date := time.Now().Format("2006-01-02")
	for _, cat := range categories {
		logFile := filepath.Join(logsPath, date+"_"+string(cat)+".log")
		data, err := os.ReadFile(logFile)
		if err != nil {
			t.Errorf("Expected log file for category %s: %v", cat, err)
			continue
		}
		if !strings.Contains(string(data), string(cat)) {
			t.Errorf("Log file for %s does not mention the category", cat)
		}
	}
}

// TestProductionModeNoLogs tests that no logs are written without debug_mode
func TestProductionModeNoLogs(t *testing.T) {
	tempDir := t.TempDir()

	resetState()
	defer resetState()

	// No config file at all: production mode
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}

	if IsDebugMode() {
		t.Error("Expected debug mode to be disabled")
	}

	Boot("Should not be written")
	Query("Should not be written")

	logsPath := filepath.Join(tempDir, ".graphlite", "logs")
	if _, err := os.Stat(logsPath); !os.IsNotExist(err) {
		t.Errorf("Expected no logs directory in production mode")
	}
}

// TestCategoryFiltering tests that disabled categories do not log
func TestCategoryFiltering(t *testing.T) {
	tempDir := t.TempDir()

	configContent := `
logging:
  level: debug
  debug_mode: true
  categories:
    boot: true
    query: false
`
	configPath := filepath.Join(tempDir, "graphlite.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	resetState()
	defer resetState()

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}

	if !IsCategoryEnabled(CategoryBoot) {
		t.Error("Expected boot category enabled")
	}
	if IsCategoryEnabled(CategoryQuery) {
		t.Error("Expected query category disabled")
	}
	// Unlisted categories default to enabled in debug mode
	if !IsCategoryEnabled(CategoryCache) {
		t.Error("Expected unlisted category enabled by default")
	}
}

// TestRequestLogger tests request-scoped logging with correlation IDs
func TestRequestLogger(t *testing.T) {
	tempDir := t.TempDir()

	configContent := `
logging:
  level: debug
  debug_mode: true
`
	if err := os.WriteFile(filepath.Join(tempDir, "graphlite.yaml"), []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	resetState()
	defer resetState()

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}

	rlog := WithRequestID(CategoryCLI, "req-123")
	rlog.WithField("op", "query").Info("Running")
	CloseAll()

	date := time.Now().Format("2006-01-02")
	logFile := filepath.Join(tempDir, ".graphlite", "logs", date+"_cli.log")
	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Expected cli log file: %v", err)
	}
	if !strings.Contains(string(data), "req:req-123") {
		t.Errorf("Expected correlation ID in log output, got: %s", data)
	}
}

// TestTimer tests the timing helper
func TestTimer(t *testing.T) {
	tempDir := t.TempDir()

	configContent := `
logging:
  level: debug
  debug_mode: true
`
	if err := os.WriteFile(filepath.Join(tempDir, "graphlite.yaml"), []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	resetState()
	defer resetState()

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}

	timer := StartTimer(CategoryQuery, "TestOp")
	time.Sleep(time.Millisecond)
	elapsed := timer.Stop()
	if elapsed <= 0 {
		t.Errorf("Expected positive elapsed time, got %v", elapsed)
	}

	// Over-threshold stop logs a warning instead of a debug line.
	slow := StartTimer(CategoryQuery, "SlowOp")
	time.Sleep(2 * time.Millisecond)
	elapsed = slow.StopWithThreshold(time.Millisecond)
	if elapsed <= time.Millisecond {
		t.Errorf("Expected elapsed over threshold, got %v", elapsed)
	}
	CloseAll()

	date := time.Now().Format("2006-01-02")
	logFile := filepath.Join(tempDir, ".graphlite", "logs", date+"_query.log")
	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Expected query log file: %v", err)
	}
	if !strings.Contains(string(data), "SlowOp took") {
		t.Errorf("Expected threshold warning in log, got: %s", data)
	}
}
