package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	cfgDir := filepath.Join(dir, ".planforge")
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
}

func TestDebugModeCreatesCategoryLogs(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, `
logging:
  debug_mode: true
  level: debug
`)

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer CloseAll()

	Parser("parsed %d aspects", 3)
	SyncDebug("plan ready")

	logsDir := filepath.Join(tempDir, ".planforge", "logs")
	entries, err := os.ReadDir(logsDir)
	if err != nil {
		t.Fatalf("Failed to read logs dir: %v", err)
	}

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	joined := strings.Join(names, " ")
	if !strings.Contains(joined, "parser") {
		t.Errorf("no parser log file in %v", names)
	}
	if !strings.Contains(joined, "sync") {
		t.Errorf("no sync log file in %v", names)
	}
}

func TestProductionModeIsSilent(t *testing.T) {
	tempDir := t.TempDir()
	// No config file at all: production mode, no logs directory.

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer CloseAll()

	Store("this must go nowhere")

	if _, err := os.Stat(filepath.Join(tempDir, ".planforge", "logs")); !os.IsNotExist(err) {
		t.Error("logs directory must not exist in production mode")
	}
}

func TestCategoryToggleDisablesLogger(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, `
logging:
  debug_mode: true
  level: debug
  categories:
    store: false
`)

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer CloseAll()

	if IsCategoryEnabled(CategoryStore) {
		t.Error("store category should be disabled")
	}
	if !IsCategoryEnabled(CategoryParser) {
		t.Error("unlisted categories default to enabled")
	}

	// Writing through a disabled category must be a no-op, not a panic.
	Store("dropped")
}

// TestConcurrentLoggingAndConfigReload exercises loggers writing while the
// config is re-read; meaningful under the race detector.
func TestConcurrentLoggingAndConfigReload(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, `
logging:
  debug_mode: true
  level: debug
  json_format: true
`)

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer CloseAll()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				Parser("worker %d message %d", worker, j)
				SyncDebug("worker %d debug %d", worker, j)
				Get(CategoryStore).Error("worker %d error %d", worker, j)
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 25; j++ {
			if err := loadConfig(); err != nil {
				t.Errorf("loadConfig failed: %v", err)
			}
		}
	}()
	wg.Wait()
}

func TestTimerStopsWithoutInit(t *testing.T) {
	timer := StartTimer(CategorySync, "noop")
	if d := timer.Stop(); d < 0 {
		t.Errorf("negative duration %v", d)
	}
}
