package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func resetState() {
	CloseAll()
	loggers = make(map[Category]*Logger)
	logsDir = ""
	workspace = ""
	configLoaded = false
	cfg = loggingConfig{}
}

func TestAllCategoriesLog(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "logging_test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	resetState()

	categories := []Category{
		CategoryBoot, CategorySession, CategoryBuild, CategoryArch, CategoryArchEval,
		CategoryOdoo, CategoryValidation, CategoryResolver, CategoryEval, CategoryInvalidate, CategoryWorld,
	}
	enabled := map[string]bool{}
	for _, c := range categories {
		enabled[string(c)] = true
	}

	if err := Configure(tempDir, true, "debug", false, enabled); err != nil {
		t.Fatalf("failed to configure logging: %v", err)
	}
	if !IsDebugMode() {
		t.Error("expected debug mode to be enabled")
	}

	for _, cat := range categories {
		if !IsCategoryEnabled(cat) {
			t.Errorf("category %s should be enabled", cat)
		}
		logger := Get(cat)
		logger.Info("info message for %s", cat)
		logger.Debug("debug message for %s", cat)
		logger.Warn("warn message for %s", cat)
		logger.Error("error message for %s", cat)
	}

	CloseAll()

	logsPath := filepath.Join(tempDir, ".odools", "logs")
	entries, err := os.ReadDir(logsPath)
	if err != nil {
		t.Fatalf("failed to read logs dir: %v", err)
	}
	for _, cat := range categories {
		found := false
		for _, entry := range entries {
			if strings.Contains(entry.Name(), string(cat)+".log") {
				found = true
				content, err := os.ReadFile(filepath.Join(logsPath, entry.Name()))
				if err != nil || len(content) == 0 {
					t.Errorf("log file for %s missing content", cat)
				}
				break
			}
		}
		if !found {
			t.Errorf("no log file found for category: %s", cat)
		}
	}
}

func TestDebugModeDisabled(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "logging_test_disabled")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	resetState()
	if err := Configure(tempDir, false, "debug", false, map[string]bool{"boot": true}); err != nil {
		t.Fatalf("failed to configure: %v", err)
	}
	if IsDebugMode() {
		t.Error("expected debug mode to be disabled")
	}
	if IsCategoryEnabled(CategoryBoot) {
		t.Error("boot should be disabled when debug_mode=false")
	}

	Boot("should not be logged")
	logger := Get(CategoryBoot)
	logger.Info("should not be logged")
	CloseAll()

	logsPath := filepath.Join(tempDir, ".odools", "logs")
	if _, err := os.Stat(logsPath); err == nil {
		entries, _ := os.ReadDir(logsPath)
		if len(entries) > 0 {
			t.Errorf("expected no log files in production mode, found %d", len(entries))
		}
	}
}

func TestCategoryToggle(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "logging_test_category")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	resetState()
	categories := map[string]bool{"boot": true, "build": true, "world": false, "eval": false}
	if err := Configure(tempDir, true, "debug", false, categories); err != nil {
		t.Fatalf("failed to configure: %v", err)
	}

	if !IsCategoryEnabled(CategoryBoot) || !IsCategoryEnabled(CategoryBuild) {
		t.Error("boot and build should be enabled")
	}
	if IsCategoryEnabled(CategoryWorld) || IsCategoryEnabled(CategoryEval) {
		t.Error("world and eval should be disabled")
	}
	if !IsCategoryEnabled(CategoryResolver) {
		t.Error("resolver (not in config) should default to enabled")
	}

	Boot("should be logged")
	Build("should be logged")
	World("should not be logged")
	CloseAll()

	logsPath := filepath.Join(tempDir, ".odools", "logs")
	entries, _ := os.ReadDir(logsPath)
	hasBoot, hasWorld := false, false
	for _, e := range entries {
		if strings.Contains(e.Name(), "boot") {
			hasBoot = true
		}
		if strings.Contains(e.Name(), "world") {
			hasWorld = true
		}
	}
	if !hasBoot {
		t.Error("expected boot log file")
	}
	if hasWorld {
		t.Error("should not have world log file (disabled)")
	}
}

func TestTimerLogging(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "logging_test_timer")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	resetState()
	if err := Configure(tempDir, true, "debug", false, nil); err != nil {
		t.Fatalf("failed to configure: %v", err)
	}

	timer := StartTimer(CategoryBuild, "TestOperation")
	time.Sleep(time.Millisecond)
	elapsed := timer.Stop()
	if elapsed <= 0 {
		t.Error("timer should have recorded non-zero duration")
	}
	CloseAll()
}
