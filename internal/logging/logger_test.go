package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"convertify/internal/config"
	"convertify/internal/logging"
	"convertify/internal/services"
)

func logFile(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("engine ready")

	content := readLog(t, filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if !strings.Contains(content, "engine ready") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsSourceForInfo(t *testing.T) {
	logPath := logFile(t, "console-info.log")
	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without source")

	if content := readLog(t, logPath); strings.Contains(content, ".go:") {
		t.Fatalf("expected no source information in info logs, got %q", content)
	}
}

func TestConsoleLoggerRendersComponentAndJobPrefix(t *testing.T) {
	logPath := logFile(t, "console-debug.log")
	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "debug",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger = logging.NewComponentLogger(logger, "runner")
	logger.Debug("conversion started",
		logging.String(logging.FieldJobID, "1f0c2a9e-aaaa-bbbb-cccc-000000000000"),
		logging.String(logging.FieldFormat, "mp3"),
	)

	content := readLog(t, logPath)
	if !strings.Contains(content, "DEBUG runner: [1f0c2a9e] conversion started") {
		t.Fatalf("expected component and job prefix, got %q", content)
	}
	if !strings.Contains(content, "format=mp3") {
		t.Fatalf("expected format attribute, got %q", content)
	}
	if !strings.Contains(content, "logger_test.go:") {
		t.Fatalf("expected source information for debug level, got %q", content)
	}
}

func TestJSONLoggerIncludesContextFields(t *testing.T) {
	logPath := logFile(t, "json-info.log")
	logger, err := logging.New(logging.Options{
		Format:           "json",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithJobID(context.Background(), "job-1")
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithStage(ctx, "convert")
	failure := services.Wrap(services.ErrExternalTool, "convert", "run ffmpeg", "exit status 1", nil)
	logging.WithContext(ctx, logger).Info("job failed", logging.Error(failure), logging.ErrorKind(failure))

	content := strings.TrimSpace(readLog(t, logPath))
	var payload map[string]any
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		t.Fatalf("decode json log %q: %v", content, err)
	}
	want := map[string]string{
		"level":      "info",
		"msg":        "job failed",
		"job_id":     "job-1",
		"run_id":     "run-1",
		"stage":      "convert",
		"error_kind": "external_tool",
	}
	for key, value := range want {
		if payload[key] != value {
			t.Fatalf("expected %s=%q, got %v", key, value, payload[key])
		}
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatal("expected ts key")
	}
}

func TestJSONLoggerReadsFieldsFromRecordContext(t *testing.T) {
	logPath := logFile(t, "json-ctx.log")
	logger, err := logging.New(logging.Options{
		Format:      "json",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithJobID(context.Background(), "job-ctx")
	ctx = services.WithRunID(ctx, "run-ctx")
	logger.With(logging.String(logging.FieldRunID, "run-bound")).InfoContext(ctx, "converted",
		logging.String(logging.FieldFormat, "webp"),
		logging.String(logging.FieldMediaClass, ""),
	)

	content := strings.TrimSpace(readLog(t, logPath))
	var payload map[string]any
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		t.Fatalf("decode json log %q: %v", content, err)
	}
	if payload["job_id"] != "job-ctx" {
		t.Fatalf("expected job_id from context, got %v", payload["job_id"])
	}
	if payload["run_id"] != "run-bound" {
		t.Fatalf("expected bound run_id to win, got %v", payload["run_id"])
	}
	if strings.Count(content, `"run_id"`) != 1 {
		t.Fatalf("expected a single run_id key, got %s", content)
	}
	if payload["format"] != "webp" {
		t.Fatalf("expected format field, got %v", payload["format"])
	}
	if _, ok := payload["media_class"]; ok {
		t.Fatalf("expected empty media_class dropped, got %s", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml", OutputPaths: []string{filepath.Join(t.TempDir(), "x.log")}}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := logFile(t, "json-warn.log")
	logger, err := logging.New(logging.Options{
		Format:           "json",
		Level:            "warn",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WarnWithContext(logger, "notification failed", "notify_failed", logging.Error(errors.New("boom")))

	content := readLog(t, logPath)
	for _, needle := range []string{`"event_type":"notify_failed"`, `"error_hint":"check logs for details"`, `"error":"boom"`} {
		if !strings.Contains(content, needle) {
			t.Fatalf("expected %s in %q", needle, content)
		}
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 8) {
		t.Fatal("expected nop logger to be disabled")
	}
	logging.WithContext(context.Background(), nil).Info("discarded")
}
