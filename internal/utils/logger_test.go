package utils

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DEBUG,
		" WARN ":  WARNING,
		"warning": WARNING,
		"error":   ERROR,
		"info":    INFO,
		"verbose": INFO,
		"":        INFO,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := &Logger{out: &buf, level: WARNING}

	logger.Debug("debug message", nil)
	logger.Info("info message", nil)
	logger.Warn("warn message", nil)
	logger.Error("error message", nil)

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("低于 WARNING 的日志不应输出: %s", out)
	}
	if !strings.Contains(out, "[WARNING]") || !strings.Contains(out, "[ERROR]") {
		t.Errorf("缺少 WARNING/ERROR 日志: %s", out)
	}
	if !strings.Contains(out, "logger_test.go:") {
		t.Errorf("调用位置应为测试文件: %s", out)
	}
}

func TestFormatEntryRedactsSecrets(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	line := formatEntry(at, ERROR, "x.go:1:f", "调用失败 sk-abcdef123456", map[string]interface{}{
		"url":      "https://example.com/v1?key=AIzaSyExample0123456789",
		"error":    errors.New("invalid key sk-zyxwvu987654"),
		"attempts": 2,
		"key":      "1/2",
	})

	want := "[ERROR] 2024-05-01 12:00:00.000 x.go:1:f - 调用失败 [REDACTED] | attempts=2 error=invalid key [REDACTED] key=1/2 url=https://example.com/v1?[REDACTED]\n"
	if line != want {
		t.Errorf("formatEntry =\n%q\nwant\n%q", line, want)
	}
}

func TestInitLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")
	logger := GetLogger()
	logger.SetOutput(io.Discard)
	if err := InitLogger(path); err != nil {
		t.Fatalf("InitLogger: %v", err)
	}

	logger.Info("写入文件", map[string]interface{}{"project_id": "proj_1"})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("重复关闭不应报错: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取日志文件失败: %v", err)
	}
	if !strings.Contains(string(data), "写入文件 | project_id=proj_1") {
		t.Errorf("日志文件内容 = %q", data)
	}
}
