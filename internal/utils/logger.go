// internal/utils/logger.go
package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel 日志级别
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARNING
	ERROR
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel 解析 LOG_LEVEL 的取值（debug/info/warn/error），无法识别时为 INFO
func ParseLogLevel(name string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARNING
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Logger 分级日志，写控制台和可选的日志文件。
// 消息与字符串字段在写出前去除密钥。
type Logger struct {
	mu    sync.Mutex
	file  *os.File
	out   io.Writer
	level LogLevel
}

var (
	globalLogger *Logger
	loggerOnce   sync.Once
)

// GetLogger 全局日志实例
func GetLogger() *Logger {
	loggerOnce.Do(func() {
		globalLogger = &Logger{out: os.Stdout, level: INFO}
	})
	return globalLogger
}

// InitLogger 追加写入日志文件，替换之前打开的文件
func InitLogger(logFile string) error {
	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		return fmt.Errorf("创建日志目录失败: %w", err)
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("打开日志文件失败: %w", err)
	}

	logger := GetLogger()
	logger.mu.Lock()
	defer logger.mu.Unlock()
	if logger.file != nil {
		logger.file.Close()
	}
	logger.file = file
	return nil
}

// Close 关闭日志文件，之后只写控制台
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// SetLogLevel 设置最低输出级别
func (l *Logger) SetLogLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetOutput 替换控制台输出（默认 stdout），nil 表示不写控制台
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
}

func (l *Logger) Debug(message string, fields map[string]interface{}) {
	l.log(DEBUG, message, fields)
}

func (l *Logger) Info(message string, fields map[string]interface{}) {
	l.log(INFO, message, fields)
}

func (l *Logger) Warn(message string, fields map[string]interface{}) {
	l.log(WARNING, message, fields)
}

func (l *Logger) Error(message string, fields map[string]interface{}) {
	l.log(ERROR, message, fields)
}

func (l *Logger) log(level LogLevel, message string, fields map[string]interface{}) {
	l.mu.Lock()
	skip := level < l.level
	l.mu.Unlock()
	if skip {
		return
	}

	// 跳过 log 和 Info/Warn 等包装函数
	line := formatEntry(time.Now(), level, callerOf(3), message, fields)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.WriteString(line)
	}
	if l.out != nil {
		io.WriteString(l.out, line)
	}
}

// callerOf 返回 "file.go:行号:包.函数"
func callerOf(skip int) string {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "?"
	}
	funcName := ""
	if fn := runtime.FuncForPC(pc); fn != nil {
		funcName = fn.Name()[strings.LastIndex(fn.Name(), "/")+1:]
	}
	return fmt.Sprintf("%s:%d:%s", filepath.Base(file), line, funcName)
}

// formatEntry 一条日志一行，字段按名称排序
func formatEntry(at time.Time, level LogLevel, caller, message string, fields map[string]interface{}) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s - %s", level, at.Format("2006-01-02 15:04:05.000"), caller, RedactSecrets(message))

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for key := range fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		b.WriteString(" |")
		for _, key := range keys {
			fmt.Fprintf(&b, " %s=%s", key, fieldValue(fields[key]))
		}
	}
	b.WriteString("\n")
	return b.String()
}

func fieldValue(v interface{}) string {
	switch value := v.(type) {
	case string:
		return RedactSecrets(value)
	case error:
		return RedactSecrets(value.Error())
	default:
		return fmt.Sprint(value)
	}
}
