// Package logger 基于log/slog的结构化日志
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options 日志配置
type Options struct {
	Level     string // debug | info | warn | error
	Format    string // json | console
	Output    string // stdout | stderr | 文件路径
	AddSource bool
}

// New 创建logger，返回的cleanup负责关闭日志文件
func New(opts Options) (*slog.Logger, func(), error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	var (
		w       io.Writer
		cleanup = func() {}
	)
	switch opts.Output {
	case "", "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(opts.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("打开日志文件失败: %w", err)
		}
		w = f
		cleanup = func() { _ = f.Close() }
	}

	return slog.New(newHandler(w, opts.Format, level, opts.AddSource)), cleanup, nil
}

func newHandler(w io.Writer, format string, level slog.Level, addSource bool) slog.Handler {
	ho := &slog.HandlerOptions{Level: level, AddSource: addSource}
	if strings.EqualFold(format, "console") || strings.EqualFold(format, "text") {
		return slog.NewTextHandler(w, ho)
	}
	return slog.NewJSONHandler(w, ho)
}

// ParseLevel 空字符串视为info
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("未知的日志级别: %s", s)
	}
}

// Discard 丢弃所有输出，测试用
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
