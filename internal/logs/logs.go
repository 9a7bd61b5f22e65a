// Package logs 构建进程级 slog.Logger
//
// 终端输出文本格式，可选再写一份 JSON 到文件，两者经 slog-multi 扇出。
// 级别由共享的 LevelVar 控制，运行中可调整。
package logs

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

var level = new(slog.LevelVar)

// Options 日志选项
type Options struct {
	// Level debug/info/warn/error，空值为 info
	Level string

	// Writer 终端输出，默认 os.Stderr
	Writer io.Writer

	// File 非空时额外写入 JSON 日志
	File string
}

// ParseLevel 解析日志级别
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

// SetLevel 调整全局日志级别
func SetLevel(s string) error {
	l, err := ParseLevel(s)
	if err != nil {
		return err
	}
	level.Set(l)
	return nil
}

// Level 返回当前级别
func Level() slog.Level {
	return level.Level()
}

// New 创建 Logger，返回的 close 用于关闭日志文件
func New(opts Options) (*slog.Logger, func() error, error) {
	if err := SetLevel(opts.Level); err != nil {
		return nil, nil, err
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}),
	}
	closeFn := func() error { return nil }

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o700); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
		closeFn = f.Close
	}

	return slog.New(slogmulti.Fanout(handlers...)), closeFn, nil
}
