package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

const (
	colorReset = "\x1b[0m"
	colorTime  = "\x1b[90m"
	colorDebug = "\x1b[36m"
	colorInfo  = "\x1b[32m"
	colorWarn  = "\x1b[33m"
	colorError = "\x1b[31m"
)

// 模块标签颜色
var tagColors = map[string]string{
	"[引导]":            "\x1b[96m",
	"[认证]":            "\x1b[94m",
	"[网关]":            "\x1b[92m",
	"[HTTP]":          "\x1b[95m",
	"[存储]":            "\x1b[33m",
	"[事件]":            "\x1b[36m",
	"[OBSERVABILITY]": "\x1b[90m",
}

// consoleHandler renders "[time] [level] message {k=v}" lines, or
// "[time] [tag] message" when the message starts with a known tag.
type consoleHandler struct {
	writer io.Writer
	level  slog.Level
	attrs  []slog.Attr
	mu     *sync.Mutex
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(colorTime)
	b.WriteString("[")
	b.WriteString(r.Time.Format("2006-01-02 15:04:05.000"))
	b.WriteString("]")
	b.WriteString(colorReset)
	b.WriteString(" ")

	if color, ok := tagColor(r.Message); ok {
		b.WriteString(color)
		b.WriteString(r.Message)
		b.WriteString(colorReset)
	} else {
		label, color := levelLabel(r.Level)
		fmt.Fprintf(&b, "%s[%s]%s %s", color, label, colorReset, r.Message)
	}

	if len(h.attrs) > 0 || r.NumAttrs() > 0 {
		b.WriteString(" {")
		for _, a := range h.attrs {
			fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		}
		r.Attrs(func(a slog.Attr) bool {
			fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
			return true
		})
		b.WriteString(" }")
	}
	b.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &consoleHandler{writer: h.writer, level: h.level, attrs: merged, mu: h.mu}
}

func (h *consoleHandler) WithGroup(string) slog.Handler {
	return h
}

func tagColor(msg string) (string, bool) {
	if !strings.HasPrefix(msg, "[") {
		return "", false
	}
	end := strings.Index(msg, "]")
	if end < 0 {
		return "", false
	}
	color, ok := tagColors[msg[:end+1]]
	return color, ok
}

func levelLabel(level slog.Level) (string, string) {
	switch {
	case level >= slog.LevelError:
		return "错误", colorError
	case level >= slog.LevelWarn:
		return "警告", colorWarn
	case level >= slog.LevelInfo:
		return "信息", colorInfo
	default:
		return "调试", colorDebug
	}
}
