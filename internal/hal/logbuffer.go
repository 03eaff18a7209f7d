package hal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// logBuffer keeps the most recent log lines while the terminal frontend owns
// stderr.
type logBuffer struct {
	mu    sync.Mutex
	lines []string
	size  int
}

func newLogBuffer(size int) *logBuffer {
	return &logBuffer{size: size}
}

func (b *logBuffer) add(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lines = append(b.lines, line)
	if len(b.lines) > b.size {
		b.lines = b.lines[len(b.lines)-b.size:]
	}
}

// recent returns up to n lines, oldest first.
func (b *logBuffer) recent(n int) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n > len(b.lines) {
		n = len(b.lines)
	}
	out := make([]string, n)
	copy(out, b.lines[len(b.lines)-n:])
	return out
}

type logBufferHandler struct {
	buffer *logBuffer
	level  slog.Leveler
	attrs  []slog.Attr
}

func (h *logBufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *logBufferHandler) Handle(_ context.Context, record slog.Record) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", levelTag(record.Level), record.Message)

	for _, a := range h.attrs {
		fmt.Fprintf(&sb, " %s=%v", a.Key, a.Value)
	}
	record.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&sb, " %s=%v", a.Key, a.Value)
		return true
	})

	h.buffer.add(sb.String())
	return nil
}

func (h *logBufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &logBufferHandler{
		buffer: h.buffer,
		level:  h.level,
		attrs:  append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
}

// WithGroup flattens groups; the terminal log panel has no room for them.
func (h *logBufferHandler) WithGroup(string) slog.Handler {
	return h
}

func levelTag(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERR"
	case level >= slog.LevelWarn:
		return "WRN"
	case level >= slog.LevelInfo:
		return "INF"
	default:
		return "DBG"
	}
}
