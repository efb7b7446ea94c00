// Package logging provides the process-wide structured logger used by every
// package in this module, plus the tunnels that forward log lines to the
// C-ABI sink (SetLogHandler) and, on the agent side, across the
// cross-process control plane.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

type contextKey struct{}

// switchableHandler lets package-level loggers created before Init runs
// dynamically pick up the handler Init installs later.
type switchableHandler struct {
	state  *switchableState
	attrs  []slog.Attr
	groups []string
}

type switchableState struct {
	current atomic.Value // stores slog.Handler
}

func newSwitchableHandler(h slog.Handler) *switchableHandler {
	state := &switchableState{}
	state.current.Store(h)
	return &switchableHandler{state: state}
}

func (h *switchableHandler) set(handler slog.Handler) {
	h.state.current.Store(handler)
}

func (h *switchableHandler) base() slog.Handler {
	return h.state.current.Load().(slog.Handler)
}

func (h *switchableHandler) materialize() slog.Handler {
	handler := h.base()
	for _, group := range h.groups {
		handler = handler.WithGroup(group)
	}
	if len(h.attrs) > 0 {
		handler = handler.WithAttrs(h.attrs)
	}
	return handler
}

func (h *switchableHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.materialize().Enabled(ctx, level)
}

func (h *switchableHandler) Handle(ctx context.Context, record slog.Record) error {
	return h.materialize().Handle(ctx, record)
}

func (h *switchableHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	groups := append([]string(nil), h.groups...)
	return &switchableHandler{state: h.state, attrs: merged, groups: groups}
}

func (h *switchableHandler) WithGroup(name string) slog.Handler {
	attrs := append([]slog.Attr(nil), h.attrs...)
	groups := append(append([]string(nil), h.groups...), name)
	return &switchableHandler{state: h.state, attrs: attrs, groups: groups}
}

var (
	rootHandler   = newSwitchableHandler(&tunnelHandler{base: slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})})
	defaultLogger = slog.New(rootHandler)
)

func init() {
	slog.SetDefault(defaultLogger)
}

// Init reconfigures the global logger. format is "json" or "text" (default
// "text"); level is "debug", "info", "warn", or "error" (default "info");
// output defaults to os.Stdout when nil.
func Init(format, level string, output io.Writer) {
	if output == nil {
		output = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	handler = &tunnelHandler{base: handler}

	rootHandler.set(handler)
	defaultLogger = slog.New(rootHandler)
	slog.SetDefault(defaultLogger)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// L returns a logger scoped to the named component, matching every other
// package's logging.L("component") call.
func L(component string) *slog.Logger {
	return defaultLogger.With("component", component)
}

// sinkState holds the C-ABI log sink under a single mutex, mirroring the
// original library's single global function-pointer-plus-userdata pair.
type sinkState struct {
	mu      sync.Mutex
	handler func(msg string)
}

var globalSink sinkState

// SetSink installs the process-wide sink invoked for every log line. A nil
// handler restores the default no-op sink. Safe to call from any thread.
func SetSink(handler func(msg string)) {
	globalSink.mu.Lock()
	defer globalSink.mu.Unlock()
	globalSink.handler = handler
}

func emitToSink(msg string) {
	globalSink.mu.Lock()
	handler := globalSink.handler
	globalSink.mu.Unlock()
	if handler != nil {
		handler(msg)
	}
}

// tunnelHandler wraps a base slog.Handler and additionally forwards every
// record, formatted as a single line, to the process-wide sink.
type tunnelHandler struct {
	base slog.Handler
}

func (h *tunnelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *tunnelHandler) Handle(ctx context.Context, record slog.Record) error {
	var b strings.Builder
	b.WriteString(record.Level.String())
	b.WriteString(": ")
	b.WriteString(record.Message)
	record.Attrs(func(a slog.Attr) bool {
		b.WriteString(" ")
		b.WriteString(a.Key)
		b.WriteString("=")
		b.WriteString(a.Value.String())
		return true
	})
	emitToSink(b.String())
	return h.base.Handle(ctx, record)
}

func (h *tunnelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &tunnelHandler{base: h.base.WithAttrs(attrs)}
}

func (h *tunnelHandler) WithGroup(name string) slog.Handler {
	return &tunnelHandler{base: h.base.WithGroup(name)}
}
