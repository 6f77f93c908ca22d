// Package log provides a structured logging (slog) handler for add-ins.
//
// Records are written as one JSON object per line. Calls made through an
// exported function carry the function name and host thread recorded in
// the context, so failures that never reach the host stay traceable.
package log

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"runtime"
	"sync"
)

// Handler implements slog.Handler writing JSON lines to an io.Writer.
type Handler struct {
	opts   handlerConfig
	mu     *sync.Mutex
	w      io.Writer
	attrs  []LogAttrWire
	prefix string // current group path, "a.b."
}

// HandlerOption configures the Handler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	level     slog.Leveler
	addSource bool
}

// defaultHandlerConfig returns the default configuration.
func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		level: slog.LevelInfo,
	}
}

// WithLevel sets the minimum log level to report.
func WithLevel(level slog.Leveler) HandlerOption {
	return func(c *handlerConfig) {
		c.level = level
	}
}

// WithSource enables reporting of source location (file/line).
func WithSource(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.addSource = enabled
	}
}

// NewHandler creates a Handler writing to w with the given options.
func NewHandler(w io.Writer, opts ...HandlerOption) *Handler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Handler{opts: cfg, mu: &sync.Mutex{}, w: w}
}

// Enabled reports whether the handler handles records at the given level.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level.Level()
}

// WithAttrs returns a new Handler that includes the given attributes.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := h.clone()
	for _, a := range attrs {
		clone.attrs = appendAttr(clone.attrs, h.prefix, a)
	}
	return clone
}

// WithGroup returns a new Handler that qualifies later attributes with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.clone()
	clone.prefix = h.prefix + name + "."
	return clone
}

// Handle serializes a slog.Record as one JSON line.
func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	msg := LogMessageWire{
		Context:   contextToWire(ctx),
		Level:     record.Level.String(),
		Message:   record.Message,
		Timestamp: record.Time,
	}
	msg.Attrs = append(msg.Attrs, h.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		msg.Attrs = appendAttr(msg.Attrs, h.prefix, attr)
		return true
	})
	if h.opts.addSource && record.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{record.PC})
		f, _ := frames.Next()
		msg.Source = &SourceWire{File: f.File, Line: f.Line, Function: f.Function}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(data)
	return err
}

func (h *Handler) clone() *Handler {
	c := *h
	c.attrs = append([]LogAttrWire(nil), h.attrs...)
	return &c
}

// appendAttr flattens groups into dotted keys.
func appendAttr(dst []LogAttrWire, prefix string, attr slog.Attr) []LogAttrWire {
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		group := attr.Value.Group()
		if attr.Key != "" {
			prefix += attr.Key + "."
		}
		for _, a := range group {
			dst = appendAttr(dst, prefix, a)
		}
		return dst
	}
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	wire := toLogAttrWire(attr)
	wire.Key = prefix + wire.Key
	return append(dst, wire)
}

// New returns a logger backed by a Handler.
func New(w io.Writer, opts ...HandlerOption) *slog.Logger {
	return slog.New(NewHandler(w, opts...))
}
