package guest

import (
	"context"
	"log/slog"
	"strings"
)

// Handler is a slog.Handler that forwards records to the host logger through
// the state of the innermost running function. Records emitted while no
// function is running are dropped.
type Handler struct {
	cfg    handlerConfig
	prefix string // preformatted attributes from WithAttrs
	group  string
}

// HandlerOption configures a Handler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	level slog.Leveler
	emit  func(ctx context.Context, level slog.Level, msg string)
}

func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		level: slog.LevelInfo,
		emit:  emitCurrent,
	}
}

// WithLevel sets the minimum level forwarded to the host.
func WithLevel(level slog.Leveler) HandlerOption {
	return func(c *handlerConfig) {
		c.level = level
	}
}

// NewHandler returns a Handler.
func NewHandler(opts ...HandlerOption) *Handler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Handler{cfg: cfg}
}

func emitCurrent(_ context.Context, level slog.Level, msg string) {
	if L, ok := Current(); ok {
		L.Log(level, msg)
	}
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

// Handle implements slog.Handler. The host receives the message followed by
// key=value pairs; the level travels separately.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	var sb strings.Builder
	sb.WriteString(r.Message)
	sb.WriteString(h.prefix)
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&sb, h.group, a)
		return true
	})
	h.cfg.emit(ctx, r.Level, sb.String())
	return nil
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var sb strings.Builder
	sb.WriteString(h.prefix)
	for _, a := range attrs {
		writeAttr(&sb, h.group, a)
	}
	h2 := *h
	h2.prefix = sb.String()
	return &h2
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.group = join(h.group, name)
	return &h2
}

func writeAttr(sb *strings.Builder, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		g := group
		if a.Key != "" {
			g = join(group, a.Key)
		}
		for _, sub := range a.Value.Group() {
			writeAttr(sb, g, sub)
		}
		return
	}
	sb.WriteByte(' ')
	sb.WriteString(join(group, a.Key))
	sb.WriteByte('=')
	v := a.Value.String()
	if strings.ContainsAny(v, " \t\n\"=") || v == "" {
		sb.WriteByte('"')
		sb.WriteString(strings.ReplaceAll(v, `"`, `\"`))
		sb.WriteByte('"')
		return
	}
	sb.WriteString(v)
}

func join(group, key string) string {
	if group == "" {
		return key
	}
	return group + "." + key
}
