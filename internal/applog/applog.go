// Package applog provides the process-wide log sink: every slog record is kept in
// an in-memory ring and optionally echoed to the console.
package applog

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/ashureev/wooagent/internal/domain"
	slogmulti "github.com/samber/slog-multi"
)

// Options controls where records go besides the ring.
type Options struct {
	// MaxEntries bounds the ring. Defaults to MaxEntries.
	MaxEntries int
	// Echo enables console output. The ring records regardless.
	Echo bool
	// Debug includes debug records in the console output.
	Debug bool
	// JSON switches the console output from text to JSON.
	JSON   bool
	Writer io.Writer
}

// ConsoleOptions echoes to w only in development. Debug adds debug records to the echo.
func ConsoleOptions(maxEntries int, development, debug bool, w io.Writer) Options {
	return Options{
		MaxEntries: maxEntries,
		Echo:       development,
		Debug:      debug,
		Writer:     w,
	}
}

// New builds a logger that fans out to a ring and, when enabled, the console.
func New(opts Options) (*slog.Logger, *Ring) {
	ring := NewRing(opts.MaxEntries)
	handlers := []slog.Handler{NewHandler(ring)}

	if opts.Echo {
		w := opts.Writer
		if w == nil {
			w = os.Stderr
		}
		level := slog.LevelInfo
		if opts.Debug {
			level = slog.LevelDebug
		}
		ho := &slog.HandlerOptions{Level: level}
		if opts.JSON {
			handlers = append(handlers, slog.NewJSONHandler(w, ho))
		} else {
			handlers = append(handlers, slog.NewTextHandler(w, ho))
		}
	}

	return slog.New(slogmulti.Fanout(handlers...)), ring
}

// Handler is a slog.Handler that records into a Ring.
type Handler struct {
	ring   *Ring
	attrs  []slog.Attr
	prefix string
}

// NewHandler creates a handler writing to ring.
func NewHandler(ring *Ring) *Handler {
	return &Handler{ring: ring}
}

// Enabled accepts every level; the ring keeps debug records too.
func (h *Handler) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle converts the record into an Entry.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var data map[string]any
	if len(h.attrs) > 0 || r.NumAttrs() > 0 {
		data = make(map[string]any, len(h.attrs)+r.NumAttrs())
	}
	for _, a := range h.attrs {
		collect(data, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		collect(data, h.prefix, a)
		return true
	})

	h.ring.Add(Entry{
		Time:    r.Time,
		Level:   levelOf(r.Level),
		Message: r.Message,
		Data:    data,
	})
	return nil
}

// WithAttrs returns a handler that adds attrs to every entry.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		next.attrs = append(next.attrs, a)
	}
	return &next
}

// WithGroup returns a handler that qualifies later keys with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func collect(dst map[string]any, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			collect(dst, p, ga)
		}
		return
	}
	dst[prefix+a.Key] = a.Value.Any()
}

func levelOf(l slog.Level) domain.LogLevel {
	switch {
	case l < slog.LevelInfo:
		return domain.LevelDebug
	case l < slog.LevelWarn:
		return domain.LevelInfo
	case l < slog.LevelError:
		return domain.LevelWarning
	default:
		return domain.LevelError
	}
}
