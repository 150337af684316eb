package prettyslog

import (
	"context"
	"io"
	"log"
	"log/slog"
	"sync"

	"github.com/fatih/color"
)

// PrettyHandler prints one coloured line per record followed by indented attrs.
// Meant for local runs only.
type PrettyHandler struct {
	logger    *log.Logger
	level     slog.Leveler
	attrs     []slog.Attr
	openGroup string
	lock      *sync.Mutex
}

func NewPrettyHandler(out io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}

	return &PrettyHandler{
		level:  level,
		logger: log.New(out, "", 0),
		lock:   &sync.Mutex{},
	}
}

func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	level := r.Level.String() + ":"
	switch r.Level {
	case slog.LevelDebug:
		level = color.MagentaString(level)
	case slog.LevelInfo:
		level = color.BlueString(level)
	case slog.LevelWarn:
		level = color.YellowString(level)
	case slog.LevelError:
		level = color.RedString(level)
	}

	h.lock.Lock()
	defer h.lock.Unlock()

	h.logger.Println(r.Time.Format("[15:04:05.000]"), level, color.CyanString(r.Message))

	// attrs added through WithAttrs already carry their group prefix
	for _, attr := range h.attrs {
		h.printAttr("", attr)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.printAttr(h.openGroup, a)
		return true
	})
	return nil
}

func (h *PrettyHandler) printAttr(prefix string, a slog.Attr) {
	h.logger.Printf("  %s=%s\n", color.YellowString(prefix+a.Key), color.WhiteString("%v", a.Value.Any()))
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	for _, a := range attrs {
		a.Key = h.openGroup + a.Key
		merged = append(merged, a)
	}

	return &PrettyHandler{
		attrs:     merged,
		logger:    h.logger,
		level:     h.level,
		lock:      h.lock,
		openGroup: h.openGroup,
	}
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	return &PrettyHandler{
		attrs:     h.attrs,
		logger:    h.logger,
		level:     h.level,
		lock:      h.lock,
		openGroup: h.openGroup + name + ".",
	}
}
