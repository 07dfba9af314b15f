package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"log/syslog"
	"strings"
)

// sysWriter is the subset of *syslog.Writer used here.
type sysWriter interface {
	Debug(m string) error
	Info(m string) error
	Warning(m string) error
	Err(m string) error
	Crit(m string) error
	Close() error
}

var dialSyslog = func(tag string) (sysWriter, error) {
	w, err := syslog.New(syslog.LOG_DAEMON|syslog.LOG_INFO, tag)
	if err != nil {
		return nil, err
	}
	return w, nil
}

type severity int

const (
	sevDebug severity = iota
	sevInfo
	sevWarning
	sevErr
	sevCrit
	numSeverities
)

func severityOf(level slog.Level) severity {
	switch {
	case level >= LevelCritical:
		return sevCrit
	case level >= slog.LevelError:
		return sevErr
	case level >= slog.LevelWarn:
		return sevWarning
	case level >= slog.LevelInfo:
		return sevInfo
	default:
		return sevDebug
	}
}

// severityWriter sends each formatted record to syslog at one severity.
// A failed write is reported on fallback and otherwise ignored.
type severityWriter struct {
	sink     sysWriter
	sev      severity
	fallback io.Writer
}

func (w *severityWriter) Write(p []byte) (int, error) {
	msg := strings.TrimSuffix(string(p), "\n")

	var err error
	switch w.sev {
	case sevDebug:
		err = w.sink.Debug(msg)
	case sevInfo:
		err = w.sink.Info(msg)
	case sevWarning:
		err = w.sink.Warning(msg)
	case sevErr:
		err = w.sink.Err(msg)
	default:
		err = w.sink.Crit(msg)
	}
	if err != nil && w.fallback != nil {
		fmt.Fprintf(w.fallback, "syslog failed: %v\n", err)
	}
	return len(p), nil
}

// syslogHandler formats records as text and hands them to the severity
// matching their level. Syslog stamps its own time, so the time attribute
// is dropped.
type syslogHandler struct {
	level    slog.Level
	handlers [numSeverities]slog.Handler
}

func newSyslogHandler(sink sysWriter, level slog.Level, fallback io.Writer) *syslogHandler {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return replaceLevel(groups, a)
		},
	}

	h := &syslogHandler{level: level}
	for sev := sevDebug; sev < numSeverities; sev++ {
		h.handlers[sev] = slog.NewTextHandler(&severityWriter{sink: sink, sev: sev, fallback: fallback}, opts)
	}
	return h
}

func (h *syslogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *syslogHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.handlers[severityOf(r.Level)].Handle(ctx, r)
}

func (h *syslogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(inner slog.Handler) slog.Handler { return inner.WithAttrs(attrs) })
}

func (h *syslogHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(inner slog.Handler) slog.Handler { return inner.WithGroup(name) })
}

func (h *syslogHandler) derive(fn func(slog.Handler) slog.Handler) *syslogHandler {
	out := &syslogHandler{level: h.level}
	for i, inner := range h.handlers {
		out.handlers[i] = fn(inner)
	}
	return out
}
