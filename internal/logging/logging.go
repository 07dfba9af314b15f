// Package logging builds the structured logger used by every component.
//
// Two targets are supported. The console target routes debug and info
// records to stdout and warn and above to stderr. The syslog target sends
// each record to the local syslog daemon at the matching severity.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// LevelCritical is used for conditions that end the process.
const LevelCritical = slog.Level(12)

// DefaultTag identifies the daemon's records in syslog.
const DefaultTag = "mount_status_monitor"

// Options selects the logger configuration.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text, json
	Target string // syslog, console
	Tag    string // syslog tag; DefaultTag if empty

	Stdout io.Writer
	Stderr io.Writer
}

// Setup creates the logger described by opts. The returned Closer releases
// the syslog connection, if any, and must be called on shutdown.
func Setup(opts Options) (*slog.Logger, io.Closer, error) {
	level := ParseLevel(opts.Level)

	switch opts.Target {
	case "", "console":
		return NewConsole(level, opts.Format, opts.Stdout, opts.Stderr), nopCloser{}, nil
	case "syslog":
		tag := opts.Tag
		if tag == "" {
			tag = DefaultTag
		}
		w, err := dialSyslog(tag)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to syslog: %w", err)
		}
		return slog.New(newSyslogHandler(w, level, opts.Stderr)), w, nil
	default:
		return nil, nil, fmt.Errorf("unknown log target %q", opts.Target)
	}
}

// ParseLevel maps a configured level name to a slog level. Unknown names
// fall back to info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "critical":
		return LevelCritical
	default:
		return slog.LevelInfo
	}
}

// NewConsole creates a logger that writes debug and info records to stdout
// and everything from warn up to stderr.
func NewConsole(level slog.Level, format string, stdout, stderr io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: replaceLevel}

	// Pre-create handlers for stdout and stderr to avoid allocation on every log call
	var stdoutHandler, stderrHandler slog.Handler
	if format == "json" {
		stdoutHandler = slog.NewJSONHandler(stdout, opts)
		stderrHandler = slog.NewJSONHandler(stderr, opts)
	} else {
		stdoutHandler = slog.NewTextHandler(stdout, opts)
		stderrHandler = slog.NewTextHandler(stderr, opts)
	}

	return slog.New(&multiStreamHandler{
		level:         level,
		stdoutHandler: stdoutHandler,
		stderrHandler: stderrHandler,
	})
}

// replaceLevel names LevelCritical instead of printing it as ERROR+4.
func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.LevelKey {
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl >= LevelCritical {
			a.Value = slog.StringValue("CRITICAL")
		}
	}
	return a
}

// multiStreamHandler routes logs to stdout or stderr based on level.
// debug, info → stdout; warn, error, critical → stderr
type multiStreamHandler struct {
	level         slog.Level
	stdoutHandler slog.Handler
	stderrHandler slog.Handler
}

func (h *multiStreamHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *multiStreamHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelWarn {
		return h.stderrHandler.Handle(ctx, r)
	}
	return h.stdoutHandler.Handle(ctx, r)
}

func (h *multiStreamHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &multiStreamHandler{
		level:         h.level,
		stdoutHandler: h.stdoutHandler.WithAttrs(attrs),
		stderrHandler: h.stderrHandler.WithAttrs(attrs),
	}
}

func (h *multiStreamHandler) WithGroup(name string) slog.Handler {
	return &multiStreamHandler{
		level:         h.level,
		stdoutHandler: h.stdoutHandler.WithGroup(name),
		stderrHandler: h.stderrHandler.WithGroup(name),
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
