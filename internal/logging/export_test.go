package logging

import (
	"io"
	"log/slog"
)

// SysWriter exposes the syslog writer contract to tests.
type SysWriter = sysWriter

// NewSyslogHandler exposes newSyslogHandler to tests.
func NewSyslogHandler(sink SysWriter, level slog.Level, fallback io.Writer) slog.Handler {
	return newSyslogHandler(sink, level, fallback)
}

// SetDialer replaces the syslog dialer and returns a restore function.
func SetDialer(dial func(tag string) (SysWriter, error)) func() {
	prev := dialSyslog
	dialSyslog = dial
	return func() { dialSyslog = prev }
}
