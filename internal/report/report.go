// Package report publishes the outcome of every tick.
package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cscheib/mount-status-monitor/internal/monitor"
)

// Pusher sends the latest counts somewhere outside the process.
type Pusher interface {
	Set(total, dead int)
	Pushing() bool
	Push(ctx context.Context) error
}

// Reporter logs the aggregate counts, optionally prints the dead mountpoints
// and updates the metrics.
type Reporter struct {
	logger  *slog.Logger
	metrics Pusher
	out     io.Writer // nil disables printing of bad mounts
}

// New creates a Reporter. A nil out disables printing of bad mounts.
func New(logger *slog.Logger, metrics Pusher, out io.Writer) *Reporter {
	return &Reporter{
		logger:  logger,
		metrics: metrics,
		out:     out,
	}
}

// Report implements monitor.Reporter. Nothing here fails the tick: a push
// error is logged and dropped.
func (r *Reporter) Report(ctx context.Context, s monitor.Summary) {
	r.logger.Info("checked mounts",
		"total", s.Total,
		"dead", s.Dead,
		"orphans", s.Orphans,
		"duration", s.Duration.Round(time.Millisecond).String(),
	)

	if r.out != nil {
		for _, path := range s.Failed {
			fmt.Fprintln(r.out, path)
		}
	}

	if r.metrics == nil {
		return
	}
	r.metrics.Set(s.Total, s.Dead)
	if !r.metrics.Pushing() {
		return
	}
	if err := r.metrics.Push(ctx); err != nil {
		r.logger.Warn("unable to send pushgateway metrics", "error", err)
	}
}

var _ monitor.Reporter = (*Reporter)(nil)
