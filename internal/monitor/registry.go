package monitor

import (
	"log/slog"
	"sort"
	"time"

	"github.com/cscheib/mount-status-monitor/internal/health"
)

// Registry maps each known mountpoint to its latest status.
//
// It is not safe for concurrent use. The Scheduler mutates it between the
// parallel sections of a tick, and each worker only ever sees a copy of the
// one entry it owns.
type Registry struct {
	entries map[string]health.Status
	orphans []orphan
}

// orphan is a check process whose mountpoint disappeared while it was running.
type orphan struct {
	path    string
	proc    health.Process
	started time.Time
}

// entry is one unit of work handed to a worker.
type entry struct {
	path   string
	status health.Status
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]health.Status)}
}

// Len returns the number of known mountpoints.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Get returns the status recorded for path.
func (r *Registry) Get(path string) (health.Status, bool) {
	s, ok := r.entries[path]
	return s, ok
}

// Paths returns the known mountpoints in sorted order.
func (r *Registry) Paths() []string {
	paths := make([]string, 0, len(r.entries))
	for p := range r.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Orphans returns how many abandoned check processes are still being reaped.
func (r *Registry) Orphans() int {
	return len(r.orphans)
}

// Reconcile makes the key set match paths: vanished mountpoints are removed
// and new ones are inserted as Alive. A removed entry that still had a check
// running keeps its process on the orphan list so it is reaped later.
func (r *Registry) Reconcile(paths []string) (added, removed []string) {
	current := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		current[p] = struct{}{}
	}

	for p, s := range r.entries {
		if _, ok := current[p]; ok {
			continue
		}
		if running, ok := s.(health.CheckRunning); ok {
			r.orphans = append(r.orphans, orphan{path: p, proc: running.Process, started: running.Started})
		}
		delete(r.entries, p)
		removed = append(removed, p)
	}

	for p := range current {
		if _, ok := r.entries[p]; ok {
			continue
		}
		r.entries[p] = health.Alive{}
		added = append(added, p)
	}

	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

// reapOrphans polls every orphaned check once without blocking and drops
// the ones that have exited.
func (r *Registry) reapOrphans(logger *slog.Logger) {
	kept := r.orphans[:0]
	for _, o := range r.orphans {
		exit, err := o.proc.Poll()
		switch {
		case err != nil:
			logger.Warn("dropping orphaned check process",
				"path", o.path,
				"pid", o.proc.Pid(),
				"error", err,
			)
			o.proc.Release()
		case exit != nil:
			logger.Info("orphaned check process exited",
				"path", o.path,
				"pid", o.proc.Pid(),
				"elapsed", time.Since(o.started).Round(time.Millisecond).String(),
				"exit", exit.String(),
			)
			o.proc.Release()
		default:
			kept = append(kept, o)
		}
	}
	for i := len(kept); i < len(r.orphans); i++ {
		r.orphans[i] = orphan{}
	}
	r.orphans = kept
}

// partition splits the registry into independent units of work.
func (r *Registry) partition() []entry {
	work := make([]entry, 0, len(r.entries))
	for _, p := range r.Paths() {
		work = append(work, entry{path: p, status: r.entries[p]})
	}
	return work
}

// merge writes the workers' results back.
func (r *Registry) merge(work []entry, results []health.Status) {
	for i, e := range work {
		r.entries[e.path] = results[i]
	}
}

// Summarize counts entries and lists the ones that are not Alive.
// It is recomputed from scratch on every call.
func (r *Registry) Summarize() Summary {
	s := Summary{Total: len(r.entries)}
	for _, p := range r.Paths() {
		if !r.entries[p].Alive() {
			s.Dead++
			s.Failed = append(s.Failed, p)
		}
	}
	return s
}

// Snapshot returns handle-free copies of every entry, sorted by path.
func (r *Registry) Snapshot() []health.MountSnapshot {
	snaps := make([]health.MountSnapshot, 0, len(r.entries))
	for _, p := range r.Paths() {
		snaps = append(snaps, health.Snapshot(p, r.entries[p]))
	}
	return snaps
}

// Close releases every process handle the registry still owns, sending
// each a final SIGKILL first.
func (r *Registry) Close() {
	for p, s := range r.entries {
		if running, ok := s.(health.CheckRunning); ok {
			_ = running.Process.Kill()
			running.Process.Release()
			r.entries[p] = health.CheckFailed{Code: health.UnknownExitCode}
		}
	}
	for _, o := range r.orphans {
		_ = o.proc.Kill()
		o.proc.Release()
	}
	r.orphans = nil
}
