package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/cscheib/mount-status-monitor/internal/health"
	"github.com/cscheib/mount-status-monitor/internal/metrics"
	"github.com/cscheib/mount-status-monitor/internal/monitor"
	"github.com/cscheib/mount-status-monitor/internal/server"
	"github.com/cscheib/mount-status-monitor/internal/testutil"
	"github.com/matryer/is"
	"go.uber.org/goleak"
)

// fixedSource serves one snapshot, or none.
type fixedSource struct {
	snap *monitor.Snapshot
}

func (f fixedSource) Snapshot() (monitor.Snapshot, bool) {
	if f.snap == nil {
		return monitor.Snapshot{}, false
	}
	return *f.snap, true
}

func snapshotWith(statuses map[string]health.Status) *monitor.Snapshot {
	paths := make([]string, 0, len(statuses))
	for p := range statuses {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	snap := &monitor.Snapshot{Time: time.Now()}
	for _, p := range paths {
		m := health.Snapshot(p, statuses[p])
		snap.Mounts = append(snap.Mounts, m)
		snap.Summary.Total++
		if !m.Alive {
			snap.Summary.Dead++
			snap.Summary.Failed = append(snap.Summary.Failed, p)
		}
	}
	return snap
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) server.StatusResponse {
	t.Helper()
	var resp server.StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	return resp
}

func TestLiveness_AlwaysOK(t *testing.T) {
	is := is.New(t)

	srv := server.New(fixedSource{}, nil, 0, "1.2.3", testutil.Logger(t))

	rec := get(t, srv.Handler(), "/healthz/live")
	is.Equal(rec.Code, http.StatusOK)
	is.Equal(rec.Header().Get("Content-Type"), "application/json")

	resp := decode(t, rec)
	is.Equal(resp.Status, "alive")
	is.Equal(resp.Version, "1.2.3")
}

func TestReadiness_BeforeFirstTick(t *testing.T) {
	is := is.New(t)

	srv := server.New(fixedSource{}, nil, 0, "dev", testutil.Logger(t))

	rec := get(t, srv.Handler(), "/healthz/ready")
	is.Equal(rec.Code, http.StatusServiceUnavailable) // nothing checked yet
	is.Equal(decode(t, rec).Status, "unknown")
}

func TestReadiness_AllAlive(t *testing.T) {
	is := is.New(t)

	snap := snapshotWith(map[string]health.Status{"/": health.Alive{}, "/mnt/a": health.Alive{}})
	srv := server.New(fixedSource{snap: snap}, nil, 0, "dev", testutil.Logger(t))

	rec := get(t, srv.Handler(), "/healthz/ready")
	is.Equal(rec.Code, http.StatusOK)

	resp := decode(t, rec)
	is.Equal(resp.Status, "healthy")
	is.Equal(resp.Total, 2)
	is.Equal(resp.Dead, 0)
	is.Equal(len(resp.Mounts), 0) // readiness carries counts only
}

func TestReadiness_DeadMount(t *testing.T) {
	is := is.New(t)

	snap := snapshotWith(map[string]health.Status{"/": health.Alive{}, "/mnt/a": health.CheckFailed{Code: 1}})
	srv := server.New(fixedSource{snap: snap}, nil, 0, "dev", testutil.Logger(t))

	rec := get(t, srv.Handler(), "/healthz/ready")
	is.Equal(rec.Code, http.StatusServiceUnavailable)
	is.Equal(decode(t, rec).Status, "unhealthy")
}

func TestStatus_Detailed(t *testing.T) {
	is := is.New(t)

	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	snap := snapshotWith(map[string]health.Status{
		"/":      health.Alive{},
		"/mnt/a": health.CheckFailed{Code: 2},
		"/mnt/b": health.CheckSignaled{Signal: 9},
		"/mnt/c": health.CheckRunning{Process: testutil.NewFakeProcess(42), Started: started},
	})
	srv := server.New(fixedSource{snap: snap}, nil, 0, "dev", testutil.Logger(t))

	rec := get(t, srv.Handler(), "/healthz/status")
	is.Equal(rec.Code, http.StatusServiceUnavailable)

	resp := decode(t, rec)
	is.Equal(resp.Total, 4)
	is.Equal(resp.Dead, 3)
	is.Equal(len(resp.Mounts), 4)

	byPath := map[string]server.MountStatusResponse{}
	for _, m := range resp.Mounts {
		byPath[m.Path] = m
	}
	is.True(byPath["/"].Alive)
	is.Equal(byPath["/mnt/a"].ExitCode, 2)
	is.Equal(byPath["/mnt/b"].Signal, 9)
	is.Equal(byPath["/mnt/c"].Status, "running")
	is.Equal(byPath["/mnt/c"].RunningSince, "2026-01-02T03:04:05Z")
}

func TestMethodNotAllowed(t *testing.T) {
	is := is.New(t)

	srv := server.New(fixedSource{}, nil, 0, "dev", testutil.Logger(t))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz/live", nil))
	is.Equal(rec.Code, http.StatusMethodNotAllowed)
}

func TestMetricsEndpoint(t *testing.T) {
	is := is.New(t)

	m := metrics.New("", "web01")
	m.Set(2, 1)
	srv := server.New(fixedSource{}, m.Handler(), 0, "dev", testutil.Logger(t))

	rec := get(t, srv.Handler(), "/metrics")
	is.Equal(rec.Code, http.StatusOK)
	is.True(strings.Contains(rec.Body.String(), "dead_mountpoints 1"))
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	is := is.New(t)

	srv := server.New(fixedSource{}, nil, 0, "dev", testutil.Logger(t))

	rec := get(t, srv.Handler(), "/metrics")
	is.Equal(rec.Code, http.StatusNotFound)
}

func TestServer_StartAndShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)
	is := is.New(t)

	srv := server.New(fixedSource{}, nil, 0, "dev", testutil.Logger(t))
	is.NoErr(srv.Start())

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get(fmt.Sprintf("http://%s/healthz/live", srv.Addr()))
	is.NoErr(err)
	resp.Body.Close()
	is.Equal(resp.StatusCode, http.StatusOK)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	is.NoErr(srv.Shutdown(ctx))
}

func TestServer_StartPortInUse(t *testing.T) {
	is := is.New(t)

	first := server.New(fixedSource{}, nil, 0, "dev", testutil.Logger(t))
	is.NoErr(first.Start())
	defer first.Shutdown(context.Background())

	port := first.Addr().(*net.TCPAddr).Port

	second := server.New(fixedSource{}, nil, port, "dev", testutil.Logger(t))
	is.True(second.Start() != nil) // bind failure is reported
}
