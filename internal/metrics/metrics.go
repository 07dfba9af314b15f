// Package metrics exposes the mount counts as Prometheus gauges.
//
// The gauges live on a private registry. They are pushed to a Prometheus
// push gateway after every tick when one is configured, and can also be
// scraped through Handler.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Job is the push gateway job name.
const Job = "mount_status_monitor"

// DefaultPushTimeout bounds one push to the gateway.
const DefaultPushTimeout = 10 * time.Second

// Metrics holds the mount gauges and an optional pusher.
type Metrics struct {
	registry *prometheus.Registry
	total    prometheus.Gauge
	dead     prometheus.Gauge
	pusher   *push.Pusher
}

// New creates the gauges. If gateway is non-empty, Push sends them there
// grouped by instance.
func New(gateway, instance string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		total: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "total_mountpoints",
			Help: "Total number of mountpoints",
		}),
		dead: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dead_mountpoints",
			Help: "Number of unresponsive mountpoints",
		}),
	}
	m.registry.MustRegister(m.total, m.dead)

	if gateway != "" {
		m.pusher = push.New(gateway, Job).
			Grouping("instance", instance).
			Gatherer(m.registry).
			Client(&http.Client{Timeout: DefaultPushTimeout})
	}
	return m
}

// Set records the counts of the latest tick.
func (m *Metrics) Set(total, dead int) {
	m.total.Set(float64(total))
	m.dead.Set(float64(dead))
}

// Pushing reports whether a push gateway is configured.
func (m *Metrics) Pushing() bool {
	return m.pusher != nil
}

// Push replaces this instance's metrics on the gateway. It is a no-op when
// no gateway is configured.
func (m *Metrics) Push(ctx context.Context) error {
	if m.pusher == nil {
		return nil
	}
	return m.pusher.PushContext(ctx)
}

// Gatherer returns the registry holding the gauges.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler serves the gauges in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
