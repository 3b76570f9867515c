// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/phiona/phiona/internal/flow"
)

// Metrics contains the portal's Prometheus metrics.
type Metrics struct {
	FlowsTotal       *prometheus.CounterVec
	FlowDuration     *prometheus.HistogramVec
	RequestsTotal    *prometheus.CounterVec
	WorkspacesActive prometheus.Gauge
}

var _ flow.Observer = (*Metrics)(nil)

// NewMetrics creates and registers the portal metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FlowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phiona_flows_total",
				Help: "Total number of user flows by name and outcome kind",
			},
			[]string{"flow", "kind"},
		),
		FlowDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "phiona_flow_duration_seconds",
				Help:    "Duration of user flows including backend calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"flow"},
		),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phiona_http_requests_total",
				Help: "Total number of HTTP requests by route and status class",
			},
			[]string{"route", "status"},
		),
		WorkspacesActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "phiona_workspaces_active",
				Help: "Number of live browser workspaces",
			},
		),
	}

	reg.MustRegister(m.FlowsTotal, m.FlowDuration, m.RequestsTotal, m.WorkspacesActive)
	return m
}

// ObserveFlow implements flow.Observer. Successful flows are counted under
// the kind "ok".
func (m *Metrics) ObserveFlow(name string, o flow.Outcome, elapsed time.Duration) {
	kind := "ok"
	if !o.OK {
		kind = string(o.Kind)
	}
	m.FlowsTotal.WithLabelValues(name, kind).Inc()
	m.FlowDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}
