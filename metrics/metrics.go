// metrics/metrics.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package metrics publishes flight data and simulation health as
// Prometheus series. All methods are nil-receiver safe so the sim can
// run with metrics disabled.
package metrics

import (
	"net/http"
	"time"

	"github.com/aloft-sim/aloft/flight"
	"github.com/aloft-sim/aloft/math"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	altitude      prometheus.Gauge
	speed         prometheus.Gauge
	verticalSpeed prometheus.Gauge
	compass       prometheus.Gauge
	thrust        prometheus.Gauge
	onGround      prometheus.Gauge
	autopilotOn   prometheus.Gauge

	ticks        prometheus.Counter
	tickDuration prometheus.Histogram
	stagePanics  *prometheus.CounterVec

	terrainQueries  prometheus.Counter
	terrainFailures prometheus.Counter
	prevQueries     int64
	prevFailures    int64

	snapshotSaves    prometheus.Counter
	snapshotRestores prometheus.Counter
}

// New builds a Metrics on its own registry, so multiple sims (or
// tests) don't collide over metric names.
func New() *Metrics {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "aloft", Name: name, Help: help,
		})
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aloft", Name: name, Help: help,
		})
	}

	m := &Metrics{
		registry:      prometheus.NewRegistry(),
		altitude:      gauge("altitude_meters", "Aircraft altitude, meters MSL."),
		speed:         gauge("speed_mps", "Forward speed, meters/second."),
		verticalSpeed: gauge("vertical_speed_mps", "Vertical speed, meters/second."),
		compass:       gauge("compass_degrees", "Aircraft course as a compass direction."),
		thrust:        gauge("thrust_fraction", "Normalized thrust."),
		onGround:      gauge("on_ground", "1 while the aircraft is on its gear."),
		autopilotOn:   gauge("autopilot_enabled", "1 while the autopilot master is on."),

		ticks: counter("ticks_total", "Simulation ticks executed."),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "aloft", Name: "tick_duration_seconds",
			Help:    "Wall-clock cost of one simulation tick.",
			Buckets: prometheus.ExponentialBuckets(10e-6, 2, 12),
		}),
		stagePanics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aloft", Name: "stage_panics_total",
			Help: "Recovered panics, by pipeline stage.",
		}, []string{"stage"}),

		terrainQueries:  counter("terrain_queries_total", "Terrain height queries issued."),
		terrainFailures: counter("terrain_failures_total", "Terrain height queries that failed."),

		snapshotSaves:    counter("snapshot_saves_total", "Snapshots saved."),
		snapshotRestores: counter("snapshot_restores_total", "Snapshots restored."),
	}

	m.registry.MustRegister(m.altitude, m.speed, m.verticalSpeed, m.compass,
		m.thrust, m.onGround, m.autopilotOn, m.ticks, m.tickDuration,
		m.stagePanics, m.terrainQueries, m.terrainFailures,
		m.snapshotSaves, m.snapshotRestores)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveTick records the state of the world after one tick.
// terrainQueries and terrainFailures are cumulative totals from the
// sampler.
func (m *Metrics) ObserveTick(s flight.State, autopilotOn bool, d time.Duration,
	terrainQueries, terrainFailures int64) {
	if m == nil {
		return
	}
	m.altitude.Set(float64(s.Altitude))
	m.speed.Set(float64(s.Speed))
	m.verticalSpeed.Set(float64(s.VerticalSpeed))
	m.compass.Set(float64(math.HeadingToCompass(s.Heading)))
	m.thrust.Set(float64(s.Thrust))
	m.onGround.Set(boolGauge(s.OnGround))
	m.autopilotOn.Set(boolGauge(autopilotOn))

	m.ticks.Inc()
	m.tickDuration.Observe(d.Seconds())

	if dq := terrainQueries - m.prevQueries; dq > 0 {
		m.terrainQueries.Add(float64(dq))
	}
	if df := terrainFailures - m.prevFailures; df > 0 {
		m.terrainFailures.Add(float64(df))
	}
	m.prevQueries, m.prevFailures = terrainQueries, terrainFailures
}

func (m *Metrics) StagePanic(stage string) {
	if m == nil {
		return
	}
	m.stagePanics.WithLabelValues(stage).Inc()
}

func (m *Metrics) SnapshotSaved() {
	if m == nil {
		return
	}
	m.snapshotSaves.Inc()
}

func (m *Metrics) SnapshotRestored() {
	if m == nil {
		return
	}
	m.snapshotRestores.Inc()
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
