// Package metrics implements ports.Metrics with Prometheus collectors.
package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"go.trai.ch/derive/internal/core/ports"
)

const namespace = "derive"

var _ ports.Metrics = (*PrometheusRecorder)(nil)

// PrometheusRecorder records pass metrics into a Prometheus registry.
type PrometheusRecorder struct {
	reg           *prom.Registry
	passDuration  *prom.HistogramVec
	passes        *prom.CounterVec
	phaseDuration *prom.HistogramVec
	artifacts     *prom.CounterVec
	unitFailures  prom.Counter
	entries       prom.Gauge
}

// NewPrometheusRecorder creates the collectors and registers them on reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}

	r := &PrometheusRecorder{
		reg: reg,
		passDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Duration of build passes by outcome",
			Buckets:   prom.DefBuckets,
		}, []string{"outcome"}),
		passes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Build passes by outcome",
		}, []string{"outcome"}),
		phaseDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Duration of individual pass phases",
			Buckets:   prom.DefBuckets,
		}, []string{"phase"}),
		artifacts: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_total",
			Help:      "Artifacts processed by reconciliation action",
		}, []string{"action"}),
		unitFailures: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "unit_failures_total",
			Help:      "Source units the backend failed to compile",
		}),
		entries: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_entries",
			Help:      "Committed artifact registry entries",
		}),
	}
	reg.MustRegister(r.passDuration, r.passes, r.phaseDuration, r.artifacts, r.unitFailures, r.entries)

	return r
}

// Registry returns the registry the collectors live on.
func (r *PrometheusRecorder) Registry() *prom.Registry {
	return r.reg
}

// ObservePass records a finished pass.
func (r *PrometheusRecorder) ObservePass(outcome string, d time.Duration) {
	r.passDuration.WithLabelValues(outcome).Observe(d.Seconds())
	r.passes.WithLabelValues(outcome).Inc()
}

// ObservePhase records one phase duration.
func (r *PrometheusRecorder) ObservePhase(phase string, d time.Duration) {
	r.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// AddArtifacts counts n artifacts for action. Zero is ignored.
func (r *PrometheusRecorder) AddArtifacts(action string, n int) {
	if n <= 0 {
		return
	}
	r.artifacts.WithLabelValues(action).Add(float64(n))
}

// AddUnitFailures counts n failed units.
func (r *PrometheusRecorder) AddUnitFailures(n int) {
	if n <= 0 {
		return
	}
	r.unitFailures.Add(float64(n))
}

// SetRegistryEntries records the committed registry size.
func (r *PrometheusRecorder) SetRegistryEntries(n int) {
	r.entries.Set(float64(n))
}

// NoopRecorder is a ports.Metrics that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObservePass(string, time.Duration)  {}
func (NoopRecorder) ObservePhase(string, time.Duration) {}
func (NoopRecorder) AddArtifacts(string, int)           {}
func (NoopRecorder) AddUnitFailures(int)                {}
func (NoopRecorder) SetRegistryEntries(int)             {}
