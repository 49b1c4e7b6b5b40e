// Package metrics exports consistency audit results to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"territory_backend/internal/territory/domain"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "territory"

// AuditMetrics records audit reports as gauges and counters.
type AuditMetrics struct {
	violations *promclient.GaugeVec
	runs       *promclient.CounterVec
	lastRun    promclient.Gauge
}

// NewAuditMetrics registers the audit collectors on reg, reusing collectors
// that are already registered. A nil reg means the default registerer.
func NewAuditMetrics(reg promclient.Registerer) (*AuditMetrics, error) {
	if reg == nil {
		reg = promclient.DefaultRegisterer
	}
	m := &AuditMetrics{
		violations: promclient.NewGaugeVec(promclient.GaugeOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "violations",
			Help:      "Offending records found by each consistency check in the latest audit.",
		}, []string{"check"}),
		runs: promclient.NewCounterVec(promclient.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "runs_total",
			Help:      "Completed consistency audits by trigger.",
		}, []string{"trigger"}),
		lastRun: promclient.NewGauge(promclient.GaugeOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the latest audit finished.",
		}),
	}

	var err error
	if m.violations, err = register(reg, m.violations); err != nil {
		return nil, fmt.Errorf("register audit violations gauge: %w", err)
	}
	if m.runs, err = register(reg, m.runs); err != nil {
		return nil, fmt.Errorf("register audit runs counter: %w", err)
	}
	if m.lastRun, err = register(reg, m.lastRun); err != nil {
		return nil, fmt.Errorf("register audit timestamp gauge: %w", err)
	}
	return m, nil
}

func register[C promclient.Collector](reg promclient.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are promclient.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, err
}

// ObserveAudit publishes the per-check counts of report.
func (m *AuditMetrics) ObserveAudit(report domain.AuditReport) {
	for _, c := range report.Checks {
		m.violations.WithLabelValues(c.Name).Set(float64(c.Count))
	}
	m.runs.WithLabelValues(report.Trigger).Inc()
	m.lastRun.Set(float64(report.GeneratedAt.Unix()))
}

// Handler serves the metrics gathered by g.
func Handler(g promclient.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// NewServer returns an HTTP server exposing g on /metrics.
func NewServer(addr string, g promclient.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
