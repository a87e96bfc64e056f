package controller

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the reconciler's Prometheus collectors.
type Metrics struct {
	Cycles        *prometheus.CounterVec
	CycleDuration prometheus.Histogram
	LastSuccess   prometheus.Gauge
	AccountErrors *prometheus.CounterVec
	Upserts       *prometheus.CounterVec
}

// NewMetrics registers the reconciler's collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Cycles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dns_promoter_cycles_total",
			Help: "Total number of reconciliation cycles by result",
		}, []string{"result"}),
		CycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "dns_promoter_cycle_duration_seconds",
			Help:    "Duration of reconciliation cycles",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		LastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "dns_promoter_last_success_timestamp_seconds",
			Help: "Unix time of the last cycle that completed without a cycle-level error",
		}),
		AccountErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dns_promoter_account_errors_total",
			Help: "Total number of abandoned account reconciliations by stage",
		}, []string{"stage"}),
		Upserts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dns_promoter_upserts_total",
			Help: "Total number of root zone upserts by record type",
		}, []string{"type", "dry_run"}),
	}
}

func (m *Metrics) observeCycle(result string, seconds float64) {
	if m == nil {
		return
	}
	m.Cycles.WithLabelValues(result).Inc()
	m.CycleDuration.Observe(seconds)
}

func (m *Metrics) markSuccess(unix float64) {
	if m == nil {
		return
	}
	m.LastSuccess.Set(unix)
}

func (m *Metrics) accountError(stage string) {
	if m == nil {
		return
	}
	m.AccountErrors.WithLabelValues(stage).Inc()
}

func (m *Metrics) upserted(recordType string, dryRun bool) {
	if m == nil {
		return
	}
	m.Upserts.WithLabelValues(recordType, strconv.FormatBool(dryRun)).Inc()
}
