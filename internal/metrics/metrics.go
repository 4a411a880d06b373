// Package metrics defines the Prometheus metrics of the invoicing workflow
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "trendyol_invoicer"

// Metrics holds the workflow collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	OrdersTotal                   *prometheus.CounterVec
	InvoicesSubmittedTotal        prometheus.Counter
	ReconciliationMismatchesTotal *prometheus.CounterVec
	RateLimitedTotal              *prometheus.CounterVec
	SPVSubmissionsTotal           *prometheus.CounterVec
	OrderProcessingDuration       prometheus.Histogram
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_total",
				Help:      "Total number of orders processed, by outcome",
			},
			[]string{"outcome"},
		),
		InvoicesSubmittedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invoices_submitted_total",
				Help:      "Total number of invoices issued in Oblio",
			},
		),
		ReconciliationMismatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconciliation_mismatches_total",
				Help:      "Total number of invoice totals that differed from the marketplace total",
			},
			[]string{"stage"},
		),
		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Total number of HTTP 429 answers, by service",
			},
			[]string{"service"},
		),
		SPVSubmissionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "spv_submissions_total",
				Help:      "Total number of SPV submissions, by result",
			},
			[]string{"result"},
		),
		OrderProcessingDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "order_processing_duration_seconds",
				Help:      "Duration of processing one order",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.OrdersTotal,
			m.InvoicesSubmittedTotal,
			m.ReconciliationMismatchesTotal,
			m.RateLimitedTotal,
			m.SPVSubmissionsTotal,
			m.OrderProcessingDuration,
		)
	}
	return m
}

// OrderProcessed records the outcome and duration of one order
func (m *Metrics) OrderProcessed(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.OrdersTotal.WithLabelValues(outcome).Inc()
	m.OrderProcessingDuration.Observe(took.Seconds())
}

// InvoiceSubmitted records an issued invoice
func (m *Metrics) InvoiceSubmitted() {
	if m == nil {
		return
	}
	m.InvoicesSubmittedTotal.Inc()
}

// Mismatch records a reconciliation failure at stage
func (m *Metrics) Mismatch(stage string) {
	if m == nil {
		return
	}
	m.ReconciliationMismatchesTotal.WithLabelValues(stage).Inc()
}

// RateLimited records a 429 from service
func (m *Metrics) RateLimited(service string) {
	if m == nil {
		return
	}
	m.RateLimitedTotal.WithLabelValues(service).Inc()
}

// SPVSubmitted records an SPV submission result ("success" or "failure")
func (m *Metrics) SPVSubmitted(success bool) {
	if m == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	m.SPVSubmissionsTotal.WithLabelValues(result).Inc()
}
