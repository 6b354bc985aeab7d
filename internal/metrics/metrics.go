// Package metrics holds the Prometheus collectors shared by the inventory services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BarcodeAttempts counts barcode candidates by outcome
	// (unique, collision, commit_conflict, exhausted).
	BarcodeAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uniformstock_barcode_attempts_total",
		Help: "Barcode candidates generated, by outcome",
	}, []string{"outcome"})

	// StockAdjustments counts per-size outcomes of stock additions and corrections.
	StockAdjustments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uniformstock_stock_adjustments_total",
		Help: "Stock adjustments by operation",
	}, []string{"operation"})

	// DeliveriesRecorded counts delivery records written.
	DeliveriesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uniformstock_deliveries_recorded_total",
		Help: "Delivery records written",
	})

	// DashboardDegraded counts dashboard fields zeroed because their sub-query failed.
	DashboardDegraded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uniformstock_dashboard_degraded_total",
		Help: "Dashboard sub-queries that failed and were replaced by defaults",
	}, []string{"field"})

	// ReportDuration tracks how long report datasets take to build.
	ReportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "uniformstock_report_duration_seconds",
		Help:    "Report build duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"report"})
)
