package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommandesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commandes_created_total",
		Help: "Total number of orders created",
	})

	CommandesDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commandes_deleted_total",
		Help: "Total number of orders deleted",
	})

	CommandesFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commandes_failed_total",
		Help: "Total number of rejected order operations",
	}, []string{"reason"})

	CommandesPartialTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commandes_partial_total",
		Help: "Orders persisted with at least one failed stock update",
	})

	StatutChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commande_statut_changes_total",
		Help: "Total number of order status transitions",
	}, []string{"statut"})

	StockAdjustmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_adjustments_total",
		Help: "Total number of stock counter adjustments",
	}, []string{"direction"})

	StockInsufficientTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_insufficient_total",
		Help: "Requests rejected for insufficient stock",
	})

	StockRestoreFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_restore_failed_total",
		Help: "Best-effort stock restorations that failed",
	})

	LowStockAlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "low_stock_alerts_total",
		Help: "Alerts emitted for products at or below the low-stock threshold",
	})

	ReconcileLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stock_reconcile_latency_seconds",
		Help:    "Latency of stock reconciliation operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	FacturesGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "factures_generated_total",
		Help: "Total number of invoice PDFs generated",
	})

	LoginFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "login_failed_total",
		Help: "Total number of failed login attempts",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
