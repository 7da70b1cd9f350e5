package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "homesite_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec

	postingsTotal   *prometheus.CounterVec
	droppedTotal    *prometheus.CounterVec
	outOfOrder      prometheus.Counter
	standingTotal   prometheus.Counter
	shadowTotal     prometheus.Counter
	energyAccounted *prometheus.CounterVec

	summaryExportTotal   *prometheus.CounterVec
	summaryExportLatency *prometheus.HistogramVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total reading ingest requests by transport and result",
			},
			[]string{"transport", "result"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Reading ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"transport", "result"},
		)

		postingsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "postings_total",
				Help: "Total postings written by direction",
			},
			[]string{"direction"},
		)
		droppedTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "readings_dropped_total",
				Help: "Total readings dropped by reason",
			},
			[]string{"reason"},
		)
		outOfOrder = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "readings_out_of_order_total",
				Help: "Total readings that arrived out of order",
			},
		)
		standingTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "standing_charges_total",
				Help: "Total standing charge postings",
			},
		)
		shadowTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "shadow_postings_total",
				Help: "Total comparison shadow postings",
			},
		)
		energyAccounted = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "energy_accounted_kwh_total",
				Help: "Total accounted energy in kWh by asset",
			},
			[]string{"asset"},
		)

		summaryExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "summary_export_total",
				Help: "Total ledger summary exports by format and result",
			},
			[]string{"format", "result"},
		)
		summaryExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "summary_export_latency_seconds",
				Help:    "Ledger summary export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			ingestRequests,
			ingestLatency,
			postingsTotal,
			droppedTotal,
			outOfOrder,
			standingTotal,
			shadowTotal,
			energyAccounted,
			summaryExportTotal,
			summaryExportLatency,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveIngest records ingest request duration and result.
func ObserveIngest(transport, result string, duration time.Duration) {
	if transport == "" {
		transport = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if ingestRequests != nil {
		ingestRequests.WithLabelValues(transport, result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(transport, result).Observe(duration.Seconds())
	}
}

// IncPosting increments the posting counter.
func IncPosting(direction string) {
	if direction == "" {
		direction = "unknown"
	}
	if postingsTotal != nil {
		postingsTotal.WithLabelValues(direction).Inc()
	}
}

// IncDropped increments the dropped reading counter.
func IncDropped(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if droppedTotal != nil {
		droppedTotal.WithLabelValues(reason).Inc()
	}
}

// IncOutOfOrder increments the out-of-order reading counter.
func IncOutOfOrder() {
	if outOfOrder != nil {
		outOfOrder.Inc()
	}
}

// IncStandingCharge increments the standing charge counter.
func IncStandingCharge() {
	if standingTotal != nil {
		standingTotal.Inc()
	}
}

// IncShadowPosting increments the shadow posting counter.
func IncShadowPosting() {
	if shadowTotal != nil {
		shadowTotal.Inc()
	}
}

// AddEnergy accumulates accounted energy for an asset.
func AddEnergy(asset string, kwh float64) {
	if asset == "" || kwh <= 0 {
		return
	}
	if energyAccounted != nil {
		energyAccounted.WithLabelValues(asset).Add(kwh)
	}
}

// ObserveSummaryExport records export latency and result.
func ObserveSummaryExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if summaryExportTotal != nil {
		summaryExportTotal.WithLabelValues(format, result).Inc()
	}
	if summaryExportLatency != nil {
		summaryExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

func registerDBMetrics(db *sql.DB, logger *log.Logger) {
	openConns := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "db_open_connections",
			Help: "Open database connections",
		},
		func() float64 { return float64(db.Stats().OpenConnections) },
	)
	inUse := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "db_in_use_connections",
			Help: "Database connections currently in use",
		},
		func() float64 { return float64(db.Stats().InUse) },
	)
	if err := prometheus.Register(openConns); err != nil && logger != nil {
		logger.Printf("metrics: register db gauge: %v", err)
	}
	if err := prometheus.Register(inUse); err != nil && logger != nil {
		logger.Printf("metrics: register db gauge: %v", err)
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
