// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Scenario metrics
	ScenarioRunsTotal *prometheus.CounterVec
	ScenarioDuration  prometheus.Histogram
	SymbolsProcessed  prometheus.Counter
	SymbolsSkipped    *prometheus.CounterVec
	FoldsSimulated    *prometheus.CounterVec
	TradesSimulated   prometheus.Counter
	TuningCandidates  prometheus.Counter

	// Ingest metrics
	CandlesIngested *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	ProgressClients     prometheus.Gauge

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "coinlab"
	}

	return &Metrics{
		ScenarioRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scenario",
			Name:      "runs_total",
			Help:      "Total number of scenario runs by status",
		}, []string{"status"}),
		ScenarioDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scenario",
			Name:      "duration_seconds",
			Help:      "Scenario run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
		SymbolsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scenario",
			Name:      "symbols_processed_total",
			Help:      "Total number of (step, symbol) units simulated",
		}),
		SymbolsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scenario",
			Name:      "symbols_skipped_total",
			Help:      "Total number of (step, symbol) units skipped by reason",
		}, []string{"reason"}),
		FoldsSimulated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scenario",
			Name:      "folds_total",
			Help:      "Total number of folds by outcome",
		}, []string{"outcome"}),
		TradesSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scenario",
			Name:      "trades_simulated_total",
			Help:      "Total number of trades simulated on test windows",
		}),
		TuningCandidates: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tuning",
			Name:      "candidates_evaluated_total",
			Help:      "Total number of parameter candidates simulated on train windows",
		}),

		CandlesIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "candles_total",
			Help:      "Total number of candles copied by timeframe",
		}, []string{"tf"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		ProgressClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "progress_clients",
			Help:      "Number of connected progress stream clients",
		}),

		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful scenario run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordScenarioRun records a finished scenario run.
func RecordScenarioRun(status string, duration time.Duration) {
	DefaultMetrics.ScenarioRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.ScenarioDuration.Observe(duration.Seconds())
	if status == "ok" {
		DefaultMetrics.LastSuccessfulRun.SetToCurrentTime()
	}
}

// RecordSymbolProcessed increments the processed units counter.
func RecordSymbolProcessed() {
	DefaultMetrics.SymbolsProcessed.Inc()
}

// RecordSymbolSkipped records a skipped (step, symbol) unit.
func RecordSymbolSkipped(reason string) {
	DefaultMetrics.SymbolsSkipped.WithLabelValues(reason).Inc()
}

// RecordFold records one fold outcome ("simulated" or "short").
func RecordFold(outcome string, trades int) {
	DefaultMetrics.FoldsSimulated.WithLabelValues(outcome).Inc()
	DefaultMetrics.TradesSimulated.Add(float64(trades))
}

// RecordTuning adds evaluated tuning candidates.
func RecordTuning(candidates int) {
	DefaultMetrics.TuningCandidates.Add(float64(candidates))
}

// RecordCandlesIngested adds copied candles for a timeframe.
func RecordCandlesIngested(tf string, n int) {
	DefaultMetrics.CandlesIngested.WithLabelValues(tf).Add(float64(n))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(route, code string, duration time.Duration) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, code).Inc()
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// SetProgressClients updates the progress stream client gauge.
func SetProgressClients(n int) {
	DefaultMetrics.ProgressClients.Set(float64(n))
}
