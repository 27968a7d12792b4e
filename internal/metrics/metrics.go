package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	reportsTotal       prometheus.Counter
	reportDuration     prometheus.Histogram
	monteCarloRuns     *prometheus.CounterVec
	monteCarloDuration prometheus.Histogram
	jobsActive         *prometheus.GaugeVec
	tradesStored       prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Business metrics
	r.reportsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tradelog_reports_total",
			Help: "Total number of analytics reports computed",
		},
	)
	r.reportDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tradelog_report_duration_seconds",
			Help:    "Analytics report computation time in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
		},
	)
	r.monteCarloRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradelog_montecarlo_runs_total",
			Help: "Total number of Monte Carlo simulations",
		},
		[]string{"status"},
	)
	r.monteCarloDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tradelog_montecarlo_duration_seconds",
			Help:    "Monte Carlo simulation duration in seconds",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30},
		},
	)
	r.jobsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tradelog_jobs_active",
			Help: "Number of active jobs",
		},
		[]string{"type"},
	)
	r.tradesStored = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tradelog_trades_stored",
			Help: "Number of trades in the journal",
		},
	)

	reg.MustRegister(r.reportsTotal)
	reg.MustRegister(r.reportDuration)
	reg.MustRegister(r.monteCarloRuns)
	reg.MustRegister(r.monteCarloDuration)
	reg.MustRegister(r.jobsActive)
	reg.MustRegister(r.tradesStored)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordReport records an analytics report computation. The business
// recorders below are no-ops on a nil registry.
func (r *Registry) RecordReport(duration float64) {
	if r == nil {
		return
	}
	r.reportsTotal.Inc()
	r.reportDuration.Observe(duration)
}

// RecordMonteCarlo records a finished simulation.
func (r *Registry) RecordMonteCarlo(status string, duration float64) {
	if r == nil {
		return
	}
	r.monteCarloRuns.WithLabelValues(status).Inc()
	r.monteCarloDuration.Observe(duration)
}

// SetJobsActive sets the number of active jobs of a type.
func (r *Registry) SetJobsActive(jobType string, count int) {
	if r == nil {
		return
	}
	r.jobsActive.WithLabelValues(jobType).Set(float64(count))
}

// SetTradesStored sets the journal size.
func (r *Registry) SetTradesStored(count int) {
	if r == nil {
		return
	}
	r.tradesStored.Set(float64(count))
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
