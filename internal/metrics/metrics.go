package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Scheduler loop metrics

	TickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "scheduler",
		Name:      "tick_duration_seconds",
		Help:      "Time taken to process one wake-dispatch loop iteration.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	})

	JobsSubmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduler",
		Name:      "jobs_submitted_total",
		Help:      "Total firings handed to an executor, by job id.",
	}, []string{"job_id"})

	JobsExecutedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduler",
		Name:      "jobs_executed_total",
		Help:      "Total job runs completed, by outcome.",
	}, []string{"outcome"})

	JobsMissedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduler",
		Name:      "jobs_missed_total",
		Help:      "Total firings dropped as misfires, by job id.",
	}, []string{"job_id"})

	JobsMaxInstancesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduler",
		Name:      "jobs_max_instances_total",
		Help:      "Total firings rejected because max_instances was already in flight.",
	}, []string{"job_id"})

	// StoreJobCount is registered, but nothing in this module sets it, so
	// it exports no samples.
	StoreJobCount = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "scheduler",
		Name:      "store_job_count",
		Help:      "Number of jobs currently held by a store.",
	}, []string{"store"})

	// Scheduler lifecycle

	SchedulerStartTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "scheduler",
		Name:      "start_time_seconds",
		Help:      "Unix timestamp when the scheduler last started.",
	})

	// HTTP metrics (admin API)

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scheduler",
		Name:      "http_request_duration_seconds",
		Help:      "Admin API request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduler",
		Name:      "http_requests_total",
		Help:      "Total admin API requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		TickDuration,
		JobsSubmittedTotal,
		JobsExecutedTotal,
		JobsMissedTotal,
		JobsMaxInstancesTotal,
		StoreJobCount,
		SchedulerStartTime,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{Addr: addr, Handler: mux}
}
