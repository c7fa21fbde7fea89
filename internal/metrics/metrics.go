package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "linkpilot"

// NewRegistry creates the process-wide Prometheus registry shared by all
// collectors.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// Handler returns an HTTP handler exposing everything registered on the
// given registry.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// HTTPCollector exposes Prometheus metrics for inbound HTTP requests.
type HTTPCollector struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

// NewHTTPCollector constructs a collector with default histograms/counters
// and registers it on the given registry.
func NewHTTPCollector(registry *prometheus.Registry) (*HTTPCollector, error) {
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for inbound HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of inbound HTTP requests.",
	}, []string{"method", "path", "status"})

	if err := registry.Register(requestDuration); err != nil {
		return nil, err
	}

	if err := registry.Register(requestTotal); err != nil {
		return nil, err
	}

	return &HTTPCollector{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
	}, nil
}

// InstrumentHandler wraps the provided handler to record HTTP metrics.
func (c *HTTPCollector) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.status)
		path := r.URL.Path

		c.requestTotal.WithLabelValues(r.Method, path, status).Inc()
		c.requestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// SyncCollector exposes Prometheus metrics for the sync engine.
type SyncCollector struct {
	apiCalls         prometheus.Counter
	queueItems       *prometheus.CounterVec
	engagementEvents prometheus.Counter
	sessionOutcomes  *prometheus.CounterVec
}

// NewSyncCollector constructs the sync engine collector and registers it on
// the given registry.
func NewSyncCollector(registry *prometheus.Registry) (*SyncCollector, error) {
	apiCalls := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "api_calls_total",
		Help:      "Total number of upstream API calls made by the sync engine.",
	})

	queueItems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "queue_items_total",
		Help:      "Total number of queue items settled, by result.",
	}, []string{"result"})

	engagementEvents := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "engagement_events_total",
		Help:      "Total number of engagement events recorded.",
	})

	sessionOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "sessions_total",
		Help:      "Total number of sync sessions settled, by outcome.",
	}, []string{"outcome"})

	for _, collector := range []prometheus.Collector{apiCalls, queueItems, engagementEvents, sessionOutcomes} {
		if err := registry.Register(collector); err != nil {
			return nil, err
		}
	}

	return &SyncCollector{
		apiCalls:         apiCalls,
		queueItems:       queueItems,
		engagementEvents: engagementEvents,
		sessionOutcomes:  sessionOutcomes,
	}, nil
}

// RecordAPICalls counts upstream API calls.
func (c *SyncCollector) RecordAPICalls(n int) {
	c.apiCalls.Add(float64(n))
}

// RecordItem counts a settled queue item by result ("completed", "failed").
func (c *SyncCollector) RecordItem(result string) {
	c.queueItems.WithLabelValues(result).Inc()
}

// RecordEngagementEvents counts stored engagement events.
func (c *SyncCollector) RecordEngagementEvents(n int) {
	c.engagementEvents.Add(float64(n))
}

// RecordSessionOutcome counts a settled session by outcome ("completed",
// "paused", "failed").
func (c *SyncCollector) RecordSessionOutcome(outcome string) {
	c.sessionOutcomes.WithLabelValues(outcome).Inc()
}
