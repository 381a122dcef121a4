package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pawsync",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pawsync",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pawsync",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	tokensCharged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pawsync",
			Subsystem: "ledger",
			Name:      "tokens_charged_total",
			Help:      "Tokens charged for billable record creations.",
		},
		[]string{"kind"},
	)

	recordWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pawsync",
			Subsystem: "records",
			Name:      "writes_total",
			Help:      "Record create, update and delete operations.",
		},
		[]string{"kind", "op", "status"},
	)

	snapshotRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pawsync",
			Subsystem: "sync",
			Name:      "snapshot_requests_total",
			Help:      "Bulk snapshot requests served.",
		},
		[]string{"status"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		tokensCharged,
		recordWrites,
		snapshotRequests,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordTokensCharged records a ledger charge for one record kind.
func RecordTokensCharged(kind string, cost int64) {
	if cost <= 0 {
		return
	}
	tokensCharged.WithLabelValues(kind).Add(float64(cost))
}

// RecordWrite records the outcome of a record mutation.
func RecordWrite(kind, op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	recordWrites.WithLabelValues(kind, op, status).Inc()
}

// RecordSnapshot records a served snapshot request.
func RecordSnapshot(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	snapshotRequests.WithLabelValues(status).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses resource ids so the path label stays low-cardinality.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "api" || len(parts) < 3 {
		return "/" + parts[0]
	}

	// paths look like /api/v1/<resource>/...
	resource := parts[2]
	switch resource {
	case "pets":
		switch len(parts) {
		case 3:
			return "/api/v1/pets"
		case 4:
			return "/api/v1/pets/:id"
		default:
			return "/api/v1/pets/:id/" + parts[4]
		}
	case "records":
		if len(parts) >= 4 {
			return "/api/v1/records/" + parts[3]
		}
		return "/api/v1/records"
	case "tickets", "users":
		if len(parts) > 3 {
			return "/api/v1/" + resource + "/:id"
		}
		return "/api/v1/" + resource
	default:
		return "/api/v1/" + resource
	}
}
