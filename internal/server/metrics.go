package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for one server. Each server owns
// its registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	uploadsTotal    *prometheus.CounterVec
	uploadBytes     prometheus.Counter
	uploadRenames   prometheus.Counter
	uploadDuration  prometheus.Histogram
	mirrorErrors    prometheus.Counter
	auditErrors     prometheus.Counter
	requestsTotal   *prometheus.CounterVec
	requestDuration prometheus.Histogram
}

// NewMetrics registers the File Drop collectors plus the Go runtime and
// process collectors on a fresh registry.
func NewMetrics(build BuildInfo) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		uploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filedrop_uploads_total",
			Help: "Upload attempts by result.",
		}, []string{"result"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filedrop_upload_bytes_total",
			Help: "Bytes written to the upload directory.",
		}),
		uploadRenames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filedrop_upload_renames_total",
			Help: "Uploads stored under a collision-resolved name.",
		}),
		uploadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "filedrop_upload_duration_seconds",
			Help:    "Time to receive and store one file.",
			Buckets: []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		mirrorErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filedrop_mirror_errors_total",
			Help: "Failed copies to object storage.",
		}),
		auditErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filedrop_audit_errors_total",
			Help: "Failed audit trail writes.",
		}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filedrop_http_requests_total",
			Help: "HTTP requests by status code.",
		}, []string{"code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "filedrop_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	buildInfo := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "filedrop_build_info",
		Help:        "Build metadata.",
		ConstLabels: prometheus.Labels{"version": build.Version, "commit": build.Commit},
	})
	buildInfo.Set(1)

	reg.MustRegister(
		m.uploadsTotal,
		m.uploadBytes,
		m.uploadRenames,
		m.uploadDuration,
		m.mirrorErrors,
		m.auditErrors,
		m.requestsTotal,
		m.requestDuration,
		buildInfo,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordUpload counts one upload attempt. bytes and renamed only matter for
// stored files.
func (m *Metrics) RecordUpload(result string, bytes int64, renamed bool) {
	m.uploadsTotal.WithLabelValues(result).Inc()
	if bytes > 0 {
		m.uploadBytes.Add(float64(bytes))
	}
	if renamed {
		m.uploadRenames.Inc()
	}
}

func (m *Metrics) ObserveUploadDuration(d time.Duration) {
	m.uploadDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordMirrorError() { m.mirrorErrors.Inc() }

func (m *Metrics) RecordAuditError() { m.auditErrors.Inc() }

// RecordRequest counts a finished HTTP request.
func (m *Metrics) RecordRequest(status int, d time.Duration) {
	m.requestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	m.requestDuration.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
