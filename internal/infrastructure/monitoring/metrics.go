package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Loading metrics
	LoaderInvocations *prometheus.CounterVec
	LoaderItems       *prometheus.GaugeVec
	LoaderDuration    *prometheus.HistogramVec
	StartupDuration   prometheus.Histogram
	BootFailures      prometheus.Counter
	HydrationFailures prometheus.Counter
	NamespaceItems    prometheus.Gauge
	NameCollisions    *prometheus.CounterVec
	FolderChildErrors prometheus.Counter

	// Build log metrics
	SinksOpen      prometheus.Gauge
	FinalizeErrors *prometheus.CounterVec
	BytesWritten   *prometheus.CounterVec

	startTime time.Time

	// Snapshot for the JSON API
	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current values for the JSON API.
type Snapshot struct {
	TotalRequests   int64   `json:"total_requests"`
	TotalErrors     int64   `json:"total_errors"`
	Passes          int64   `json:"passes"`
	FailedPasses    int64   `json:"failed_passes"`
	NamespaceItems  int64   `json:"namespace_items"`
	LastPassSeconds float64 `json:"last_pass_seconds"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
}

// NewMetrics creates a metrics collector backed by its own registry, so
// several instances can coexist in one process (tests, embedded hosts).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ci_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ci_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		LoaderInvocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ci_loader_invocations_total",
				Help: "Item loader invocations by outcome",
			},
			[]string{"loader", "status"},
		),
		LoaderItems: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ci_loader_items",
				Help: "Items contributed by each loader in the last pass",
			},
			[]string{"loader"},
		),
		LoaderDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ci_loader_duration_seconds",
				Help:    "Item loader duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"loader"},
		),
		StartupDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ci_startup_duration_seconds",
				Help:    "Duration of boot and reload passes in seconds",
				Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60},
			},
		),
		BootFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ci_boot_failures_total",
				Help: "Persistence root validations that failed",
			},
		),
		HydrationFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ci_item_hydration_failures_total",
				Help: "Items that failed to load their state",
			},
		),
		NamespaceItems: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ci_namespace_items",
				Help: "Top-level items in the live namespace",
			},
		),
		NameCollisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ci_name_collisions_total",
				Help: "Item names claimed by more than one loader in a pass",
			},
			[]string{"policy"},
		),
		FolderChildErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ci_folder_child_errors_total",
				Help: "Folder children that failed to load",
			},
		),

		SinksOpen: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ci_buildlog_sinks_open",
				Help: "Build log sinks currently open",
			},
		),
		FinalizeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ci_buildlog_finalize_errors_total",
				Help: "Build log finalize failures by method",
			},
			[]string{"method"},
		),
		BytesWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ci_buildlog_bytes_total",
				Help: "Bytes written to build logs by method",
			},
			[]string{"method"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "ci_uptime_seconds",
			Help: "Host uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordLoader records one loader invocation.
func (m *Metrics) RecordLoader(loader, status string, items int, duration time.Duration) {
	m.LoaderInvocations.WithLabelValues(loader, status).Inc()
	m.LoaderDuration.WithLabelValues(loader).Observe(duration.Seconds())
	if status == StatusSuccess {
		m.LoaderItems.WithLabelValues(loader).Set(float64(items))
	}
}

// RecordPass records a completed boot or reload pass.
func (m *Metrics) RecordPass(ok bool, items int, duration time.Duration) {
	m.StartupDuration.Observe(duration.Seconds())
	if ok {
		m.NamespaceItems.Set(float64(items))
	}

	m.mu.Lock()
	m.snapshot.Passes++
	if !ok {
		m.snapshot.FailedPasses++
	} else {
		m.snapshot.NamespaceItems = int64(items)
	}
	m.snapshot.LastPassSeconds = duration.Seconds()
	m.mu.Unlock()
}

// IncBootFailures counts a failed persistence root validation.
func (m *Metrics) IncBootFailures() {
	m.BootFailures.Inc()
}

// AddHydrationFailures counts items that failed to load.
func (m *Metrics) AddHydrationFailures(n int) {
	m.HydrationFailures.Add(float64(n))
}

// AddFolderChildErrors counts folder children that failed to load.
func (m *Metrics) AddFolderChildErrors(n int) {
	m.FolderChildErrors.Add(float64(n))
}

// IncNameCollision counts a name claimed twice in one pass.
func (m *Metrics) IncNameCollision(policy string) {
	m.NameCollisions.WithLabelValues(policy).Inc()
}

// SinkOpened tracks a newly opened build log sink.
func (m *Metrics) SinkOpened() {
	m.SinksOpen.Inc()
}

// SinkClosed tracks a released build log sink.
func (m *Metrics) SinkClosed() {
	m.SinksOpen.Dec()
}

// IncFinalizeErrors counts a failed finalize for a logging method.
func (m *Metrics) IncFinalizeErrors(method string) {
	m.FinalizeErrors.WithLabelValues(method).Inc()
}

// AddBytesWritten counts bytes accepted by a logging method.
func (m *Metrics) AddBytesWritten(method string, n int) {
	m.BytesWritten.WithLabelValues(method).Add(float64(n))
}

// Snapshot returns the current values for the JSON API.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	s := m.snapshot
	m.mu.RUnlock()
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
