package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder on a private Prometheus registry.
type PrometheusRecorder struct {
	clickCache        *prometheus.CounterVec
	clickDuration     prometheus.Histogram
	trackingEvents    *prometheus.CounterVec
	trackingLinks     *prometheus.CounterVec
	procedureCalls    *prometheus.CounterVec
	provisioningJobs  *prometheus.CounterVec
	provisioningQueue prometheus.Gauge
	adminActions      *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewPrometheus creates a PrometheusRecorder with all collectors registered.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()

	p := &PrometheusRecorder{
		clickCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creatorlink_click_cache_lookups_total",
				Help: "Tracking link cache lookups on the click path",
			},
			[]string{"result"},
		),
		clickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "creatorlink_click_duration_seconds",
				Help:    "Time to resolve and record a click",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
		trackingEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creatorlink_tracking_events_total",
				Help: "Tracking events recorded",
			},
			[]string{"type"},
		),
		trackingLinks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creatorlink_tracking_links_total",
				Help: "Tracking links returned by generation",
			},
			[]string{"result"},
		),
		procedureCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creatorlink_procedure_calls_total",
				Help: "Remote procedure invocations",
			},
			[]string{"procedure", "outcome"},
		),
		provisioningJobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creatorlink_provisioning_jobs_total",
				Help: "Link provisioning jobs by status",
			},
			[]string{"status"},
		),
		provisioningQueue: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "creatorlink_provisioning_queue_depth",
				Help: "Pending entries in the link provisioning stream",
			},
		),
		adminActions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creatorlink_admin_actions_total",
				Help: "Admin user-management actions performed",
			},
			[]string{"action"},
		),
		registry: reg,
	}

	reg.MustRegister(
		p.clickCache,
		p.clickDuration,
		p.trackingEvents,
		p.trackingLinks,
		p.procedureCalls,
		p.provisioningJobs,
		p.provisioningQueue,
		p.adminActions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return p
}

// Registry returns the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus text format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *PrometheusRecorder) IncClickCacheHit() {
	p.clickCache.WithLabelValues("hit").Inc()
}

func (p *PrometheusRecorder) IncClickCacheMiss() {
	p.clickCache.WithLabelValues("miss").Inc()
}

func (p *PrometheusRecorder) ObserveClickDuration(duration time.Duration) {
	p.clickDuration.Observe(duration.Seconds())
}

func (p *PrometheusRecorder) IncTrackingEvent(eventType string) {
	p.trackingEvents.WithLabelValues(eventType).Inc()
}

func (p *PrometheusRecorder) AddTrackingLinksCreated(n int) {
	p.trackingLinks.WithLabelValues("created").Add(float64(n))
}

func (p *PrometheusRecorder) AddTrackingLinksReused(n int) {
	p.trackingLinks.WithLabelValues("reused").Add(float64(n))
}

func (p *PrometheusRecorder) IncProcedureCall(procedure, outcome string) {
	p.procedureCalls.WithLabelValues(procedure, outcome).Inc()
}

func (p *PrometheusRecorder) IncProvisioningJob(status string) {
	p.provisioningJobs.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) SetProvisioningQueueDepth(depth int64) {
	p.provisioningQueue.Set(float64(depth))
}

func (p *PrometheusRecorder) IncAdminAction(action string) {
	p.adminActions.WithLabelValues(action).Inc()
}
