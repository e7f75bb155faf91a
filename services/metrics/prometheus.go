// Package metrics exposes widget activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vishusingh1/classroom/core/media"
)

const namespace = "classroom"

type Metrics struct {
	registry *prometheus.Registry

	sessions       *prometheus.CounterVec
	opens          *prometheus.CounterVec
	uploads        *prometheus.CounterVec
	removals       *prometheus.CounterVec
	deleteFailures *prometheus.CounterVec
	mounted        *prometheus.GaugeVec
}

// New registers the widget metrics, plus the go and process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		sessions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "widget",
			Name:      "sessions_acquired_total",
			Help:      "Upload sessions constructed once the provider was ready.",
		}, []string{"kind"}),
		opens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "widget",
			Name:      "sessions_opened_total",
			Help:      "Upload flows opened by users.",
		}, []string{"kind"}),
		uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "widget",
			Name:      "uploads_total",
			Help:      "Upload results by outcome.",
		}, []string{"kind", "result"}),
		removals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "widget",
			Name:      "removals_total",
			Help:      "Removals, by whether a remote deletion was attempted.",
		}, []string{"kind", "remote"}),
		deleteFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "widget",
			Name:      "remote_deletion_failures_total",
			Help:      "Remote deletions that failed. The local value was cleared anyway.",
		}, []string{"kind"}),
		mounted: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "widget",
			Name:      "mounted",
			Help:      "Currently mounted widgets.",
		}, []string{"kind"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Mounted(kind string)   { m.mounted.WithLabelValues(kind).Inc() }
func (m *Metrics) Unmounted(kind string) { m.mounted.WithLabelValues(kind).Dec() }

// Observer returns the media.Observer of widgets of the given kind (eg: avatar, banner).
func (m *Metrics) Observer(kind string) media.Observer {
	return observer{m: m, kind: kind}
}

type observer struct {
	m    *Metrics
	kind string
}

var _ media.Observer = observer{}

func (o observer) SessionAcquired() { o.m.sessions.WithLabelValues(o.kind).Inc() }
func (o observer) SessionOpened()   { o.m.opens.WithLabelValues(o.kind).Inc() }
func (o observer) UploadSucceeded() { o.m.uploads.WithLabelValues(o.kind, "success").Inc() }
func (o observer) UploadRejected()  { o.m.uploads.WithLabelValues(o.kind, "rejected").Inc() }

func (o observer) Removed(remote bool) {
	label := "false"
	if remote {
		label = "true"
	}
	o.m.removals.WithLabelValues(o.kind, label).Inc()
}

func (o observer) RemoteDeletionFailed() { o.m.deleteFailures.WithLabelValues(o.kind).Inc() }
