// Package metrics exposes Prometheus counters for the PAM engine: inbound
// message dispatch outcomes, merges, and cross-reference queries.
package metrics

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the engine's Prometheus collectors.
type Registry struct {
	reg *prometheus.Registry

	MessagesTotal *prometheus.CounterVec
	MergesTotal   *prometheus.CounterVec
	QueriesTotal  *prometheus.CounterVec
}

// New creates a Registry with all collectors registered.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		MessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pam_messages_total",
			Help: "Inbound administrative events by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		MergesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pam_merges_total",
			Help: "Identity merge operations by outcome.",
		}, []string{"outcome"}),
		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pam_queries_total",
			Help: "Cross-reference and demographic queries by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}

	reg.MustRegister(r.MessagesTotal, r.MergesTotal, r.QueriesTotal)
	return r
}

// Handler returns an echo handler serving the Prometheus text exposition.
func (r *Registry) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}))
}
