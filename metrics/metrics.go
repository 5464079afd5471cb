package metrics

import (
	"github.com/sqldns/sqldns/config"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// nolint:gochecknoglobals
var reg = prometheus.NewRegistry()

// RegisterMetric registers a prometheus collector
func RegisterMetric(c prometheus.Collector) {
	_ = reg.Register(c)
}

// Start registers the /metrics endpoint on the passed router
func Start(router *chi.Mux, cfg config.PrometheusConfig) {
	_ = reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	_ = reg.Register(collectors.NewGoCollector())

	registerEventListeners()

	router.Handle(cfg.Path, promhttp.InstrumentMetricHandler(reg,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
}
