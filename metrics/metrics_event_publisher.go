package metrics

import (
	"github.com/sqldns/sqldns/evt"
	"github.com/sqldns/sqldns/log"

	"github.com/prometheus/client_golang/prometheus"
)

// registerEventListeners subscribes to events and feeds them into counters
func registerEventListeners() {
	registerCachingEventListeners()
	registerDynamicEventListeners()
	registerApplicationEventListeners()
}

func registerDynamicEventListeners() {
	delegations := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqldns_delegation_total",
			Help: "Number of stored aliases delegated upstream",
		},
	)

	RegisterMetric(delegations)

	subscribe(evt.DynamicQueryDelegated, func(_ string) {
		delegations.Inc()
	})
}

func registerApplicationEventListeners() {
	startTime := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sqldns_build_info",
			Help: "Build information",
		},
	)

	RegisterMetric(startTime)

	subscribe(evt.ApplicationStarted, func(version, buildTime string) {
		startTime.Set(1)
	})
}

func registerCachingEventListeners() {
	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqldns_cache_hit_total",
			Help: "Number of cache hits",
		},
	)
	cacheMisses := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqldns_cache_miss_total",
			Help: "Number of cache misses",
		},
	)

	RegisterMetric(cacheHits)
	RegisterMetric(cacheMisses)

	subscribe(evt.CachingResultCacheHit, func(_ string) {
		cacheHits.Inc()
	})

	subscribe(evt.CachingResultCacheMiss, func(_ string) {
		cacheMisses.Inc()
	})
}

func subscribe(topic string, fn interface{}) {
	if err := evt.Bus().Subscribe(topic, fn); err != nil {
		log.Log().Warnf("can't subscribe topic '%s': %v", topic, err)
	}
}
