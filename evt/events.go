package evt

import (
	"github.com/asaskevich/EventBus"
)

const (
	// ApplicationStarted fires on application start. Parameter: version, build time
	ApplicationStarted = "application:started"

	// CachingResultCacheHit fires if a query result was found in the cache. Parameter: domain name
	CachingResultCacheHit = "caching:cacheHit"

	// CachingResultCacheMiss fires if a query result was not found in the cache. Parameter: domain name
	CachingResultCacheMiss = "caching:cacheMiss"

	// DynamicQueryDelegated fires if a stored alias was delegated upstream. Parameter: alias target
	DynamicQueryDelegated = "dynamic:delegated"
)

// nolint:gochecknoglobals
var evtBus = EventBus.New()

// Bus returns the global event bus
func Bus() EventBus.Bus {
	return evtBus
}
