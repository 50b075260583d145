package keyring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks key-material cache behaviour.
type Metrics struct {
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	FetchFailures prometheus.Counter
	Invalidations prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veil_keyring_cache_hits_total",
			Help: "Total number of key material requests served from cache",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veil_keyring_cache_misses_total",
			Help: "Total number of key material requests that hit the secret store",
		}),
		FetchFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veil_keyring_fetch_failures_total",
			Help: "Total number of failed key material fetches",
		}),
		Invalidations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veil_keyring_invalidations_total",
			Help: "Total number of cache invalidations from rotation signals",
		}),
	}
}
