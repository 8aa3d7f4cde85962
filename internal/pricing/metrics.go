package pricing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PriceFetchesTotal counts upstream price fetches by result.
	PriceFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soltrader_price_fetches_total",
		Help: "Total number of upstream price fetches",
	}, []string{"result"})

	// PriceCacheHitsTotal counts price cache hits.
	PriceCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soltrader_price_cache_hits_total",
		Help: "Total number of price cache hits",
	})

	// PriceCacheMissesTotal counts price cache misses.
	PriceCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soltrader_price_cache_misses_total",
		Help: "Total number of price cache misses",
	})

	// PriceCacheEvictionsTotal counts hard-cap evictions.
	PriceCacheEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soltrader_price_cache_evictions_total",
		Help: "Total number of price cache entries evicted by the size cap",
	})

	// PriceCacheEntries is the current price cache size.
	PriceCacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "soltrader_price_cache_entries",
		Help: "Current number of entries in the price cache",
	})

	// PriceBatchDuration observes the wall time of each polling batch.
	PriceBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "soltrader_price_batch_duration_seconds",
		Help:    "Duration of price polling batches",
		Buckets: prometheus.DefBuckets,
	})

	// PriceBatchSize is the current adaptive batch size.
	PriceBatchSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "soltrader_price_batch_size",
		Help: "Current adaptive price polling batch size",
	})

	// WatchedTokens is the number of tokens in the polling watch set.
	WatchedTokens = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "soltrader_price_watched_tokens",
		Help: "Current number of tokens being polled for price updates",
	})
)
