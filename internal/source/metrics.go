package source

import (
	"time"

	"github.com/goran-ethernal/MarketSync/internal/types"
	"github.com/goran-ethernal/MarketSync/pkg/market"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketsync_events_fetched_total",
			Help: "Total number of contract events fetched by event name",
		},
		[]string{"event"},
	)

	fetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketsync_event_fetch_duration_seconds",
			Help:    "Duration of fetching and decoding one event type for a window",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"event"},
	)

	rangeSplits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketsync_log_range_splits_total",
			Help: "Total number of log queries split because the provider refused the range",
		},
	)

	headBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marketsync_chain_head_block",
			Help: "Last observed chain head by finality",
		},
		[]string{"finality"},
	)
)

func eventsFetchedAdd(event market.EventName, n int) {
	eventsFetched.WithLabelValues(string(event)).Add(float64(n))
}

func fetchDurationObserve(event market.EventName, d time.Duration) {
	fetchDuration.WithLabelValues(string(event)).Observe(d.Seconds())
}

func rangeSplitsInc() {
	rangeSplits.Inc()
}

func headBlockSet(finality types.BlockFinality, block uint64) {
	headBlock.WithLabelValues(finality.String()).Set(float64(block))
}
