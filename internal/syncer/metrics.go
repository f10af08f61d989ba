package syncer

import (
	"time"

	"github.com/goran-ethernal/MarketSync/pkg/market"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketsync_ticks_total",
			Help: "Total number of synchronization ticks by outcome",
		},
		[]string{"outcome"},
	)

	tickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "marketsync_tick_duration_seconds",
			Help:    "Duration of synchronization ticks",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	syncLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marketsync_sync_lag_blocks",
			Help: "Blocks between the observed chain head and the cursor",
		},
	)
)

func tickObserve(res TickResult, err error, d time.Duration) {
	tickDuration.Observe(d.Seconds())
	ticks.WithLabelValues(tickOutcome(res, err)).Inc()
}

func tickOutcome(res TickResult, err error) string {
	switch {
	case err != nil && market.IsDataIntegrity(err):
		return "malformed"
	case err != nil && market.IsTransient(err):
		return "transient"
	case err != nil:
		return "error"
	case res.Skipped:
		return "skipped"
	case res.NoOp:
		return "noop"
	default:
		return "projected"
	}
}

func lagSet(head, cursor uint64) {
	if head < cursor {
		syncLag.Set(0)
		return
	}
	syncLag.Set(float64(head - cursor))
}
