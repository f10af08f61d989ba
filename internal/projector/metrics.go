package projector

import (
	"github.com/goran-ethernal/MarketSync/pkg/market"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeApplied       = "applied"
	outcomeParentMissing = "parent_missing"
)

var projected = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "marketsync_events_projected_total",
		Help: "Total number of events projected by event name and outcome",
	},
	[]string{"event", "outcome"},
)

func projectedInc(event market.EventName, outcome string) {
	projected.WithLabelValues(string(event), outcome).Inc()
}
