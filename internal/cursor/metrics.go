package cursor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var cursorHeight = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "marketsync_cursor_block",
		Help: "Last block height committed to the sync cursor",
	},
)

func cursorHeightSet(height uint64) {
	cursorHeight.Set(float64(height))
}
