package db

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketsync_db_connect_attempts_total",
			Help: "Total number of database connection attempts by outcome",
		},
		[]string{"status"},
	)

	migrationsApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketsync_db_migrations_applied_total",
			Help: "Total number of schema migrations applied",
		},
	)
)

func connectAttemptsInc(status string) {
	connectAttempts.WithLabelValues(status).Inc()
}

func migrationsAppliedAdd(n int) {
	migrationsApplied.Add(float64(n))
}
