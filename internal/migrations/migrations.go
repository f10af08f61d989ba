package migrations

import (
	"database/sql"
	_ "embed"

	"github.com/goran-ethernal/MarketSync/internal/db"
	"github.com/goran-ethernal/MarketSync/internal/logger"
)

//go:embed 001_sync_cursor.sql
var mig001 string

//go:embed 002_requests.sql
var mig002 string

//go:embed 003_offers.sql
var mig003 string

// All returns the schema migrations of the state store in apply order.
func All() []db.Migration {
	return []db.Migration{
		{ID: "001_sync_cursor.sql", SQL: mig001},
		{ID: "002_requests.sql", SQL: mig002},
		{ID: "003_offers.sql", SQL: mig003},
	}
}

// RunMigrations brings the state store schema up to date.
func RunMigrations(log *logger.Logger, sqlDB *sql.DB) error {
	return db.RunMigrations(log, sqlDB, All())
}
