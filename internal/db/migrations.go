package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/goran-ethernal/MarketSync/internal/logger"
	migrate "github.com/rubenv/sql-migrate"
)

const (
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"

	// NoLimitMigrations applies every pending migration.
	NoLimitMigrations = 0
)

// Migration is one embedded SQL file with a Down section followed by an Up section.
type Migration struct {
	ID  string
	SQL string
}

// parse splits the file into its up and down statements.
func (m Migration) parse() (*migrate.Migration, error) {
	down, up, ok := strings.Cut(m.SQL, upMarker)
	if !ok {
		return nil, fmt.Errorf("migration %s missing %q separator", m.ID, upMarker)
	}

	if _, after, found := strings.Cut(down, downMarker); found {
		down = after
	}

	return &migrate.Migration{
		Id:   m.ID,
		Up:   []string{strings.TrimSpace(up)},
		Down: []string{strings.TrimSpace(down)},
	}, nil
}

// RunMigrations applies all pending migrations in the up direction.
func RunMigrations(log *logger.Logger, db *sql.DB, migrations []Migration) error {
	return RunMigrationsExtended(log, db, migrations, migrate.Up, NoLimitMigrations)
}

// RunMigrationsExtended applies at most maxMigrations migrations in direction dir.
// Pass NoLimitMigrations to apply all of them.
func RunMigrationsExtended(log *logger.Logger, db *sql.DB, migrations []Migration,
	dir migrate.MigrationDirection, maxMigrations int) error {
	source := &migrate.MemoryMigrationSource{}
	ids := make([]string, 0, len(migrations))

	for _, m := range migrations {
		parsed, err := m.parse()
		if err != nil {
			return err
		}

		source.Migrations = append(source.Migrations, parsed)
		ids = append(ids, m.ID)
	}

	list := strings.Join(ids, ", ")
	log.Debugf("running migrations (max %d/%d): %s", maxMigrations, len(ids), list)

	n, err := migrate.ExecMax(db, "sqlite3", source, dir, maxMigrations)
	if err != nil {
		return fmt.Errorf("error executing migrations (max %d/%d) %s: %w", maxMigrations, len(ids), list, err)
	}

	migrationsAppliedAdd(n)
	log.Infof("successfully ran %d migrations from: %s", n, list)

	return nil
}
