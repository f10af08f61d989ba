package cursor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goran-ethernal/MarketSync/internal/common"
	"github.com/goran-ethernal/MarketSync/internal/db"
	"github.com/goran-ethernal/MarketSync/internal/logger"
	"github.com/goran-ethernal/MarketSync/pkg/market"
	"github.com/russross/meddler"
)

// Compile-time check to ensure Store implements market.CursorStore interface.
var _ market.CursorStore = (*Store)(nil)

const tableName = "sync_cursor"

// Row is the singleton cursor row.
type Row struct {
	ID          int    `meddler:"id,pk"`
	BlockNumber uint64 `meddler:"block_number"`
	UpdatedAt   int64  `meddler:"updated_at"`
}

// Store persists the last projected block height in the sync_cursor table.
type Store struct {
	db  *sql.DB
	log *logger.Logger
}

// NewStore creates a cursor store over an already migrated database.
func NewStore(sqlDB *sql.DB, log *logger.Logger) *Store {
	return &Store{
		db:  sqlDB,
		log: log.WithComponent(common.ComponentCursorStore),
	}
}

// Get returns the stored cursor. found is false until the first commit.
func (s *Store) Get(ctx context.Context) (uint64, bool, error) {
	var row Row
	err := meddler.QueryRow(s.db, &row, `SELECT * FROM sync_cursor WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get cursor: %w", err)
	}

	return row.BlockNumber, true, nil
}

// Commit stores height as the cursor. Committing the current value again is a
// no-op, committing a lower value fails with market.ErrCursorRegression.
func (s *Store) Commit(ctx context.Context, height uint64) error {
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var current Row
		err := meddler.QueryRow(tx, &current, `SELECT * FROM sync_cursor WHERE id = 1`)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx,
				`INSERT INTO sync_cursor (id, block_number, updated_at) VALUES (1, ?, ?)`,
				height, time.Now().Unix())
			return err
		case err != nil:
			return err
		case height < current.BlockNumber:
			return fmt.Errorf("%w: stored %d, requested %d", market.ErrCursorRegression, current.BlockNumber, height)
		}

		current.BlockNumber = height
		current.UpdatedAt = time.Now().Unix()

		return meddler.Update(tx, tableName, &current)
	})
	if err != nil {
		return fmt.Errorf("failed to commit cursor: %w", err)
	}

	cursorHeightSet(height)
	s.log.Debugf("cursor committed: block=%d", height)

	return nil
}
