package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goran-ethernal/MarketSync/internal/common"
	"github.com/goran-ethernal/MarketSync/internal/logger"
	"github.com/goran-ethernal/MarketSync/pkg/config"
	_ "github.com/mattn/go-sqlite3"
)

// NewSQLiteDB creates a new SQLite DB with default settings.
func NewSQLiteDB(dbPath string) (*sql.DB, error) {
	return sql.Open("sqlite3", fmt.Sprintf(
		"file:%s?_txlock=immediate&_foreign_keys=off&_journal_mode=WAL&_busy_timeout=30000",
		dbPath,
	))
}

// NewSQLiteDBFromConfig creates a new SQLite DB with the given configuration
// and verifies the file can actually be opened.
func NewSQLiteDBFromConfig(cfg config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"file:%s?_txlock=immediate&_foreign_keys=off&_journal_mode=%s&_busy_timeout=%d",
		cfg.Path,
		cfg.JournalMode,
		cfg.BusyTimeout,
	)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)

	if _, err := db.Exec(fmt.Sprintf("PRAGMA synchronous = %s", cfg.Synchronous)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragma: %w", err)
	}

	return db, nil
}

// OpenWithRetry opens the database and keeps retrying with a fixed delay until it
// succeeds or ctx is cancelled. The listener cannot do anything useful without
// its state store, so bootstrap blocks here instead of failing fast.
func OpenWithRetry(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*sql.DB, error) {
	delay := cfg.ConnectRetryDelay.Duration
	if delay <= 0 {
		delay = config.DefaultConnectRetryDelay
	}

	log = log.WithComponent(common.ComponentDB)

	for attempt := 1; ; attempt++ {
		db, err := NewSQLiteDBFromConfig(cfg)
		if err == nil {
			if err = db.PingContext(ctx); err == nil {
				connectAttemptsInc("success")
				log.Infow("database connected", "path", cfg.Path, "attempts", attempt)
				return db, nil
			}
			db.Close()
		}

		connectAttemptsInc("error")
		log.Warnw("database connection failed, retrying",
			"path", cfg.Path,
			"attempt", attempt,
			"retry_in", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("database connection aborted after %d attempts: %w", attempt, ctx.Err())
		case <-time.After(delay):
		}
	}
}

// WithTx runs fn inside a transaction, committing on success and rolling back otherwise.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				err = fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
