package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	icommon "github.com/goran-ethernal/MarketSync/internal/common"
	"github.com/goran-ethernal/MarketSync/internal/logger"
	"github.com/goran-ethernal/MarketSync/pkg/config"
	"github.com/russross/meddler"
	"github.com/stretchr/testify/require"
)

func testDBConfig(t *testing.T) config.DatabaseConfig {
	t.Helper()

	cfg := config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "test.db")}
	cfg.ApplyDefaults()

	return cfg
}

func TestOpenWithRetry_Success(t *testing.T) {
	cfg := testDBConfig(t)

	sqlDB, err := OpenWithRetry(t.Context(), cfg, logger.NewNopLogger())
	require.NoError(t, err)
	defer sqlDB.Close()

	var mode string
	require.NoError(t, sqlDB.QueryRow("PRAGMA journal_mode").Scan(&mode))
	require.Equal(t, "wal", mode)
}

func TestOpenWithRetry_CancelledWhileRetrying(t *testing.T) {
	cfg := config.DatabaseConfig{
		// A directory that does not exist cannot hold the database file.
		Path:              filepath.Join(t.TempDir(), "missing", "dir", "test.db"),
		ConnectRetryDelay: icommon.NewDuration(10 * time.Millisecond),
	}
	cfg.ApplyDefaults()

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	sqlDB, err := OpenWithRetry(ctx, cfg, logger.NewNopLogger())
	require.Error(t, err)
	require.Nil(t, sqlDB)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunMigrations(t *testing.T) {
	sqlDB, err := NewSQLiteDBFromConfig(testDBConfig(t))
	require.NoError(t, err)
	defer sqlDB.Close()

	migs := []Migration{
		{
			ID: "001_items.sql",
			SQL: `-- +migrate Down
DROP TABLE IF EXISTS items;

-- +migrate Up
CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT NOT NULL);`,
		},
	}

	log := logger.NewNopLogger()
	require.NoError(t, RunMigrations(log, sqlDB, migs))
	// second run is a no-op
	require.NoError(t, RunMigrations(log, sqlDB, migs))

	_, err = sqlDB.Exec(`INSERT INTO items (name) VALUES ('a')`)
	require.NoError(t, err)
}

func TestRunMigrations_MissingSeparator(t *testing.T) {
	sqlDB, err := NewSQLiteDBFromConfig(testDBConfig(t))
	require.NoError(t, err)
	defer sqlDB.Close()

	err = RunMigrations(logger.NewNopLogger(), sqlDB, []Migration{
		{ID: "bad.sql", SQL: "CREATE TABLE x (id INTEGER);"},
	})
	require.ErrorContains(t, err, "missing")
}

type meddledRow struct {
	ID      int64          `meddler:"id,pk"`
	TxHash  common.Hash    `meddler:"tx_hash,hash"`
	Address common.Address `meddler:"address,address"`
}

func TestMeddlers_RoundTrip(t *testing.T) {
	sqlDB, err := NewSQLiteDBFromConfig(testDBConfig(t))
	require.NoError(t, err)
	defer sqlDB.Close()

	_, err = sqlDB.Exec(`CREATE TABLE rows (id INTEGER PRIMARY KEY AUTOINCREMENT, tx_hash TEXT, address TEXT)`)
	require.NoError(t, err)

	in := &meddledRow{
		TxHash:  common.HexToHash("0xdeadbeef"),
		Address: common.HexToAddress("0x1a2b73207c883ce8e51653d6a9cc8a022740cca4"),
	}
	require.NoError(t, meddler.Insert(sqlDB, "rows", in))

	var out meddledRow
	require.NoError(t, meddler.QueryRow(sqlDB, &out, `SELECT * FROM rows WHERE id = ?`, in.ID))
	require.Equal(t, in.TxHash, out.TxHash)
	require.Equal(t, in.Address, out.Address)

	_, err = sqlDB.Exec(`INSERT INTO rows (tx_hash, address) VALUES (NULL, NULL)`)
	require.NoError(t, err)

	var empty meddledRow
	require.NoError(t, meddler.QueryRow(sqlDB, &empty, `SELECT * FROM rows WHERE tx_hash IS NULL`))
	require.Equal(t, common.Hash{}, empty.TxHash)
	require.Equal(t, common.Address{}, empty.Address)
}

func TestWithTx(t *testing.T) {
	sqlDB, err := NewSQLiteDBFromConfig(testDBConfig(t))
	require.NoError(t, err)
	defer sqlDB.Close()

	_, err = sqlDB.Exec(`CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)`)
	require.NoError(t, err)

	errBoom := errors.New("boom")
	err = WithTx(t.Context(), sqlDB, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO kv VALUES ('a', '1')`); err != nil {
			return err
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	var n int
	require.NoError(t, sqlDB.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&n))
	require.Zero(t, n)

	require.NoError(t, WithTx(t.Context(), sqlDB, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO kv VALUES ('a', '1')`)
		return err
	}))
	require.NoError(t, sqlDB.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&n))
	require.Equal(t, 1, n)
}
