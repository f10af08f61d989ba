package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/goran-ethernal/MarketSync/internal/common"
	"github.com/goran-ethernal/MarketSync/internal/config"
	"github.com/goran-ethernal/MarketSync/internal/cursor"
	"github.com/goran-ethernal/MarketSync/internal/db"
	"github.com/goran-ethernal/MarketSync/internal/migrations"
	"github.com/goran-ethernal/MarketSync/internal/rpc"
	"github.com/goran-ethernal/MarketSync/internal/source"
	"github.com/goran-ethernal/MarketSync/internal/store"
	"github.com/goran-ethernal/MarketSync/internal/syncer"
	"github.com/goran-ethernal/MarketSync/internal/types"
	"github.com/goran-ethernal/MarketSync/pkg/market"
	"github.com/spf13/cobra"
)

var (
	statusOffline bool
	statusJSON    bool
)

// statusReport is what the status command prints.
type statusReport struct {
	syncer.Status
	Requests uint64 `json:"requests"`
	Offers   uint64 `json:"offers"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cursor, chain head, lag and projected entity counts",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusOffline, "offline", false, "do not contact the ledger; head and lag are omitted")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the report as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := cmd.Context()
	dbLog := componentLogger(cfg, common.ComponentDB)

	sqlDB, err := db.NewSQLiteDBFromConfig(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer sqlDB.Close()

	if err := migrations.RunMigrations(dbLog, sqlDB); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	var head market.ChainHead
	if !statusOffline {
		ethClient, err := rpc.NewClient(ctx, cfg.Chain, componentLogger(cfg, common.ComponentRPC))
		if err != nil {
			return fmt.Errorf("failed to create RPC client: %w", err)
		}
		defer ethClient.Close()

		finality, err := types.ParseBlockFinality(cfg.Sync.Finality)
		if err != nil {
			return err
		}
		head = source.NewHead(ethClient, finality)
	}

	st, err := syncer.ReadStatus(ctx, cursor.NewStore(sqlDB, dbLog), head, cfg.Sync.StartBlock)
	if err != nil {
		return err
	}

	requests, offers, err := store.NewStore(sqlDB, dbLog).Counts(ctx)
	if err != nil {
		return err
	}

	report := statusReport{Status: st, Requests: requests, Offers: offers}

	if statusJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	cursorNote := ""
	if !report.CursorFound {
		cursorNote = " (not committed yet, start block)"
	}
	fmt.Fprintf(w, "cursor:\t%d%s\n", report.Cursor, cursorNote)
	if head != nil {
		fmt.Fprintf(w, "head (%s):\t%d\n", cfg.Sync.Finality, report.Head)
		fmt.Fprintf(w, "lag:\t%d\n", report.Lag)
	}
	fmt.Fprintf(w, "requests:\t%d\n", report.Requests)
	fmt.Fprintf(w, "offers:\t%d\n", report.Offers)

	return w.Flush()
}
