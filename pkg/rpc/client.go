package rpc

import (
	"context"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	itypes "github.com/goran-ethernal/MarketSync/internal/types"
)

// EthClient defines the ledger operations the synchronizer depends on.
// This abstraction allows for easier testing and alternative implementations.
type EthClient interface {
	// Close closes the RPC client connection.
	Close()

	// GetLogs retrieves logs matching the given filter query.
	GetLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)

	// GetBlockHeader retrieves the header for a specific block number.
	GetBlockHeader(ctx context.Context, blockNum uint64) (*types.Header, error)

	// GetHeadBlockHeader retrieves the newest header at the given finality level.
	GetHeadBlockHeader(ctx context.Context, finality itypes.BlockFinality) (*types.Header, error)

	// BatchGetBlockHeaders retrieves headers for multiple block numbers in batch calls.
	BatchGetBlockHeaders(ctx context.Context, blockNums []uint64) ([]*types.Header, error)
}
