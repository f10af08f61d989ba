package rpc

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/goran-ethernal/MarketSync/internal/common"
	"github.com/goran-ethernal/MarketSync/internal/logger"
	itypes "github.com/goran-ethernal/MarketSync/internal/types"
	"github.com/goran-ethernal/MarketSync/pkg/config"
	pkgrpc "github.com/goran-ethernal/MarketSync/pkg/rpc"
)

// Compile-time check to ensure Client implements pkgrpc.EthClient interface.
var _ pkgrpc.EthClient = (*Client)(nil)

const maxHeaderBatch = 100

// Client wraps the Ethereum RPC client with per-call timeouts, retries and metrics.
// It implements the pkgrpc.EthClient interface.
type Client struct {
	eth     *ethclient.Client
	rpc     *rpc.Client
	retry   *config.RetryConfig
	timeout time.Duration
	log     *logger.Logger
}

// NewClient creates a new RPC client for the configured endpoint.
func NewClient(ctx context.Context, cfg config.ChainConfig, log *logger.Logger) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.RPCURL, err)
	}

	return newClientFromRPC(rpcClient, cfg, log), nil
}

func newClientFromRPC(rpcClient *rpc.Client, cfg config.ChainConfig, log *logger.Logger) *Client {
	return &Client{
		eth:     ethclient.NewClient(rpcClient),
		rpc:     rpcClient,
		retry:   cfg.Retry,
		timeout: cfg.RequestTimeout.Duration,
		log:     log.WithComponent(common.ComponentRPC),
	}
}

// Close closes the RPC client connection.
func (c *Client) Close() {
	c.eth.Close()
}

// GetLogs retrieves logs matching the given filter query.
func (c *Client) GetLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	var logs []types.Log
	err := c.call(ctx, "eth_getLogs", func(ctx context.Context) error {
		var err error
		logs, err = c.eth.FilterLogs(ctx, query)
		return err
	})

	return logs, err
}

// GetBlockHeader retrieves the header for a specific block number.
func (c *Client) GetBlockHeader(ctx context.Context, blockNum uint64) (*types.Header, error) {
	var header *types.Header
	err := c.call(ctx, "eth_getBlockByNumber", func(ctx context.Context) error {
		var err error
		header, err = c.eth.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNum))
		return err
	})

	return header, err
}

// GetHeadBlockHeader retrieves the latest, safe or finalized header.
func (c *Client) GetHeadBlockHeader(ctx context.Context, finality itypes.BlockFinality) (*types.Header, error) {
	var header *types.Header
	err := c.call(ctx, "eth_getBlockByNumber", func(ctx context.Context) error {
		var err error
		header, err = c.eth.HeaderByNumber(ctx, finality.BlockNumberArg())
		return err
	})
	if err != nil {
		return nil, err
	}

	if header == nil {
		return nil, fmt.Errorf("no %s block header returned", finality)
	}

	return header, nil
}

// BatchGetBlockHeaders retrieves headers for multiple block numbers, at most
// maxHeaderBatch per batch call.
func (c *Client) BatchGetBlockHeaders(ctx context.Context, blockNums []uint64) ([]*types.Header, error) {
	allResults := make([]*types.Header, 0, len(blockNums))

	for i := 0; i < len(blockNums); i += maxHeaderBatch {
		chunk := blockNums[i:min(i+maxHeaderBatch, len(blockNums))]
		results := make([]*types.Header, len(chunk))

		err := c.call(ctx, "eth_getBlockByNumber_batch", func(ctx context.Context) error {
			batch := make([]rpc.BatchElem, len(chunk))
			for j, blockNum := range chunk {
				batch[j] = rpc.BatchElem{
					Method: "eth_getBlockByNumber",
					Args:   []any{toBlockNumArg(blockNum), false},
					Result: &results[j],
				}
			}

			if err := c.rpc.BatchCallContext(ctx, batch); err != nil {
				return err
			}

			for j, elem := range batch {
				if elem.Error != nil {
					return elem.Error
				}
				if results[j] == nil {
					return fmt.Errorf("block %d not found", chunk[j])
				}
			}

			return nil
		})
		if err != nil {
			return nil, err
		}

		allResults = append(allResults, results...)
	}

	return allResults, nil
}

// call runs one RPC operation with retries, bounding every attempt by the
// configured request timeout. Exhausted retryable failures are marked transient.
func (c *Client) call(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	err := retryWithBackoff(ctx, c.retry, method, func() error {
		attemptCtx, cancel := c.withTimeout(ctx)
		defer cancel()

		start := time.Now()
		RPCMethodInc(method)
		err := fn(attemptCtx)
		RPCMethodDuration(method, time.Since(start))

		if err != nil {
			RPCMethodError(method, errorType(err))
		}

		return err
	})
	if err != nil {
		c.log.Debugw("rpc call failed", "method", method, "error", err)
		return classify(err)
	}

	return nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.timeout)
}

// toBlockNumArg converts a block number to hex format.
func toBlockNumArg(blockNum uint64) string {
	return fmt.Sprintf("0x%x", blockNum)
}
