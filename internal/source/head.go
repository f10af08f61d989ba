package source

import (
	"context"
	"fmt"

	"github.com/goran-ethernal/MarketSync/internal/types"
	"github.com/goran-ethernal/MarketSync/pkg/market"
	pkgrpc "github.com/goran-ethernal/MarketSync/pkg/rpc"
)

// Compile-time check to ensure Head implements market.ChainHead interface.
var _ market.ChainHead = (*Head)(nil)

// Head reports the chain height at a configured finality level.
type Head struct {
	client   pkgrpc.EthClient
	finality types.BlockFinality
}

// NewHead creates a chain head reader.
func NewHead(client pkgrpc.EthClient, finality types.BlockFinality) *Head {
	return &Head{client: client, finality: finality}
}

// HeadBlockNumber returns the number of the newest block at the configured finality.
func (h *Head) HeadBlockNumber(ctx context.Context) (uint64, error) {
	header, err := h.client.GetHeadBlockHeader(ctx, h.finality)
	if err != nil {
		return 0, fmt.Errorf("failed to get %s block: %w", h.finality, err)
	}

	headBlockSet(h.finality, header.Number.Uint64())

	return header.Number.Uint64(), nil
}
