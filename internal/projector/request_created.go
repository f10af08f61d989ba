package projector

import (
	"context"

	"github.com/goran-ethernal/MarketSync/internal/logger"
	"github.com/goran-ethernal/MarketSync/pkg/market"
)

var _ market.Projector = (*RequestCreated)(nil)

// RequestCreated stores a new buyer request keyed by its transaction hash.
type RequestCreated struct {
	store market.EntityStore
	log   *logger.Logger
}

func (p *RequestCreated) Event() market.EventName { return market.EventRequestCreated }

func (p *RequestCreated) Project(ctx context.Context, entry market.LogEntry) error {
	f := newFields(entry)
	req := &market.Request{
		TransactionHash:   entry.TxHash,
		Address:           entry.Address,
		EventName:         string(entry.EventName),
		Signature:         entry.Signature,
		BlockNumber:       entry.BlockNumber,
		BlockTimestamp:    entry.BlockTimestamp,
		RequestID:         f.bigString("requestId"),
		BuyerAddress:      f.address("buyerAddress"),
		Images:            f.textList("images"),
		Lifecycle:         market.LifecycleCreated,
		RequestName:       f.text("requestName"),
		Description:       f.text("description"),
		Latitude:          f.bigString("latitude"),
		Longitude:         f.bigString("longitude"),
		BuyerID:           f.bigString("buyerId"),
		SellerIDs:         f.bigList("sellerIds"),
		SellersPriceQuote: f.bigString("sellersPriceQuote"),
		LockedSellerID:    f.bigString("lockedSellerId"),
		CreatedAt:         f.smallInt("createdAt"),
		UpdatedAt:         f.smallInt("updatedAt"),
	}
	if f.err != nil {
		return f.err
	}

	if err := p.store.UpsertRequest(ctx, req); err != nil {
		return err
	}

	projectedInc(p.Event(), outcomeApplied)

	return nil
}
