package projector

import (
	"context"

	"github.com/goran-ethernal/MarketSync/internal/logger"
	"github.com/goran-ethernal/MarketSync/pkg/market"
)

var _ market.Projector = (*RequestAccepted)(nil)

// RequestAccepted locks the chosen seller on a request. It applies from any
// stage; no stub request is created when the request is unknown.
type RequestAccepted struct {
	store market.EntityStore
	log   *logger.Logger
}

func (p *RequestAccepted) Event() market.EventName { return market.EventRequestAccepted }

func (p *RequestAccepted) Project(ctx context.Context, entry market.LogEntry) error {
	f := newFields(entry)
	requestID := f.bigString("requestId")
	sellerID := f.bigString("sellerId")
	updatedAt := f.smallInt("updatedAt")
	if f.err != nil {
		return f.err
	}

	found, err := p.store.AcceptRequest(ctx, requestID, sellerID, updatedAt)
	if err != nil {
		return err
	}

	if !found {
		p.log.Warnw("acceptance for unknown request skipped",
			"request_id", requestID,
			"seller_id", sellerID,
			"tx", entry.TxHash.Hex(),
			"block", entry.BlockNumber,
		)
		projectedInc(p.Event(), outcomeParentMissing)
		return nil
	}

	projectedInc(p.Event(), outcomeApplied)

	return nil
}
