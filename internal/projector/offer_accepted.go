package projector

import (
	"context"

	"github.com/goran-ethernal/MarketSync/internal/logger"
	"github.com/goran-ethernal/MarketSync/pkg/market"
)

var _ market.Projector = (*OfferAccepted)(nil)

// OfferAccepted copies the acceptance flag of the event onto the offer.
type OfferAccepted struct {
	store market.EntityStore
	log   *logger.Logger
}

func (p *OfferAccepted) Event() market.EventName { return market.EventOfferAccepted }

func (p *OfferAccepted) Project(ctx context.Context, entry market.LogEntry) error {
	f := newFields(entry)
	offerID := f.bigString("offerId")
	accepted := f.flag("isAccepted")
	if f.err != nil {
		return f.err
	}

	found, err := p.store.SetOfferAccepted(ctx, offerID, accepted)
	if err != nil {
		return err
	}

	if !found {
		p.log.Warnw("acceptance for unknown offer skipped",
			"offer_id", offerID,
			"tx", entry.TxHash.Hex(),
			"block", entry.BlockNumber,
		)
		projectedInc(p.Event(), outcomeParentMissing)
		return nil
	}

	projectedInc(p.Event(), outcomeApplied)

	return nil
}
