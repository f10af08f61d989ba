package projector

import (
	"context"
	"errors"
	"fmt"

	"github.com/goran-ethernal/MarketSync/internal/logger"
	"github.com/goran-ethernal/MarketSync/pkg/market"
)

var _ market.Projector = (*OfferCreated)(nil)

// OfferCreated stores a seller offer and moves the referenced request from
// created to has-offers. Later offers leave the request stage alone.
type OfferCreated struct {
	store market.EntityStore
	log   *logger.Logger
}

func (p *OfferCreated) Event() market.EventName { return market.EventOfferCreated }

func (p *OfferCreated) Project(ctx context.Context, entry market.LogEntry) error {
	f := newFields(entry)
	offer := &market.Offer{
		TransactionHash: entry.TxHash,
		Address:         entry.Address,
		EventName:       string(entry.EventName),
		Signature:       entry.Signature,
		BlockNumber:     entry.BlockNumber,
		BlockTimestamp:  entry.BlockTimestamp,
		OfferID:         f.bigString("offerId"),
		SellerAddress:   f.address("sellerAddress"),
		StoreName:       f.text("storeName"),
		Price:           f.bigString("price"),
		RequestID:       f.bigString("requestId"),
		Images:          f.textList("images"),
		SellerID:        f.bigString("sellerId"),
		IsAccepted:      false,
	}
	if f.err != nil {
		return f.err
	}

	if err := p.store.UpsertOffer(ctx, offer); err != nil {
		return err
	}

	req, err := p.store.GetRequestByRequestID(ctx, offer.RequestID)
	if errors.Is(err, market.ErrNotFound) {
		// the offer is kept, the request may simply be unknown to this deployment
		p.log.Warnw("offer references unknown request",
			"offer_id", offer.OfferID,
			"request_id", offer.RequestID,
			"tx", entry.TxHash.Hex(),
			"block", entry.BlockNumber,
		)
		projectedInc(p.Event(), outcomeParentMissing)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up request %s: %w", offer.RequestID, err)
	}

	if req.Lifecycle == market.LifecycleCreated {
		if _, err := p.store.AdvanceRequestLifecycle(ctx, offer.RequestID,
			market.LifecycleCreated, market.LifecycleHasOffers); err != nil {
			return err
		}
		p.log.Debugw("request received first offer", "request_id", offer.RequestID, "offer_id", offer.OfferID)
	}

	projectedInc(p.Event(), outcomeApplied)

	return nil
}
