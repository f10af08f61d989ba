package projector

import (
	"github.com/goran-ethernal/MarketSync/internal/common"
	"github.com/goran-ethernal/MarketSync/internal/logger"
	"github.com/goran-ethernal/MarketSync/pkg/market"
)

// Set holds one projector per marketplace event.
type Set map[market.EventName]market.Projector

// NewSet creates the projectors of all marketplace events over store.
func NewSet(store market.EntityStore, log *logger.Logger) Set {
	log = log.WithComponent(common.ComponentProjector)

	projectors := []market.Projector{
		&RequestCreated{store: store, log: log},
		&OfferCreated{store: store, log: log},
		&RequestAccepted{store: store, log: log},
		&OfferAccepted{store: store, log: log},
	}

	set := make(Set, len(projectors))
	for _, p := range projectors {
		set[p.Event()] = p
	}

	return set
}
