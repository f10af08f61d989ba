package market

import (
	"context"
)

// CursorStore persists the last fully projected block height.
type CursorStore interface {
	// Get returns the stored height; found is false when no cursor was ever committed.
	Get(ctx context.Context) (height uint64, found bool, err error)

	// Commit stores height as the new cursor. It never lowers an existing cursor.
	Commit(ctx context.Context, height uint64) error
}

// EventSource retrieves decoded contract events for an inclusive block range.
type EventSource interface {
	// Fetch returns all events with the given name in [fromBlock, toBlock],
	// ordered by block number and then log index.
	Fetch(ctx context.Context, event EventName, fromBlock, toBlock uint64) ([]LogEntry, error)
}

// ChainHead reports the height the synchronizer may scan up to.
type ChainHead interface {
	HeadBlockNumber(ctx context.Context) (uint64, error)
}

// EntityStore holds the projected Request and Offer aggregates.
type EntityStore interface {
	// UpsertRequest inserts a request keyed by transaction hash. On conflict it refreshes
	// the event provenance and payload but keeps lifecycle and locked seller untouched.
	UpsertRequest(ctx context.Context, req *Request) error

	// GetRequestByRequestID returns the latest request carrying requestID or ErrNotFound.
	GetRequestByRequestID(ctx context.Context, requestID string) (*Request, error)

	// AdvanceRequestLifecycle moves requests with requestID from one stage to another.
	// Only rows currently at from are changed; it reports whether any row changed.
	AdvanceRequestLifecycle(ctx context.Context, requestID string, from, to Lifecycle) (bool, error)

	// AcceptRequest sets lifecycle to accepted and locks the seller regardless of the
	// current stage. It reports whether any row matched requestID.
	AcceptRequest(ctx context.Context, requestID, sellerID string, updatedAt uint64) (bool, error)

	// UpsertOffer inserts an offer keyed by transaction hash. On conflict it refreshes
	// provenance and payload but keeps the acceptance flag.
	UpsertOffer(ctx context.Context, offer *Offer) error

	// GetOfferByOfferID returns the latest offer carrying offerID or ErrNotFound.
	GetOfferByOfferID(ctx context.Context, offerID string) (*Offer, error)

	// SetOfferAccepted updates the acceptance flag of offers with offerID.
	// It reports whether any row matched.
	SetOfferAccepted(ctx context.Context, offerID string, accepted bool) (bool, error)
}

// EntityReader is the query side used by the read API and the status command.
type EntityReader interface {
	GetRequestByRequestID(ctx context.Context, requestID string) (*Request, error)
	GetOfferByOfferID(ctx context.Context, offerID string) (*Offer, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]*Request, error)
	ListOffers(ctx context.Context, filter OfferFilter) ([]*Offer, error)
	Counts(ctx context.Context) (requests, offers uint64, err error)
}

// Projector applies one decoded event to the entity store.
type Projector interface {
	Event() EventName
	Project(ctx context.Context, entry LogEntry) error
}
