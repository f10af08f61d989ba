package projector

import (
	"math"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/MarketSync/internal/db"
	"github.com/goran-ethernal/MarketSync/internal/logger"
	"github.com/goran-ethernal/MarketSync/internal/migrations"
	"github.com/goran-ethernal/MarketSync/internal/store"
	"github.com/goran-ethernal/MarketSync/pkg/market"
	"github.com/stretchr/testify/require"
)

var (
	contract = common.HexToAddress("0x1a2b73207c883ce8e51653d6a9cc8a022740cca4")
	buyer    = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	seller   = common.HexToAddress("0x00000000000000000000000000000000000000c1")
)

func newTestSet(t *testing.T) (Set, *store.Store) {
	t.Helper()

	sqlDB, err := db.NewSQLiteDB(filepath.Join(t.TempDir(), "projector.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	log := logger.NewNopLogger()
	require.NoError(t, migrations.RunMigrations(log, sqlDB))

	s := store.NewStore(sqlDB, log)

	return NewSet(s, log), s
}

func entry(event market.EventName, tx int64, block uint64, fields map[string]any) market.LogEntry {
	return market.LogEntry{
		Address:        contract,
		TxHash:         common.BigToHash(big.NewInt(tx)),
		BlockNumber:    block,
		EventName:      event,
		Signature:      common.HexToHash("0x01"),
		Fields:         fields,
		BlockTimestamp: 1700000000 + block,
	}
}

func requestCreated(tx, requestID int64, block uint64) market.LogEntry {
	return entry(market.EventRequestCreated, tx, block, map[string]any{
		"requestId":         big.NewInt(requestID),
		"buyerAddress":      buyer,
		"images":            []string{"ipfs://a"},
		"lifecycle":         uint8(0),
		"requestName":       "bike",
		"description":       "red bike",
		"latitude":          big.NewInt(-6524),
		"longitude":         big.NewInt(3379),
		"buyerId":           big.NewInt(7),
		"sellerIds":         []*big.Int{big.NewInt(1), big.NewInt(2)},
		"sellersPriceQuote": big.NewInt(0),
		"lockedSellerId":    big.NewInt(0),
		"createdAt":         big.NewInt(1700000000),
		"updatedAt":         big.NewInt(1700000000),
	})
}

func offerCreated(tx, offerID, requestID int64, block uint64) market.LogEntry {
	return entry(market.EventOfferCreated, tx, block, map[string]any{
		"offerId":       big.NewInt(offerID),
		"sellerAddress": seller,
		"storeName":     "shop",
		"price":         big.NewInt(1500),
		"requestId":     big.NewInt(requestID),
		"images":        []string{"ipfs://c"},
		"sellerId":      big.NewInt(9),
	})
}

func requestAccepted(tx, requestID, sellerID int64, block uint64) market.LogEntry {
	return entry(market.EventRequestAccepted, tx, block, map[string]any{
		"requestId":         big.NewInt(requestID),
		"sellerId":          big.NewInt(sellerID),
		"updatedAt":         big.NewInt(1700005000),
		"sellersPriceQuote": big.NewInt(1500),
	})
}

func offerAccepted(tx, offerID int64, block uint64) market.LogEntry {
	return entry(market.EventOfferAccepted, tx, block, map[string]any{
		"offerId":      big.NewInt(offerID),
		"buyerAddress": buyer,
		"isAccepted":   true,
	})
}

func project(t *testing.T, set Set, entries ...market.LogEntry) {
	t.Helper()

	for _, e := range entries {
		require.NoError(t, set[e.EventName].Project(t.Context(), e))
	}
}

func TestNewSet(t *testing.T) {
	set, _ := newTestSet(t)

	require.Len(t, set, len(market.ProjectionOrder))
	for _, name := range market.ProjectionOrder {
		require.Equal(t, name, set[name].Event())
	}
}

func TestRequestCreated(t *testing.T) {
	set, s := newTestSet(t)
	ctx := t.Context()

	project(t, set, requestCreated(1, 5, 120))

	req, err := s.GetRequestByRequestID(ctx, "5")
	require.NoError(t, err)
	require.Equal(t, market.LifecycleCreated, req.Lifecycle)
	require.Equal(t, buyer, req.BuyerAddress)
	require.Equal(t, "-6524", req.Latitude)
	require.Equal(t, []string{"1", "2"}, req.SellerIDs)
	require.Equal(t, uint64(120), req.BlockNumber)
	require.Equal(t, uint64(1700000120), req.BlockTimestamp)
	require.Equal(t, string(market.EventRequestCreated), req.EventName)
}

func TestLifecycleTransitions(t *testing.T) {
	set, s := newTestSet(t)
	ctx := t.Context()

	project(t, set, requestCreated(1, 5, 120))

	project(t, set, offerCreated(2, 10, 5, 130))
	req, err := s.GetRequestByRequestID(ctx, "5")
	require.NoError(t, err)
	require.Equal(t, market.LifecycleHasOffers, req.Lifecycle)

	// a second offer leaves the request where it is
	project(t, set, offerCreated(3, 11, 5, 131))
	req, err = s.GetRequestByRequestID(ctx, "5")
	require.NoError(t, err)
	require.Equal(t, market.LifecycleHasOffers, req.Lifecycle)

	project(t, set, requestAccepted(4, 5, 9, 140))
	req, err = s.GetRequestByRequestID(ctx, "5")
	require.NoError(t, err)
	require.Equal(t, market.LifecycleAccepted, req.Lifecycle)
	require.Equal(t, "9", req.LockedSellerID)
	require.Equal(t, uint64(1700005000), req.UpdatedAt)

	// a late offer never moves an accepted request back
	project(t, set, offerCreated(5, 12, 5, 150))
	req, err = s.GetRequestByRequestID(ctx, "5")
	require.NoError(t, err)
	require.Equal(t, market.LifecycleAccepted, req.Lifecycle)

	project(t, set, offerAccepted(6, 10, 151))
	offer, err := s.GetOfferByOfferID(ctx, "10")
	require.NoError(t, err)
	require.True(t, offer.IsAccepted)

	other, err := s.GetOfferByOfferID(ctx, "11")
	require.NoError(t, err)
	require.False(t, other.IsAccepted)
}

func TestRequestAcceptedFromCreated(t *testing.T) {
	set, s := newTestSet(t)

	project(t, set, requestCreated(1, 5, 120), requestAccepted(2, 5, 3, 121))

	req, err := s.GetRequestByRequestID(t.Context(), "5")
	require.NoError(t, err)
	require.Equal(t, market.LifecycleAccepted, req.Lifecycle)
	require.Equal(t, "3", req.LockedSellerID)
}

func TestMissingParents(t *testing.T) {
	set, s := newTestSet(t)
	ctx := t.Context()

	// offer for a request that was never seen
	project(t, set, offerCreated(1, 10, 77, 120))

	offer, err := s.GetOfferByOfferID(ctx, "10")
	require.NoError(t, err)
	require.Equal(t, "77", offer.RequestID)

	_, err = s.GetRequestByRequestID(ctx, "77")
	require.ErrorIs(t, err, market.ErrNotFound)

	// acceptances of unknown entities are skipped without creating rows
	project(t, set, requestAccepted(2, 78, 1, 121), offerAccepted(3, 99, 122))

	requests, offers, err := s.Counts(ctx)
	require.NoError(t, err)
	require.Zero(t, requests)
	require.Equal(t, uint64(1), offers)
}

func TestIdempotentReplay(t *testing.T) {
	set, s := newTestSet(t)
	ctx := t.Context()

	batch := []market.LogEntry{
		requestCreated(1, 5, 120),
		requestCreated(2, 6, 121),
		offerCreated(3, 10, 5, 130),
		requestAccepted(4, 5, 9, 140),
		offerAccepted(5, 10, 141),
	}

	project(t, set, batch...)

	snapshot := func() ([]*market.Request, []*market.Offer) {
		requests, err := s.ListRequests(ctx, market.RequestFilter{})
		require.NoError(t, err)
		offers, err := s.ListOffers(ctx, market.OfferFilter{})
		require.NoError(t, err)
		return requests, offers
	}

	requestsBefore, offersBefore := snapshot()

	project(t, set, batch...)

	requestsAfter, offersAfter := snapshot()
	require.Equal(t, requestsBefore, requestsAfter)
	require.Equal(t, offersBefore, offersAfter)
}

func TestMalformedEntries(t *testing.T) {
	set, s := newTestSet(t)

	missing := requestCreated(1, 5, 120)
	delete(missing.Fields, "buyerAddress")

	mistyped := offerCreated(2, 10, 5, 121)
	mistyped.Fields["price"] = "1500"

	overflow := requestAccepted(3, 5, 9, 122)
	overflow.Fields["updatedAt"] = new(big.Int).Lsh(big.NewInt(1), 70)

	badFlag := offerAccepted(4, 10, 123)
	badFlag.Fields["isAccepted"] = big.NewInt(1)

	for _, e := range []market.LogEntry{missing, mistyped, overflow, badFlag} {
		t.Run(string(e.EventName), func(t *testing.T) {
			err := set[e.EventName].Project(t.Context(), e)
			require.Error(t, err)
			require.True(t, market.IsDataIntegrity(err))
		})
	}

	requests, offers, err := s.Counts(t.Context())
	require.NoError(t, err)
	require.Zero(t, requests)
	require.Zero(t, offers)
}

func TestTimestampsBeyondInt64(t *testing.T) {
	set, s := newTestSet(t)

	edge := requestCreated(1, 5, 120)
	edge.Fields["createdAt"] = big.NewInt(math.MaxInt64)
	project(t, set, edge)

	req, err := s.GetRequestByRequestID(t.Context(), "5")
	require.NoError(t, err)
	require.Equal(t, uint64(math.MaxInt64), req.CreatedAt)

	tooBig := requestCreated(2, 6, 121)
	tooBig.Fields["createdAt"] = new(big.Int).Lsh(big.NewInt(1), 63)

	err = set[market.EventRequestCreated].Project(t.Context(), tooBig)
	require.ErrorIs(t, err, market.ErrMalformedLog)
	require.ErrorContains(t, err, "field createdAt out of range")

	negative := requestAccepted(3, 5, 9, 122)
	negative.Fields["updatedAt"] = big.NewInt(-1)

	err = set[market.EventRequestAccepted].Project(t.Context(), negative)
	require.ErrorIs(t, err, market.ErrMalformedLog)

	_, err = s.GetRequestByRequestID(t.Context(), "6")
	require.ErrorIs(t, err, market.ErrNotFound)
}
