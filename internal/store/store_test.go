package store

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/MarketSync/internal/db"
	"github.com/goran-ethernal/MarketSync/internal/logger"
	"github.com/goran-ethernal/MarketSync/internal/migrations"
	"github.com/goran-ethernal/MarketSync/pkg/market"
	"github.com/stretchr/testify/require"
)

var (
	contractAddr = common.HexToAddress("0x1a2b73207c883ce8e51653d6a9cc8a022740cca4")
	buyerAddr    = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	sellerAddr   = common.HexToAddress("0x00000000000000000000000000000000000000c1")
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	sqlDB, err := db.NewSQLiteDB(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	log := logger.NewNopLogger()
	require.NoError(t, migrations.RunMigrations(log, sqlDB))

	return NewStore(sqlDB, log)
}

func testRequest(txHash, requestID string, block uint64) *market.Request {
	return &market.Request{
		TransactionHash:   common.HexToHash(txHash),
		Address:           contractAddr,
		EventName:         string(market.EventRequestCreated),
		Signature:         common.HexToHash("0x01"),
		BlockNumber:       block,
		BlockTimestamp:    1700000000 + block,
		RequestID:         requestID,
		BuyerAddress:      buyerAddr,
		Images:            []string{"ipfs://a", "ipfs://b"},
		Lifecycle:         market.LifecycleCreated,
		RequestName:       "bike",
		Description:       "red bike",
		Latitude:          "-6524",
		Longitude:         "3379",
		BuyerID:           "7",
		SellerIDs:         []string{"1", "2"},
		SellersPriceQuote: "0",
		LockedSellerID:    "0",
		CreatedAt:         1700000000,
		UpdatedAt:         1700000000,
	}
}

func testOffer(txHash, offerID, requestID string, block uint64) *market.Offer {
	return &market.Offer{
		TransactionHash: common.HexToHash(txHash),
		Address:         contractAddr,
		EventName:       string(market.EventOfferCreated),
		Signature:       common.HexToHash("0x02"),
		BlockNumber:     block,
		BlockTimestamp:  1700000000 + block,
		OfferID:         offerID,
		SellerAddress:   sellerAddr,
		StoreName:       "shop",
		Price:           "1500",
		RequestID:       requestID,
		Images:          []string{"ipfs://c"},
		SellerID:        "1",
	}
}

func TestStore_UpsertRequestAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	req := testRequest("0xaa", "1", 100)
	require.NoError(t, store.UpsertRequest(ctx, req))

	got, err := store.GetRequestByRequestID(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, req.TransactionHash, got.TransactionHash)
	require.Equal(t, req.BuyerAddress, got.BuyerAddress)
	require.Equal(t, req.Images, got.Images)
	require.Equal(t, req.SellerIDs, got.SellerIDs)
	require.Equal(t, "-6524", got.Latitude)
	require.Equal(t, market.LifecycleCreated, got.Lifecycle)
	require.Equal(t, uint64(1700000100), got.BlockTimestamp)

	_, err = store.GetRequestByRequestID(ctx, "404")
	require.ErrorIs(t, err, market.ErrNotFound)
}

func TestStore_UpsertRequestReplayKeepsDerivedState(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	req := testRequest("0xaa", "1", 100)
	require.NoError(t, store.UpsertRequest(ctx, req))

	ok, err := store.AcceptRequest(ctx, "1", "9", 1700009999)
	require.NoError(t, err)
	require.True(t, ok)

	// replaying the creation event must not undo the acceptance
	require.NoError(t, store.UpsertRequest(ctx, testRequest("0xaa", "1", 100)))

	got, err := store.GetRequestByRequestID(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, market.LifecycleAccepted, got.Lifecycle)
	require.Equal(t, "9", got.LockedSellerID)
	require.Equal(t, uint64(1700009999), got.UpdatedAt)

	requests, offers, err := store.Counts(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), requests)
	require.Zero(t, offers)
}

func TestStore_AdvanceRequestLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, store.UpsertRequest(ctx, testRequest("0xaa", "1", 100)))

	changed, err := store.AdvanceRequestLifecycle(ctx, "1", market.LifecycleCreated, market.LifecycleHasOffers)
	require.NoError(t, err)
	require.True(t, changed)

	// already past created, nothing changes
	changed, err = store.AdvanceRequestLifecycle(ctx, "1", market.LifecycleCreated, market.LifecycleHasOffers)
	require.NoError(t, err)
	require.False(t, changed)

	changed, err = store.AdvanceRequestLifecycle(ctx, "missing", market.LifecycleCreated, market.LifecycleHasOffers)
	require.NoError(t, err)
	require.False(t, changed)

	got, err := store.GetRequestByRequestID(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, market.LifecycleHasOffers, got.Lifecycle)
}

func TestStore_AcceptRequestMissing(t *testing.T) {
	store := newTestStore(t)

	ok, err := store.AcceptRequest(t.Context(), "1", "9", 1)
	require.NoError(t, err)
	require.False(t, ok)

	requests, _, err := store.Counts(t.Context())
	require.NoError(t, err)
	require.Zero(t, requests)
}

func TestStore_Offers(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	offer := testOffer("0xbb", "10", "1", 101)
	require.NoError(t, store.UpsertOffer(ctx, offer))

	got, err := store.GetOfferByOfferID(ctx, "10")
	require.NoError(t, err)
	require.Equal(t, offer.SellerAddress, got.SellerAddress)
	require.Equal(t, "1500", got.Price)
	require.Equal(t, []string{"ipfs://c"}, got.Images)
	require.False(t, got.IsAccepted)

	ok, err := store.SetOfferAccepted(ctx, "10", true)
	require.NoError(t, err)
	require.True(t, ok)

	// replay keeps the acceptance flag
	require.NoError(t, store.UpsertOffer(ctx, testOffer("0xbb", "10", "1", 101)))

	got, err = store.GetOfferByOfferID(ctx, "10")
	require.NoError(t, err)
	require.True(t, got.IsAccepted)

	ok, err = store.SetOfferAccepted(ctx, "404", true)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = store.GetOfferByOfferID(ctx, "404")
	require.ErrorIs(t, err, market.ErrNotFound)
}

func TestStore_ListRequests(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, store.UpsertRequest(ctx, testRequest("0xa1", "1", 100)))
	require.NoError(t, store.UpsertRequest(ctx, testRequest("0xa2", "2", 200)))

	other := testRequest("0xa3", "3", 300)
	other.BuyerAddress = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	require.NoError(t, store.UpsertRequest(ctx, other))

	_, err := store.AdvanceRequestLifecycle(ctx, "2", market.LifecycleCreated, market.LifecycleHasOffers)
	require.NoError(t, err)

	hasOffers := market.LifecycleHasOffers
	created := market.LifecycleCreated

	tests := []struct {
		name     string
		filter   market.RequestFilter
		expected []string
	}{
		{name: "all newest first", filter: market.RequestFilter{}, expected: []string{"3", "2", "1"}},
		{name: "by lifecycle", filter: market.RequestFilter{Lifecycle: &hasOffers}, expected: []string{"2"}},
		{name: "by buyer", filter: market.RequestFilter{Buyer: &buyerAddr}, expected: []string{"2", "1"}},
		{
			name:     "buyer and lifecycle",
			filter:   market.RequestFilter{Buyer: &buyerAddr, Lifecycle: &created},
			expected: []string{"1"},
		},
		{name: "paged", filter: market.RequestFilter{Limit: 1, Offset: 1}, expected: []string{"2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requests, err := store.ListRequests(ctx, tt.filter)
			require.NoError(t, err)

			ids := make([]string, 0, len(requests))
			for _, r := range requests {
				ids = append(ids, r.RequestID)
			}
			require.Equal(t, tt.expected, ids)
		})
	}
}

func TestStore_ListOffers(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, store.UpsertOffer(ctx, testOffer("0xb1", "10", "1", 101)))
	require.NoError(t, store.UpsertOffer(ctx, testOffer("0xb2", "11", "1", 102)))
	require.NoError(t, store.UpsertOffer(ctx, testOffer("0xb3", "12", "2", 103)))

	_, err := store.SetOfferAccepted(ctx, "11", true)
	require.NoError(t, err)

	accepted := true
	notAccepted := false

	tests := []struct {
		name     string
		filter   market.OfferFilter
		expected []string
	}{
		{name: "all", filter: market.OfferFilter{}, expected: []string{"12", "11", "10"}},
		{name: "by request", filter: market.OfferFilter{RequestID: "1"}, expected: []string{"11", "10"}},
		{name: "accepted", filter: market.OfferFilter{Accepted: &accepted}, expected: []string{"11"}},
		{
			name:     "request and not accepted",
			filter:   market.OfferFilter{RequestID: "1", Accepted: &notAccepted},
			expected: []string{"10"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offers, err := store.ListOffers(ctx, tt.filter)
			require.NoError(t, err)

			ids := make([]string, 0, len(offers))
			for _, o := range offers {
				ids = append(ids, o.OfferID)
			}
			require.Equal(t, tt.expected, ids)
		})
	}
}

func TestClampLimit(t *testing.T) {
	require.Equal(t, DefaultListLimit, clampLimit(0))
	require.Equal(t, DefaultListLimit, clampLimit(-5))
	require.Equal(t, 10, clampLimit(10))
	require.Equal(t, MaxListLimit, clampLimit(MaxListLimit+1))
}
