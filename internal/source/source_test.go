package source

import (
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/MarketSync/internal/logger"
	itypes "github.com/goran-ethernal/MarketSync/internal/types"
	"github.com/goran-ethernal/MarketSync/pkg/market"
	"github.com/goran-ethernal/MarketSync/pkg/rpc/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	contract = common.HexToAddress("0x1a2b73207c883ce8e51653d6a9cc8a022740cca4")
	buyer    = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	seller   = common.HexToAddress("0x00000000000000000000000000000000000000c1")
)

func mustABI(t *testing.T) *abi.ABI {
	t.Helper()

	parsed, err := LoadABI("")
	require.NoError(t, err)

	return parsed
}

func requestCreatedLog(t *testing.T, parsed *abi.ABI, requestID int64, block uint64, index uint) types.Log {
	t.Helper()

	ev := parsed.Events[string(market.EventRequestCreated)]
	data, err := ev.Inputs.NonIndexed().Pack(
		buyer,
		[]string{"ipfs://a"},
		uint8(0),
		"bike",
		"red bike",
		big.NewInt(-6524),
		big.NewInt(3379),
		big.NewInt(7),
		[]*big.Int{big.NewInt(1), big.NewInt(2)},
		big.NewInt(0),
		big.NewInt(0),
		big.NewInt(1700000000),
		big.NewInt(1700000000),
	)
	require.NoError(t, err)

	return types.Log{
		Address:     contract,
		Topics:      []common.Hash{ev.ID, common.BigToHash(big.NewInt(requestID))},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.BigToHash(big.NewInt(int64(block)*1000 + int64(index))),
		Index:       index,
	}
}

func offerCreatedLog(t *testing.T, parsed *abi.ABI, offerID, requestID int64, block uint64) types.Log {
	t.Helper()

	ev := parsed.Events[string(market.EventOfferCreated)]
	data, err := ev.Inputs.NonIndexed().Pack(
		"shop",
		big.NewInt(1500),
		big.NewInt(requestID),
		[]string{"ipfs://c"},
		big.NewInt(3),
	)
	require.NoError(t, err)

	return types.Log{
		Address:     contract,
		Topics:      []common.Hash{ev.ID, common.BigToHash(big.NewInt(offerID)), common.BytesToHash(seller.Bytes())},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.BigToHash(big.NewInt(offerID)),
	}
}

func headerAt(block uint64) *types.Header {
	return &types.Header{Number: new(big.Int).SetUint64(block), Time: 1700000000 + block}
}

func rangeIs(from, to uint64) any {
	return mock.MatchedBy(func(q ethereum.FilterQuery) bool {
		return q.FromBlock.Uint64() == from && q.ToBlock.Uint64() == to
	})
}

func TestLoadABI(t *testing.T) {
	parsed, err := LoadABI("")
	require.NoError(t, err)
	for _, name := range market.ProjectionOrder {
		require.Contains(t, parsed.Events, string(name))
	}

	dir := t.TempDir()
	partial := filepath.Join(dir, "partial.json")
	require.NoError(t, os.WriteFile(partial, []byte(`[{"type":"event","name":"RequestCreated","inputs":[]}]`), 0o600))

	_, err = LoadABI(partial)
	require.ErrorContains(t, err, "does not declare event OfferCreated")

	_, err = LoadABI(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

func TestFetch_InvalidRange(t *testing.T) {
	client := mocks.NewEthClient(t)
	src := New(client, contract, mustABI(t), logger.NewNopLogger())

	_, err := src.Fetch(t.Context(), market.EventRequestCreated, 10, 9)
	require.ErrorIs(t, err, market.ErrInvalidRange)
}

func TestFetch_DecodesInChainOrder(t *testing.T) {
	parsed := mustABI(t)
	client := mocks.NewEthClient(t)
	src := New(client, contract, parsed, logger.NewNopLogger())

	// provider returns logs out of order
	logs := []types.Log{
		requestCreatedLog(t, parsed, 3, 150, 0),
		requestCreatedLog(t, parsed, 2, 120, 5),
		requestCreatedLog(t, parsed, 1, 120, 1),
	}

	client.On("GetLogs", mock.Anything, rangeIs(101, 200)).Return(logs, nil).Once()
	client.On("BatchGetBlockHeaders", mock.Anything, []uint64{120, 150}).
		Return([]*types.Header{headerAt(120), headerAt(150)}, nil).Once()

	entries, err := src.Fetch(t.Context(), market.EventRequestCreated, 101, 200)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	require.Equal(t, big.NewInt(1), entries[0].Fields["requestId"])
	require.Equal(t, big.NewInt(2), entries[1].Fields["requestId"])
	require.Equal(t, big.NewInt(3), entries[2].Fields["requestId"])

	first := entries[0]
	require.Equal(t, market.EventRequestCreated, first.EventName)
	require.Equal(t, parsed.Events["RequestCreated"].ID, first.Signature)
	require.Equal(t, contract, first.Address)
	require.Equal(t, uint64(120), first.BlockNumber)
	require.Equal(t, uint64(1700000120), first.BlockTimestamp)
	require.Equal(t, buyer, first.Fields["buyerAddress"])
	require.Equal(t, []string{"ipfs://a"}, first.Fields["images"])
	require.Zero(t, big.NewInt(-6524).Cmp(first.Fields["latitude"].(*big.Int)))
	require.Equal(t, []*big.Int{big.NewInt(1), big.NewInt(2)}, first.Fields["sellerIds"])
	require.Equal(t, uint64(1700000150), entries[2].BlockTimestamp)

	// timestamps of already seen blocks come from the cache
	client.On("GetLogs", mock.Anything, rangeIs(201, 300)).
		Return([]types.Log{requestCreatedLog(t, parsed, 4, 150, 9)}, nil).Once()

	entries, err = src.Fetch(t.Context(), market.EventRequestCreated, 201, 300)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, uint64(1700000150), entries[0].BlockTimestamp)
}

func TestFetch_IndexedAddressTopic(t *testing.T) {
	parsed := mustABI(t)
	client := mocks.NewEthClient(t)
	src := New(client, contract, parsed, logger.NewNopLogger())

	client.On("GetLogs", mock.Anything, mock.Anything).
		Return([]types.Log{offerCreatedLog(t, parsed, 10, 1, 130)}, nil).Once()
	client.On("BatchGetBlockHeaders", mock.Anything, []uint64{130}).
		Return([]*types.Header{headerAt(130)}, nil).Once()

	entries, err := src.Fetch(t.Context(), market.EventOfferCreated, 101, 200)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, seller, entries[0].Fields["sellerAddress"])
	require.Equal(t, big.NewInt(10), entries[0].Fields["offerId"])
	require.Equal(t, "shop", entries[0].Fields["storeName"])
}

func TestFetch_Empty(t *testing.T) {
	client := mocks.NewEthClient(t)
	src := New(client, contract, mustABI(t), logger.NewNopLogger())

	client.On("GetLogs", mock.Anything, mock.Anything).Return([]types.Log{}, nil).Once()

	entries, err := src.Fetch(t.Context(), market.EventOfferAccepted, 5000, 5000)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestFetch_MalformedLog(t *testing.T) {
	parsed := mustABI(t)

	tests := []struct {
		name   string
		mutate func(l *types.Log)
	}{
		{name: "truncated data", mutate: func(l *types.Log) { l.Data = l.Data[:10] }},
		{name: "missing indexed topic", mutate: func(l *types.Log) { l.Topics = l.Topics[:1] }},
		{name: "wrong signature", mutate: func(l *types.Log) { l.Topics[0] = common.HexToHash("0xdead") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := mocks.NewEthClient(t)
			src := New(client, contract, parsed, logger.NewNopLogger())

			l := requestCreatedLog(t, parsed, 1, 120, 0)
			tt.mutate(&l)

			client.On("GetLogs", mock.Anything, mock.Anything).Return([]types.Log{l}, nil).Once()

			_, err := src.Fetch(t.Context(), market.EventRequestCreated, 101, 200)
			require.Error(t, err)
			require.True(t, market.IsDataIntegrity(err))
		})
	}
}

func TestFetch_SplitsTooLargeRange(t *testing.T) {
	parsed := mustABI(t)
	client := mocks.NewEthClient(t)
	src := New(client, contract, parsed, logger.NewNopLogger())

	tooMany := errors.New("query returned more than 10000 results. Try with this block range [0x65, 0x96].")

	client.On("GetLogs", mock.Anything, rangeIs(101, 2100)).Return(nil, tooMany).Once()
	client.On("GetLogs", mock.Anything, rangeIs(101, 150)).
		Return([]types.Log{requestCreatedLog(t, parsed, 1, 120, 0)}, nil).Once()
	client.On("GetLogs", mock.Anything, rangeIs(151, 2100)).
		Return([]types.Log{requestCreatedLog(t, parsed, 2, 1500, 0)}, nil).Once()
	client.On("BatchGetBlockHeaders", mock.Anything, []uint64{120, 1500}).
		Return([]*types.Header{headerAt(120), headerAt(1500)}, nil).Once()

	entries, err := src.Fetch(t.Context(), market.EventRequestCreated, 101, 2100)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, uint64(120), entries[0].BlockNumber)
	require.Equal(t, uint64(1500), entries[1].BlockNumber)
}

func TestFetch_PropagatesTransientErrors(t *testing.T) {
	parsed := mustABI(t)
	client := mocks.NewEthClient(t)
	src := New(client, contract, parsed, logger.NewNopLogger())

	client.On("GetLogs", mock.Anything, mock.Anything).
		Return(nil, market.Transient(errors.New("connection reset"))).Once()

	_, err := src.Fetch(t.Context(), market.EventRequestAccepted, 101, 200)
	require.True(t, market.IsTransient(err))

	client.On("GetLogs", mock.Anything, mock.Anything).
		Return([]types.Log{requestCreatedLog(t, parsed, 1, 120, 0)}, nil).Once()
	client.On("BatchGetBlockHeaders", mock.Anything, []uint64{120}).
		Return(nil, market.Transient(errors.New("timeout"))).Once()

	_, err = src.Fetch(t.Context(), market.EventRequestCreated, 101, 200)
	require.True(t, market.IsTransient(err))
}

func TestHead_HeadBlockNumber(t *testing.T) {
	client := mocks.NewEthClient(t)
	client.On("GetHeadBlockHeader", mock.Anything, itypes.FinalitySafe).Return(headerAt(4968), nil).Once()

	head := NewHead(client, itypes.FinalitySafe)
	n, err := head.HeadBlockNumber(t.Context())
	require.NoError(t, err)
	require.Equal(t, uint64(4968), n)

	client.On("GetHeadBlockHeader", mock.Anything, itypes.FinalitySafe).Return(nil, errors.New("boom")).Once()
	_, err = head.HeadBlockNumber(t.Context())
	require.ErrorContains(t, err, "boom")
}
