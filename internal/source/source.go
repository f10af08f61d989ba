package source

import (
	"cmp"
	"context"
	"fmt"
	"math/big"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/lru"
	"github.com/ethereum/go-ethereum/core/types"
	icommon "github.com/goran-ethernal/MarketSync/internal/common"
	"github.com/goran-ethernal/MarketSync/internal/logger"
	irpc "github.com/goran-ethernal/MarketSync/internal/rpc"
	"github.com/goran-ethernal/MarketSync/pkg/market"
	pkgrpc "github.com/goran-ethernal/MarketSync/pkg/rpc"
)

// Compile-time check to ensure Source implements market.EventSource interface.
var _ market.EventSource = (*Source)(nil)

// timestampCacheSize bounds the block timestamp cache; a full window of
// events rarely spans more distinct blocks than this.
const timestampCacheSize = 4096

// Source fetches and decodes marketplace events for one contract.
type Source struct {
	client     pkgrpc.EthClient
	contract   common.Address
	abi        *abi.ABI
	timestamps *lru.Cache[uint64, uint64]
	log        *logger.Logger
}

// New creates an event source for the contract at address using the given ABI.
func New(client pkgrpc.EthClient, contract common.Address, contractABI *abi.ABI, log *logger.Logger) *Source {
	return &Source{
		client:     client,
		contract:   contract,
		abi:        contractABI,
		timestamps: lru.NewCache[uint64, uint64](timestampCacheSize),
		log:        log.WithComponent(icommon.ComponentEventSource),
	}
}

// Fetch returns the decoded events named event in [fromBlock, toBlock], in chain order.
func (s *Source) Fetch(ctx context.Context, event market.EventName,
	fromBlock, toBlock uint64) ([]market.LogEntry, error) {
	if fromBlock > toBlock {
		return nil, fmt.Errorf("%w: from %d > to %d", market.ErrInvalidRange, fromBlock, toBlock)
	}

	ev, ok := s.abi.Events[string(event)]
	if !ok {
		return nil, fmt.Errorf("event %s is not declared in the contract ABI", event)
	}

	start := time.Now()

	logs, err := s.getLogs(ctx, ev.ID, fromBlock, toBlock)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s logs [%d, %d]: %w", event, fromBlock, toBlock, err)
	}

	logs = slices.DeleteFunc(logs, func(l types.Log) bool { return l.Removed })
	slices.SortFunc(logs, func(a, b types.Log) int {
		if c := cmp.Compare(a.BlockNumber, b.BlockNumber); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})

	entries := make([]market.LogEntry, 0, len(logs))
	for _, l := range logs {
		entry, err := s.decode(ev, l)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := s.attachTimestamps(ctx, entries); err != nil {
		return nil, fmt.Errorf("failed to resolve %s block timestamps: %w", event, err)
	}

	eventsFetchedAdd(event, len(entries))
	fetchDurationObserve(event, time.Since(start))

	s.log.Debugw("fetched events",
		"event", event,
		"from_block", fromBlock,
		"to_block", toBlock,
		"count", len(entries),
	)

	return entries, nil
}

// getLogs queries the provider and, when it refuses a range as too large,
// splits the range at the suggested boundary or in half and retries both halves.
func (s *Source) getLogs(ctx context.Context, topic common.Hash, fromBlock, toBlock uint64) ([]types.Log, error) {
	logs, err := s.client.GetLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{s.contract},
		Topics:    [][]common.Hash{{topic}},
	})
	if err == nil {
		return logs, nil
	}

	tooMany, msg := irpc.IsTooManyResultsError(err)
	if !tooMany || fromBlock == toBlock {
		return nil, err
	}

	mid := fromBlock + (toBlock-fromBlock)/2
	if sFrom, sTo, ok := irpc.ParseSuggestedBlockRange(msg); ok && sFrom == fromBlock && sTo < toBlock {
		mid = sTo
	}

	rangeSplitsInc()
	s.log.Debugw("log range too large, splitting",
		"from_block", fromBlock, "to_block", toBlock, "split_at", mid)

	left, err := s.getLogs(ctx, topic, fromBlock, mid)
	if err != nil {
		return nil, err
	}

	right, err := s.getLogs(ctx, topic, mid+1, toBlock)
	if err != nil {
		return nil, err
	}

	return append(left, right...), nil
}

// decode unpacks the indexed and data fields of l into a LogEntry.
func (s *Source) decode(ev abi.Event, l types.Log) (market.LogEntry, error) {
	entry := market.LogEntry{
		Address:     l.Address,
		TxHash:      l.TxHash,
		BlockNumber: l.BlockNumber,
		BlockHash:   l.BlockHash,
		LogIndex:    l.Index,
		EventName:   market.EventName(ev.Name),
		Signature:   ev.ID,
		Fields:      make(map[string]any, len(ev.Inputs)),
	}

	if len(l.Topics) == 0 || l.Topics[0] != ev.ID {
		return entry, market.NewMalformedLogError(entry, "unexpected topic0", nil)
	}

	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}

	if len(l.Topics)-1 != len(indexed) {
		return entry, market.NewMalformedLogError(entry,
			fmt.Sprintf("expected %d indexed topics, got %d", len(indexed), len(l.Topics)-1), nil)
	}

	if err := s.abi.UnpackIntoMap(entry.Fields, ev.Name, l.Data); err != nil {
		return entry, market.NewMalformedLogError(entry, "failed to unpack data", err)
	}

	if err := abi.ParseTopicsIntoMap(entry.Fields, indexed, l.Topics[1:]); err != nil {
		return entry, market.NewMalformedLogError(entry, "failed to parse topics", err)
	}

	return entry, nil
}

// attachTimestamps fills BlockTimestamp, looking up uncached blocks in one batch.
func (s *Source) attachTimestamps(ctx context.Context, entries []market.LogEntry) error {
	var missing []uint64
	for _, e := range entries {
		if s.timestamps.Contains(e.BlockNumber) || slices.Contains(missing, e.BlockNumber) {
			continue
		}
		missing = append(missing, e.BlockNumber)
	}

	if len(missing) > 0 {
		headers, err := s.client.BatchGetBlockHeaders(ctx, missing)
		if err != nil {
			return err
		}

		if len(headers) != len(missing) {
			return fmt.Errorf("requested %d headers, got %d", len(missing), len(headers))
		}

		for i, h := range headers {
			s.timestamps.Add(missing[i], h.Time)
		}
	}

	for i := range entries {
		ts, ok := s.timestamps.Get(entries[i].BlockNumber)
		if !ok {
			return fmt.Errorf("timestamp of block %d not resolved", entries[i].BlockNumber)
		}
		entries[i].BlockTimestamp = ts
	}

	return nil
}
