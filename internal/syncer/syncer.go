package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goran-ethernal/MarketSync/internal/common"
	"github.com/goran-ethernal/MarketSync/internal/logger"
	"github.com/goran-ethernal/MarketSync/internal/window"
	"github.com/goran-ethernal/MarketSync/pkg/config"
	"github.com/goran-ethernal/MarketSync/pkg/market"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const tickKey = "tick"

// Lease guards a tick against concurrent ticks of other processes.
type Lease interface {
	// TryAcquire returns ok=false without error when another holder owns the lease.
	// release must be called once the tick is done.
	TryAcquire(ctx context.Context) (release func(), ok bool, err error)
}

// TickResult describes what a single tick did.
type TickResult struct {
	// Head is the chain height observed by the tick.
	Head uint64
	// Cursor is the cursor value after the tick.
	Cursor uint64
	// Window is the scanned range; zero when NoOp or Skipped.
	Window window.Window
	// Events counts the projected entries per event.
	Events map[market.EventName]int
	// Seeded is set when the tick created the cursor from the configured start block.
	Seeded bool
	// NoOp is set when the cursor already reached the head, or the head has
	// not reached the start block yet.
	NoOp bool
	// Skipped is set when another process holds the tick lease.
	Skipped bool
	// Shared is set when the caller joined a tick started by another caller.
	Shared bool
}

// Status is a point-in-time view of synchronization progress.
type Status struct {
	Cursor      uint64 `json:"cursor"`
	CursorFound bool   `json:"cursor_found"`
	Head        uint64 `json:"head"`
	Lag         uint64 `json:"lag"`
}

// Syncer advances the cursor window by window, projecting every marketplace
// event of a window before committing it.
type Syncer struct {
	cfg        config.SyncConfig
	head       market.ChainHead
	source     market.EventSource
	cursor     market.CursorStore
	projectors map[market.EventName]market.Projector
	lease      Lease
	group      singleflight.Group
	log        *logger.Logger
}

// New creates a Syncer. lease may be nil when a single process runs the synchronizer.
func New(
	cfg config.SyncConfig,
	head market.ChainHead,
	source market.EventSource,
	cursor market.CursorStore,
	projectors map[market.EventName]market.Projector,
	lease Lease,
	log *logger.Logger,
) (*Syncer, error) {
	if head == nil {
		return nil, errors.New("chain head is required")
	}
	if source == nil {
		return nil, errors.New("event source is required")
	}
	if cursor == nil {
		return nil, errors.New("cursor store is required")
	}
	for _, name := range market.ProjectionOrder {
		if projectors[name] == nil {
			return nil, fmt.Errorf("projector for %s is required", name)
		}
	}
	if cfg.MaxWindow == 0 {
		cfg.MaxWindow = config.DefaultMaxWindow
	}
	if cfg.Interval.Duration <= 0 {
		cfg.Interval.Duration = config.DefaultInterval
	}

	return &Syncer{
		cfg:        cfg,
		head:       head,
		source:     source,
		cursor:     cursor,
		projectors: projectors,
		lease:      lease,
		log:        log.WithComponent(common.ComponentSyncer),
	}, nil
}

// Run ticks immediately and then every configured interval until ctx is cancelled.
// Failed ticks are logged and the same window is retried on the next interval.
func (s *Syncer) Run(ctx context.Context) error {
	s.log.Infow("synchronizer started",
		"interval", s.cfg.Interval.Duration,
		"max_window", s.cfg.MaxWindow,
		"finality", s.cfg.Finality,
	)

	ticker := time.NewTicker(s.cfg.Interval.Duration)
	defer ticker.Stop()

	for {
		s.runTick(ctx)

		select {
		case <-ctx.Done():
			s.log.Info("synchronizer stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Syncer) runTick(ctx context.Context) {
	res, err := s.Tick(ctx)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		// shutting down
	case market.IsDataIntegrity(err):
		s.log.Errorw("tick aborted on malformed event, window will be retried", "error", err)
	case market.IsTransient(err):
		s.log.Warnw("tick failed, retrying next interval", "error", err)
	default:
		s.log.Errorw("tick failed", "error", err)
	}

	if err == nil && !res.NoOp && !res.Skipped {
		s.log.Infow("window projected",
			"from_block", res.Window.From,
			"to_block", res.Window.To,
			"head", res.Head,
			"events", res.Events,
		)
	}
}

// Tick performs one synchronization step. Concurrent callers share the
// in-flight tick instead of starting another one. The shared tick runs under
// the context of the caller that started it; a joiner whose ctx is done
// returns ctx.Err() without waiting for it.
func (s *Syncer) Tick(ctx context.Context) (TickResult, error) {
	ch := s.group.DoChan(tickKey, func() (any, error) {
		return s.tick(ctx)
	})

	select {
	case r := <-ch:
		res, _ := r.Val.(TickResult)
		res.Shared = r.Shared
		return res, r.Err
	case <-ctx.Done():
		return TickResult{}, ctx.Err()
	}
}

func (s *Syncer) tick(ctx context.Context) (res TickResult, err error) {
	start := time.Now()
	defer func() { tickObserve(res, err, time.Since(start)) }()

	if s.lease != nil {
		release, ok, err := s.lease.TryAcquire(ctx)
		if err != nil {
			return TickResult{}, fmt.Errorf("failed to acquire tick lease: %w", market.Transient(err))
		}
		if !ok {
			s.log.Debug("tick lease held by another process, skipping")
			return TickResult{Skipped: true}, nil
		}
		defer release()
	}

	head, err := s.head.HeadBlockNumber(ctx)
	if err != nil {
		return TickResult{}, fmt.Errorf("failed to read chain head: %w", err)
	}
	res.Head = head

	last, found, err := s.cursor.Get(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to read cursor: %w", err)
	}

	if !found {
		if s.cfg.StartBlock > head {
			s.log.Debugw("chain head below start block, cursor not seeded yet",
				"start_block", s.cfg.StartBlock, "head", head)
			lagSet(head, s.cfg.StartBlock)
			res.NoOp = true
			return res, nil
		}

		last = s.cfg.StartBlock
		if err := s.cursor.Commit(ctx, last); err != nil {
			return res, fmt.Errorf("failed to seed cursor: %w", err)
		}
		res.Seeded = true
		s.log.Infow("cursor seeded", "start_block", last)
	}
	res.Cursor = last
	lagSet(head, last)

	w, ok := window.Plan(last, head, s.cfg.MaxWindow)
	if !ok {
		res.NoOp = true
		return res, nil
	}
	res.Window = w

	batches, err := s.fetchAll(ctx, w)
	if err != nil {
		return res, err
	}

	res.Events = make(map[market.EventName]int, len(batches))
	for i, name := range market.ProjectionOrder {
		projector := s.projectors[name]
		for _, entry := range batches[i] {
			if err := projector.Project(ctx, entry); err != nil {
				return res, fmt.Errorf("failed to project %s at block %d (tx %s): %w",
					name, entry.BlockNumber, entry.TxHash.Hex(), err)
			}
		}
		res.Events[name] = len(batches[i])
	}

	if err := s.cursor.Commit(ctx, w.To); err != nil {
		return res, fmt.Errorf("failed to commit cursor: %w", err)
	}
	res.Cursor = w.To
	lagSet(head, w.To)

	return res, nil
}

// fetchAll fetches the window for every event concurrently. The result is
// indexed like market.ProjectionOrder.
func (s *Syncer) fetchAll(ctx context.Context, w window.Window) ([][]market.LogEntry, error) {
	batches := make([][]market.LogEntry, len(market.ProjectionOrder))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range market.ProjectionOrder {
		g.Go(func() error {
			entries, err := s.source.Fetch(gctx, name, w.From, w.To)
			if err != nil {
				return fmt.Errorf("failed to fetch %s in %s: %w", name, w, err)
			}
			batches[i] = entries
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return batches, nil
}

// Status reports the cursor, the current chain head and the distance between them.
func (s *Syncer) Status(ctx context.Context) (Status, error) {
	return ReadStatus(ctx, s.cursor, s.head, s.cfg.StartBlock)
}

// ReadStatus builds a Status from a cursor store and a chain head. When the cursor
// was never committed the configured start block is reported instead.
func ReadStatus(ctx context.Context, cursor market.CursorStore, head market.ChainHead,
	startBlock uint64) (Status, error) {
	height, found, err := cursor.Get(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("failed to read cursor: %w", err)
	}
	if !found {
		height = startBlock
	}

	st := Status{Cursor: height, CursorFound: found}

	if head == nil {
		return st, nil
	}

	st.Head, err = head.HeadBlockNumber(ctx)
	if err != nil {
		return st, fmt.Errorf("failed to read chain head: %w", err)
	}

	if st.Head > st.Cursor {
		st.Lag = st.Head - st.Cursor
	}

	return st, nil
}
