// Package refresh keeps the local caches and the Postgres mirror in sync with
// the matching engine by polling on fixed intervals. There is no engine push
// channel; polling plus explicit invalidation after writes is the sync model.
package refresh

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oddsdesk/oddsdesk/internal/domain"
)

// Signal channels published on the bus after each successful refresh.
const (
	ChannelMarkets   = "signal:markets"
	ChannelOrderbook = "signal:orderbook" // payload: market id
	ChannelTrades    = "signal:trades"    // payload: market id
	ChannelStats     = "signal:stats"     // payload: market id
)

// Resource names a refreshable data kind for Invalidate.
type Resource string

const (
	ResourceMarkets   Resource = "markets"
	ResourceOrderbook Resource = "orderbook"
	ResourceTrades    Resource = "trades"
	ResourceStats     Resource = "stats"
)

// EngineSource is the subset of the engine client the refresher polls.
type EngineSource interface {
	ListMarkets(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error)
	GetOrderbook(ctx context.Context, marketID string) (domain.OrderbookSnapshot, error)
	GetTrades(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Trade, error)
	GetStats(ctx context.Context, marketID string) (domain.MarketStats, error)
}

// Mirror is the optional persistence sink for fetched data. All methods must
// tolerate duplicate delivery.
type Mirror interface {
	UpsertMarkets(ctx context.Context, markets []domain.Market) error
	InsertTrades(ctx context.Context, trades []domain.Trade) error
	LastTradeTimestamp(ctx context.Context, marketID string) (time.Time, error)
}

// Intervals configures the per-resource polling cadence.
type Intervals struct {
	Markets   time.Duration
	Orderbook time.Duration
	Trades    time.Duration
	Stats     time.Duration
}

// Refresher runs the polling loops. Each watched market gets its own
// orderbook, trades, and stats loop; markets are polled globally.
type Refresher struct {
	engine    EngineSource
	markets   domain.MarketCache
	books     domain.OrderbookCache
	prices    domain.PriceCache
	bus       domain.SignalBus
	mirror    Mirror // may be nil
	intervals Intervals
	logger    *slog.Logger

	// watch is the static market id list; when empty, every unresolved
	// market from the latest markets poll is watched.
	watch []string

	mu      sync.Mutex
	watched map[string]context.CancelFunc // market id -> loop cancel
	kicks   map[Resource]map[string]chan struct{}

	// inflight implements cancel-and-supersede: starting a fetch for a key
	// cancels any fetch still running for the same key, so a slow stale
	// response can never overwrite a newer one.
	inflight map[string]*fetchToken

	group    *errgroup.Group
	groupCtx context.Context
}

// New creates a Refresher. mirror may be nil to disable persistence.
func New(engine EngineSource, markets domain.MarketCache, books domain.OrderbookCache, prices domain.PriceCache, bus domain.SignalBus, mirror Mirror, intervals Intervals, watch []string, logger *slog.Logger) *Refresher {
	return &Refresher{
		engine:    engine,
		markets:   markets,
		books:     books,
		prices:    prices,
		bus:       bus,
		mirror:    mirror,
		intervals: intervals,
		watch:     watch,
		logger:    logger.With("component", "refresh"),
		watched:   make(map[string]context.CancelFunc),
		kicks:     make(map[Resource]map[string]chan struct{}),
		inflight:  make(map[string]*fetchToken),
	}
}

// Run starts the polling loops and blocks until ctx is cancelled. The first
// markets poll happens immediately so a fresh process serves data right away.
func (r *Refresher) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	r.mu.Lock()
	r.group, r.groupCtx = g, gctx
	r.mu.Unlock()

	g.Go(func() error {
		return r.marketsLoop(gctx)
	})

	for _, id := range r.watch {
		r.watchMarket(id)
	}

	<-gctx.Done()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Invalidate drops the cached value for a resource and kicks its loop into an
// immediate refetch instead of waiting for the next tick. Used after local
// writes (order placement, cancel) to shorten the staleness window.
func (r *Refresher) Invalidate(ctx context.Context, resource Resource, key string) {
	switch resource {
	case ResourceMarkets:
		if key != "" {
			if err := r.markets.Invalidate(ctx, key); err != nil {
				r.logger.Warn("market invalidate failed", "market_id", key, "error", err)
			}
		}
	case ResourceOrderbook:
		if err := r.books.Invalidate(ctx, key); err != nil {
			r.logger.Warn("orderbook invalidate failed", "market_id", key, "error", err)
		}
	}
	r.kick(resource, key)
}

// kick signals the loop for (resource, key) without blocking. A kick that
// arrives while one is already pending is coalesced.
func (r *Refresher) kick(resource Resource, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if byKey, ok := r.kicks[resource]; ok {
		if ch, ok := byKey[key]; ok {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}
}

func (r *Refresher) kickChan(resource Resource, key string) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	byKey, ok := r.kicks[resource]
	if !ok {
		byKey = make(map[string]chan struct{})
		r.kicks[resource] = byKey
	}
	ch, ok := byKey[key]
	if !ok {
		ch = make(chan struct{}, 1)
		byKey[key] = ch
	}
	return ch
}

// fetchToken identifies one in-flight fetch so a finished fetch only removes
// its own registration, not a successor's.
type fetchToken struct {
	cancel context.CancelFunc
}

// beginFetch registers an in-flight fetch for key, cancelling any previous
// one still running. The returned done func must be called when the fetch
// finishes.
func (r *Refresher) beginFetch(ctx context.Context, key string) (context.Context, func()) {
	fetchCtx, cancel := context.WithCancel(ctx)
	token := &fetchToken{cancel: cancel}

	r.mu.Lock()
	if prev, ok := r.inflight[key]; ok {
		prev.cancel()
	}
	r.inflight[key] = token
	r.mu.Unlock()

	return fetchCtx, func() {
		r.mu.Lock()
		if r.inflight[key] == token {
			delete(r.inflight, key)
		}
		r.mu.Unlock()
		cancel()
	}
}

// watchMarket starts the per-market loops if they are not already running.
func (r *Refresher) watchMarket(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.watched[id]; ok {
		return
	}
	if r.group == nil {
		return
	}

	loopCtx, cancel := context.WithCancel(r.groupCtx)
	r.watched[id] = cancel

	r.group.Go(func() error { return r.orderbookLoop(loopCtx, id) })
	r.group.Go(func() error { return r.tradesLoop(loopCtx, id) })
	r.group.Go(func() error { return r.statsLoop(loopCtx, id) })
	r.logger.Info("watching market", "market_id", id)
}

// unwatchMarket stops the per-market loops.
func (r *Refresher) unwatchMarket(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cancel, ok := r.watched[id]; ok {
		cancel()
		delete(r.watched, id)
		r.logger.Info("unwatching market", "market_id", id)
	}
}
