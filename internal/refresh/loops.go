package refresh

import (
	"context"
	"errors"
	"time"

	"github.com/oddsdesk/oddsdesk/internal/domain"
)

// tradesPageSize bounds each incremental trades poll.
const tradesPageSize = 200

// marketsLoop polls the full market list. It also reconciles the watched set
// when no static watch list was configured.
func (r *Refresher) marketsLoop(ctx context.Context) error {
	ticker := time.NewTicker(r.intervals.Markets)
	defer ticker.Stop()
	kick := r.kickChan(ResourceMarkets, "")

	for {
		r.refreshMarkets(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-kick:
		}
	}
}

func (r *Refresher) refreshMarkets(ctx context.Context) {
	fetchCtx, done := r.beginFetch(ctx, "markets")
	defer done()

	markets, err := r.engine.ListMarkets(fetchCtx, domain.ListOpts{})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			r.logger.Warn("markets poll failed", "error", err)
		}
		return
	}

	if err := r.markets.SetBatch(ctx, markets); err != nil {
		r.logger.Warn("market cache write failed", "error", err)
	}
	for _, m := range markets {
		if err := r.prices.SetPrices(ctx, m.ID, m.YesPrice, m.NoPrice, m.UpdatedAt); err != nil {
			r.logger.Warn("price cache write failed", "market_id", m.ID, "error", err)
		}
	}

	if r.mirror != nil {
		if err := r.mirror.UpsertMarkets(ctx, markets); err != nil {
			r.logger.Warn("market mirror write failed", "error", err)
		}
	}

	if len(r.watch) == 0 {
		r.reconcileWatched(markets)
	}

	if err := r.bus.Publish(ctx, ChannelMarkets, []byte("updated")); err != nil {
		r.logger.Warn("markets signal publish failed", "error", err)
	}
	r.logger.Debug("markets refreshed", "count", len(markets))
}

// reconcileWatched watches every unresolved market and unwatches resolved or
// delisted ones.
func (r *Refresher) reconcileWatched(markets []domain.Market) {
	active := make(map[string]bool, len(markets))
	for _, m := range markets {
		if !m.Resolved {
			active[m.ID] = true
			r.watchMarket(m.ID)
		}
	}

	r.mu.Lock()
	stale := make([]string, 0)
	for id := range r.watched {
		if !active[id] {
			stale = append(stale, id)
		}
	}
	r.mu.Unlock()
	for _, id := range stale {
		r.unwatchMarket(id)
	}
}

func (r *Refresher) orderbookLoop(ctx context.Context, marketID string) error {
	ticker := time.NewTicker(r.intervals.Orderbook)
	defer ticker.Stop()
	kick := r.kickChan(ResourceOrderbook, marketID)

	for {
		r.refreshOrderbook(ctx, marketID)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-kick:
		}
	}
}

func (r *Refresher) refreshOrderbook(ctx context.Context, marketID string) {
	fetchCtx, done := r.beginFetch(ctx, "orderbook:"+marketID)
	defer done()

	snap, err := r.engine.GetOrderbook(fetchCtx, marketID)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			r.logger.Warn("orderbook poll failed", "market_id", marketID, "error", err)
		}
		return
	}

	if err := r.books.SetSnapshot(ctx, marketID, snap); err != nil {
		r.logger.Warn("orderbook cache write failed", "market_id", marketID, "error", err)
		return
	}
	if err := r.bus.Publish(ctx, ChannelOrderbook, []byte(marketID)); err != nil {
		r.logger.Warn("orderbook signal publish failed", "market_id", marketID, "error", err)
	}
}

func (r *Refresher) tradesLoop(ctx context.Context, marketID string) error {
	ticker := time.NewTicker(r.intervals.Trades)
	defer ticker.Stop()
	kick := r.kickChan(ResourceTrades, marketID)

	for {
		r.refreshTrades(ctx, marketID)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-kick:
		}
	}
}

func (r *Refresher) refreshTrades(ctx context.Context, marketID string) {
	fetchCtx, done := r.beginFetch(ctx, "trades:"+marketID)
	defer done()

	opts := domain.ListOpts{Limit: tradesPageSize}
	if r.mirror != nil {
		last, err := r.mirror.LastTradeTimestamp(ctx, marketID)
		if err == nil && !last.IsZero() {
			opts.Since = &last
		}
	}

	trades, err := r.engine.GetTrades(fetchCtx, marketID, opts)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			r.logger.Warn("trades poll failed", "market_id", marketID, "error", err)
		}
		return
	}
	if len(trades) == 0 {
		return
	}

	if r.mirror != nil {
		if err := r.mirror.InsertTrades(ctx, trades); err != nil {
			r.logger.Warn("trade mirror write failed", "market_id", marketID, "error", err)
		}
	}
	if err := r.bus.Publish(ctx, ChannelTrades, []byte(marketID)); err != nil {
		r.logger.Warn("trades signal publish failed", "market_id", marketID, "error", err)
	}
	r.logger.Debug("trades refreshed", "market_id", marketID, "count", len(trades))
}

func (r *Refresher) statsLoop(ctx context.Context, marketID string) error {
	ticker := time.NewTicker(r.intervals.Stats)
	defer ticker.Stop()
	kick := r.kickChan(ResourceStats, marketID)

	for {
		r.refreshStats(ctx, marketID)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-kick:
		}
	}
}

func (r *Refresher) refreshStats(ctx context.Context, marketID string) {
	fetchCtx, done := r.beginFetch(ctx, "stats:"+marketID)
	defer done()

	stats, err := r.engine.GetStats(fetchCtx, marketID)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			r.logger.Warn("stats poll failed", "market_id", marketID, "error", err)
		}
		return
	}

	if err := r.prices.SetPrices(ctx, marketID, stats.LastPrice, 1-stats.LastPrice, stats.UpdatedAt); err != nil {
		r.logger.Warn("price cache write failed", "market_id", marketID, "error", err)
	}
	if err := r.bus.Publish(ctx, ChannelStats, []byte(marketID)); err != nil {
		r.logger.Warn("stats signal publish failed", "market_id", marketID, "error", err)
	}
}
