package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/oddsdesk/oddsdesk/internal/domain"
)

// ListMarkets returns all markets, newest first.
func (c *Client) ListMarkets(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/markets", listQuery(opts), nil)
	if err != nil {
		return nil, fmt.Errorf("engine: list markets: %w", err)
	}

	var raw []apiMarket
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("engine: decode markets: %w", err)
	}

	markets := make([]domain.Market, 0, len(raw))
	for _, m := range raw {
		markets = append(markets, m.toDomain())
	}
	return markets, nil
}

// GetMarket returns a single market by id.
func (c *Client) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/markets/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return domain.Market{}, fmt.Errorf("engine: get market %s: %w", id, err)
	}

	var raw apiMarket
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.Market{}, fmt.Errorf("engine: decode market: %w", err)
	}
	return raw.toDomain(), nil
}

// GetStats returns the engine's rolling statistics for one market.
func (c *Client) GetStats(ctx context.Context, marketID string) (domain.MarketStats, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/markets/"+url.PathEscape(marketID)+"/stats", nil, nil)
	if err != nil {
		return domain.MarketStats{}, fmt.Errorf("engine: get stats %s: %w", marketID, err)
	}

	var raw apiStats
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.MarketStats{}, fmt.Errorf("engine: decode stats: %w", err)
	}
	return raw.toDomain(), nil
}

// GetPriceHistory returns price samples for a market over the given range.
// resolution is a bucket width such as "1h" or "1d".
func (c *Client) GetPriceHistory(ctx context.Context, marketID, resolution string, since time.Time) ([]domain.PricePoint, error) {
	q := url.Values{}
	if resolution != "" {
		q.Set("resolution", resolution)
	}
	if !since.IsZero() {
		q.Set("since", strconv.FormatInt(since.Unix(), 10))
	}

	body, err := c.do(ctx, http.MethodGet, "/api/markets/"+url.PathEscape(marketID)+"/price-history", q, nil)
	if err != nil {
		return nil, fmt.Errorf("engine: price history %s: %w", marketID, err)
	}

	var raw []apiPricePoint
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("engine: decode price history: %w", err)
	}

	points := make([]domain.PricePoint, 0, len(raw))
	for _, p := range raw {
		points = append(points, domain.PricePoint{Timestamp: p.Timestamp, YesPrice: p.YesPrice, Volume: p.Volume})
	}
	return points, nil
}

// CreateMarket registers a new market with the engine after the on-chain
// condition has been prepared. The engine assigns the id.
func (c *Client) CreateMarket(ctx context.Context, market domain.Market) (domain.Market, error) {
	payload := map[string]any{
		"conditionId":   market.ConditionID,
		"question":      market.Question,
		"creator":       market.Creator,
		"yesPositionId": market.YesPositionID,
		"noPositionId":  market.NoPositionID,
	}

	body, err := c.do(ctx, http.MethodPost, "/api/markets", nil, payload)
	if err != nil {
		return domain.Market{}, fmt.Errorf("engine: create market: %w", err)
	}

	var raw apiMarket
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.Market{}, fmt.Errorf("engine: decode created market: %w", err)
	}
	return raw.toDomain(), nil
}
