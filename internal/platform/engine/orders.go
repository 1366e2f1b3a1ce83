package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/oddsdesk/oddsdesk/internal/domain"
)

// GetOrderbook returns the current aggregated orderbook for a market, with
// cumulative depth filled in.
func (c *Client) GetOrderbook(ctx context.Context, marketID string) (domain.OrderbookSnapshot, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/orderbook/"+url.PathEscape(marketID), nil, nil)
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("engine: get orderbook %s: %w", marketID, err)
	}

	var raw apiOrderbook
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("engine: decode orderbook: %w", err)
	}
	return raw.toDomain(), nil
}

// GetTrades returns recent trades for a market, newest first.
func (c *Client) GetTrades(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Trade, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/orderbook/"+url.PathEscape(marketID)+"/trades", listQuery(opts), nil)
	if err != nil {
		return nil, fmt.Errorf("engine: get trades %s: %w", marketID, err)
	}

	var raw []apiTrade
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("engine: decode trades: %w", err)
	}

	trades := make([]domain.Trade, 0, len(raw))
	for _, t := range raw {
		trades = append(trades, t.toDomain())
	}
	return trades, nil
}

// SubmitOrderInput is everything PlaceOrder sends to the engine. The give/take
// fields must be the exact values that were hashed and signed.
type SubmitOrderInput struct {
	MarketID       string
	Maker          string
	Side           domain.OrderSide
	Outcome        domain.Outcome
	GivePositionID string
	TakePositionID string
	GiveAmount     uint64
	TakeAmount     uint64
	PriceMicro     int64
	SizeMicro      int64
	Salt           string
	Expiration     uint64
	Signature      string
	PublicKey      string
}

func (in SubmitOrderInput) payload() orderPayload {
	return orderPayload{
		MarketID:       in.MarketID,
		Maker:          in.Maker,
		Side:           string(in.Side),
		Outcome:        string(in.Outcome),
		GivePositionID: in.GivePositionID,
		TakePositionID: in.TakePositionID,
		GiveAmount:     in.GiveAmount,
		TakeAmount:     in.TakeAmount,
		Price:          in.PriceMicro,
		Size:           in.SizeMicro,
		Salt:           in.Salt,
		Expiration:     in.Expiration,
		Signature:      in.Signature,
		PublicKey:      in.PublicKey,
	}
}

// PlaceOrder submits a signed limit order. A non-Success result is returned
// together with an error so callers can log the engine's message without
// re-parsing the wrapped error string.
func (c *Client) PlaceOrder(ctx context.Context, in SubmitOrderInput) (domain.OrderResult, error) {
	body, err := c.do(ctx, http.MethodPost, "/api/orders", nil, in.payload())
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("engine: place order: %w", err)
	}

	var raw apiOrderResult
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.OrderResult{}, fmt.Errorf("engine: decode order result: %w", err)
	}

	result := raw.toDomain()
	if !result.Success {
		return result, fmt.Errorf("engine: order rejected: %s", result.Message)
	}
	return result, nil
}

// PlaceSmartOrder submits a signed order for sweep-then-rest execution: the
// engine crosses the book up to the limit price and rests any remainder.
func (c *Client) PlaceSmartOrder(ctx context.Context, in SubmitOrderInput) (domain.OrderResult, error) {
	body, err := c.do(ctx, http.MethodPost, "/api/smart-orders", nil, in.payload())
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("engine: place smart order: %w", err)
	}

	var raw apiOrderResult
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.OrderResult{}, fmt.Errorf("engine: decode smart order result: %w", err)
	}

	result := raw.toDomain()
	if !result.Success {
		return result, fmt.Errorf("engine: smart order rejected: %s", result.Message)
	}
	return result, nil
}

// PreviewSmartOrder asks the engine how a smart order would execute against
// the current book without placing anything. The plan is advisory only.
func (c *Client) PreviewSmartOrder(ctx context.Context, marketID string, side domain.OrderSide, outcome domain.Outcome, priceMicro, sizeMicro int64) (domain.ExecutionPlan, error) {
	payload := map[string]any{
		"marketId": marketID,
		"side":     string(side),
		"outcome":  string(outcome),
		"price":    priceMicro,
		"size":     sizeMicro,
	}

	body, err := c.do(ctx, http.MethodPost, "/api/smart-orders/preview", nil, payload)
	if err != nil {
		return domain.ExecutionPlan{}, fmt.Errorf("engine: preview smart order: %w", err)
	}

	var raw apiPlan
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.ExecutionPlan{}, fmt.Errorf("engine: decode execution plan: %w", err)
	}
	return raw.toDomain(), nil
}

// CancelOrder cancels a resting order by id.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	body, err := c.do(ctx, http.MethodDelete, "/api/orders/"+url.PathEscape(orderID), nil, nil)
	if err != nil {
		return fmt.Errorf("engine: cancel order %s: %w", orderID, err)
	}

	var result struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("engine: decode cancel response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("engine: cancel failed: %s", result.Message)
	}
	return nil
}

// ListOrders returns orders for an address, optionally filtered by market.
func (c *Client) ListOrders(ctx context.Context, maker, marketID string, opts domain.ListOpts) ([]domain.Order, error) {
	q := listQuery(opts)
	if maker != "" {
		q.Set("maker", maker)
	}
	if marketID != "" {
		q.Set("marketId", marketID)
	}

	body, err := c.do(ctx, http.MethodGet, "/api/orders", q, nil)
	if err != nil {
		return nil, fmt.Errorf("engine: list orders: %w", err)
	}

	var raw []struct {
		orderPayload
		ID        string `json:"id"`
		Status    string `json:"status"`
		Filled    int64  `json:"filled"`
		Remaining int64  `json:"remaining"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("engine: decode orders: %w", err)
	}

	orders := make([]domain.Order, 0, len(raw))
	for _, o := range raw {
		orders = append(orders, domain.Order{
			ID:               o.ID,
			MarketID:         o.MarketID,
			PositionID:       o.GivePositionID,
			Maker:            o.Maker,
			Side:             domain.OrderSide(o.Side),
			Outcome:          domain.Outcome(o.Outcome),
			PriceMicro:       o.Price,
			SizeMicro:        o.Size,
			FilledMicro:      o.Filled,
			RemainingMicro:   o.Remaining,
			Status:           domain.OrderStatus(o.Status),
			Salt:             o.Salt,
			ExpirationHeight: o.Expiration,
			Signature:        o.Signature,
			PublicKey:        o.PublicKey,
		})
	}
	return orders, nil
}
