package handler

import (
	"log/slog"
	"net/http"

	"github.com/oddsdesk/oddsdesk/internal/service"
)

// OrderbookHandler serves book snapshots and trade history.
type OrderbookHandler struct {
	markets *service.MarketService
	logger  *slog.Logger
}

// NewOrderbookHandler creates an OrderbookHandler.
func NewOrderbookHandler(markets *service.MarketService, logger *slog.Logger) *OrderbookHandler {
	return &OrderbookHandler{markets: markets, logger: logger}
}

// GetOrderbook handles GET /api/orderbook/{marketId}.
func (h *OrderbookHandler) GetOrderbook(w http.ResponseWriter, r *http.Request) {
	snap, err := h.markets.Orderbook(r.Context(), r.PathValue("marketId"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetTrades handles GET /api/orderbook/{marketId}/trades.
func (h *OrderbookHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := h.markets.Trades(r.Context(), r.PathValue("marketId"), parseListOpts(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trades)
}
