package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/oddsdesk/oddsdesk/internal/domain"
	"github.com/oddsdesk/oddsdesk/internal/service"
)

// MarketHandler serves market metadata, stats, and price history.
type MarketHandler struct {
	markets *service.MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(markets *service.MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{markets: markets, logger: logger}
}

// ListMarkets handles GET /api/markets.
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := h.markets.List(r.Context(), parseListOpts(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, markets)
}

// GetMarket handles GET /api/markets/{id}.
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	market, err := h.markets.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, market)
}

// GetStats handles GET /api/markets/{id}/stats.
func (h *MarketHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.markets.Stats(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GetPriceHistory handles GET /api/markets/{id}/price-history.
func (h *MarketHandler) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var since time.Time
	if v := q.Get("since"); v != "" {
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
			since = time.Unix(secs, 0).UTC()
		}
	}

	points, err := h.markets.PriceHistory(r.Context(), r.PathValue("id"), q.Get("resolution"), since)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

// CreateMarket handles POST /api/markets.
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConditionID   string `json:"conditionId"`
		Question      string `json:"question"`
		Creator       string `json:"creator"`
		YesPositionID string `json:"yesPositionId"`
		NoPositionID  string `json:"noPositionId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ConditionID == "" || req.Question == "" {
		writeError(w, http.StatusBadRequest, "conditionId and question are required")
		return
	}

	created, err := h.markets.Create(r.Context(), domain.Market{
		ConditionID:   req.ConditionID,
		Question:      req.Question,
		Creator:       req.Creator,
		YesPositionID: req.YesPositionID,
		NoPositionID:  req.NoPositionID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}
