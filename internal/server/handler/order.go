package handler

import (
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/oddsdesk/oddsdesk/internal/domain"
	"github.com/oddsdesk/oddsdesk/internal/service"
)

// OrderHandler serves order placement, preview, and cancellation.
type OrderHandler struct {
	orders *service.OrderService
	logger *slog.Logger
}

// NewOrderHandler creates an OrderHandler.
func NewOrderHandler(orders *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

// orderRequest is the JSON body for order placement and preview.
type orderRequest struct {
	MarketID string `json:"marketId"`
	Side     string `json:"side"`
	Outcome  string `json:"outcome"`
	Price    string `json:"price"` // decimal string in (0, 1)
	Size     string `json:"size"`  // decimal token count
}

func (req orderRequest) toInput(smart bool) (service.PlaceOrderInput, error) {
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return service.PlaceOrderInput{}, err
	}
	size, err := decimal.NewFromString(req.Size)
	if err != nil {
		return service.PlaceOrderInput{}, err
	}
	return service.PlaceOrderInput{
		MarketID: req.MarketID,
		Side:     domain.OrderSide(req.Side),
		Outcome:  domain.Outcome(req.Outcome),
		Price:    price,
		Size:     size,
		Smart:    smart,
	}, nil
}

// PlaceOrder handles POST /api/orders.
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	h.place(w, r, false)
}

// PlaceSmartOrder handles POST /api/smart-orders.
func (h *OrderHandler) PlaceSmartOrder(w http.ResponseWriter, r *http.Request) {
	h.place(w, r, true)
}

func (h *OrderHandler) place(w http.ResponseWriter, r *http.Request, smart bool) {
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	in, err := req.toInput(smart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price or size: "+err.Error())
		return
	}

	result, split, err := h.orders.PlaceOrder(r.Context(), in)
	if err != nil {
		if split != nil {
			// Surface the shortfall so the caller can prompt for a split.
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":      err.Error(),
				"needsSplit": true,
				"positionId": split.PositionID,
				"current":    split.Current.String(),
				"required":   split.Required.String(),
				"shortfall":  split.Shortfall().String(),
			})
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// PreviewSmartOrder handles POST /api/smart-orders/preview.
func (h *OrderHandler) PreviewSmartOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	in, err := req.toInput(true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price or size: "+err.Error())
		return
	}

	plan, err := h.orders.PreviewSmartOrder(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"plan":        plan,
		"avgPrice":    plan.AvgPrice().String(),
		"slippageBps": plan.SlippageBps().String(),
	})
}

// CancelOrder handles DELETE /api/orders/{id}.
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.CancelOrder(r.Context(), r.PathValue("id"), r.URL.Query().Get("marketId")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ListOpen handles GET /api/orders.
func (h *OrderHandler) ListOpen(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOpen(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}
