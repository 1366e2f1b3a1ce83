package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/oddsdesk/oddsdesk/internal/domain"
	"github.com/oddsdesk/oddsdesk/internal/service"
)

// PortfolioHandler serves position reads and the split/merge/redeem
// settlement operations.
type PortfolioHandler struct {
	portfolio *service.PortfolioService
	logger    *slog.Logger
}

// NewPortfolioHandler creates a PortfolioHandler.
func NewPortfolioHandler(portfolio *service.PortfolioService, logger *slog.Logger) *PortfolioHandler {
	return &PortfolioHandler{portfolio: portfolio, logger: logger}
}

// GetPosition handles GET /api/portfolio/{marketId}.
func (h *PortfolioHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	pos, err := h.portfolio.Position(r.Context(), r.PathValue("marketId"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

// amountRequest is the JSON body for settlement operations. Amount is a
// decimal string in atomic units.
type amountRequest struct {
	Amount string `json:"amount"`
}

type settleFunc func(ctx context.Context, marketID string, amount *big.Int) (domain.TxReceipt, error)

// Split handles POST /api/portfolio/{marketId}/split.
func (h *PortfolioHandler) Split(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.portfolio.Split)
}

// Merge handles POST /api/portfolio/{marketId}/merge.
func (h *PortfolioHandler) Merge(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.portfolio.Merge)
}

// Redeem handles POST /api/portfolio/{marketId}/redeem.
func (h *PortfolioHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.portfolio.Redeem)
}

func (h *PortfolioHandler) settle(w http.ResponseWriter, r *http.Request, op settleFunc) {
	var req amountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be a positive integer in atomic units")
		return
	}

	receipt, err := op(r.Context(), r.PathValue("marketId"), amount)
	if err != nil {
		// A pending receipt means the broadcast succeeded but confirmation
		// timed out; return it alongside the error so the caller can keep
		// polling the transaction itself.
		if receipt.TxID != "" {
			writeJSON(w, statusForDomainError(err), map[string]any{
				"error":   err.Error(),
				"receipt": receipt,
			})
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}
