package handler

import (
	"log/slog"
	"net/http"

	"github.com/oddsdesk/oddsdesk/internal/domain"
	"github.com/oddsdesk/oddsdesk/internal/service"
)

// OracleHandler serves oracle dispute and vote lookups and casts votes.
type OracleHandler struct {
	oracle *service.OracleService
	logger *slog.Logger
}

// NewOracleHandler creates an OracleHandler.
func NewOracleHandler(oracle *service.OracleService, logger *slog.Logger) *OracleHandler {
	return &OracleHandler{oracle: oracle, logger: logger}
}

// ListDisputes handles GET /api/oracle/disputes.
func (h *OracleHandler) ListDisputes(w http.ResponseWriter, r *http.Request) {
	disputes, err := h.oracle.Disputes(r.Context(), parseListOpts(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if disputes == nil {
		disputes = []domain.Dispute{}
	}
	writeJSON(w, http.StatusOK, disputes)
}

// GetVote handles GET /api/oracle/questions/{id}/vote/{address}.
func (h *OracleHandler) GetVote(w http.ResponseWriter, r *http.Request) {
	vote, err := h.oracle.Vote(r.Context(), r.PathValue("id"), r.PathValue("address"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vote)
}

// GetMyVote handles GET /api/oracle/questions/{id}/my-vote. It resolves the
// voter from the connected wallet.
func (h *OracleHandler) GetMyVote(w http.ResponseWriter, r *http.Request) {
	vote, err := h.oracle.MyVote(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vote)
}

// voteRequest is the JSON body for casting a vote. Choice is the outcome
// index voted for (0 = YES, 1 = NO).
type voteRequest struct {
	Choice int `json:"choice"`
}

// CastVote handles POST /api/oracle/questions/{id}/vote. It signs and
// broadcasts the vote with the connected wallet and waits for confirmation.
func (h *OracleHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	receipt, err := h.oracle.CastVote(r.Context(), r.PathValue("id"), req.Choice)
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
