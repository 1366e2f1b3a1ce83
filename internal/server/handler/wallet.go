package handler

import (
	"log/slog"
	"net/http"

	"github.com/oddsdesk/oddsdesk/internal/wallet"
)

// WalletHandler serves wallet session lifecycle endpoints.
type WalletHandler struct {
	wallet *wallet.Wallet
	logger *slog.Logger
}

// NewWalletHandler creates a WalletHandler.
func NewWalletHandler(w *wallet.Wallet, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{wallet: w, logger: logger}
}

// Connect handles POST /api/wallet/connect. Connecting an already-connected
// wallet returns the existing session.
func (h *WalletHandler) Connect(w http.ResponseWriter, r *http.Request) {
	session, err := h.wallet.Connect(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Disconnect handles POST /api/wallet/disconnect.
func (h *WalletHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.wallet.Disconnect(); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GetSession handles GET /api/wallet/session. A disconnected wallet reports
// connected=false rather than an error.
func (h *WalletHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.wallet.Session()
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"connected": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"connected": true,
		"session":   session,
	})
}
