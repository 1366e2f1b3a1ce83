// Package server exposes the desk's HTTP and WebSocket API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/oddsdesk/oddsdesk/internal/domain"
	"github.com/oddsdesk/oddsdesk/internal/server/handler"
	"github.com/oddsdesk/oddsdesk/internal/server/middleware"
	"github.com/oddsdesk/oddsdesk/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port            int
	CORSOrigins     []string
	APIKey          string // if empty, authentication is disabled
	RateLimit       int    // requests per window per client IP; 0 disables
	RateLimitWindow time.Duration
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health    *handler.HealthHandler
	Markets   *handler.MarketHandler
	Orderbook *handler.OrderbookHandler
	Orders    *handler.OrderHandler
	Portfolio *handler.PortfolioHandler
	Oracle    *handler.OracleHandler
	Wallet    *handler.WalletHandler
}

// Server is the headless HTTP + WebSocket API server for the trading desk.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer registers all routes on a ServeMux and wires the middleware
// chain (CORS, logging, rate limiting, auth) around it. Nil handler groups
// are skipped, so read-only deployments simply leave the trading handlers
// unset. limiter may be nil when no Redis-backed limiter is configured.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Market endpoints.
	if handlers.Markets != nil {
		mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
		mux.HandleFunc("POST /api/markets", handlers.Markets.CreateMarket)
		mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
		mux.HandleFunc("GET /api/markets/{id}/stats", handlers.Markets.GetStats)
		mux.HandleFunc("GET /api/markets/{id}/price-history", handlers.Markets.GetPriceHistory)
	}

	// Orderbook endpoints.
	if handlers.Orderbook != nil {
		mux.HandleFunc("GET /api/orderbook/{marketId}", handlers.Orderbook.GetOrderbook)
		mux.HandleFunc("GET /api/orderbook/{marketId}/trades", handlers.Orderbook.GetTrades)
	}

	// Order endpoints.
	if handlers.Orders != nil {
		mux.HandleFunc("GET /api/orders", handlers.Orders.ListOpen)
		mux.HandleFunc("POST /api/orders", handlers.Orders.PlaceOrder)
		mux.HandleFunc("DELETE /api/orders/{id}", handlers.Orders.CancelOrder)
		mux.HandleFunc("POST /api/smart-orders", handlers.Orders.PlaceSmartOrder)
		mux.HandleFunc("POST /api/smart-orders/preview", handlers.Orders.PreviewSmartOrder)
	}

	// Portfolio endpoints.
	if handlers.Portfolio != nil {
		mux.HandleFunc("GET /api/portfolio/{marketId}", handlers.Portfolio.GetPosition)
		mux.HandleFunc("POST /api/portfolio/{marketId}/split", handlers.Portfolio.Split)
		mux.HandleFunc("POST /api/portfolio/{marketId}/merge", handlers.Portfolio.Merge)
		mux.HandleFunc("POST /api/portfolio/{marketId}/redeem", handlers.Portfolio.Redeem)
	}

	// Oracle endpoints.
	if handlers.Oracle != nil {
		mux.HandleFunc("GET /api/oracle/disputes", handlers.Oracle.ListDisputes)
		mux.HandleFunc("GET /api/oracle/questions/{id}/vote/{address}", handlers.Oracle.GetVote)
		mux.HandleFunc("GET /api/oracle/questions/{id}/my-vote", handlers.Oracle.GetMyVote)
		mux.HandleFunc("POST /api/oracle/questions/{id}/vote", handlers.Oracle.CastVote)
	}

	// Wallet endpoints.
	if handlers.Wallet != nil {
		mux.HandleFunc("POST /api/wallet/connect", handlers.Wallet.Connect)
		mux.HandleFunc("POST /api/wallet/disconnect", handlers.Wallet.Disconnect)
		mux.HandleFunc("GET /api/wallet/session", handlers.Wallet.GetSession)
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateLimitWindow, logger)(h)
	}
	h = middleware.Logging(logger)(h)
	h = corsMiddleware(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger.With("component", "server"),
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// corsMiddleware sets CORS headers for the allowed origins. If no origins
// are configured, all origins are allowed.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}

				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
