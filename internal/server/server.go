// Package server exposes the HTTP and websocket API: authentication,
// accounts and transfers, the dashboard, spending analysis, and the AI
// chat surface.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/moneywise-app/moneywise/internal/agent"
	"github.com/moneywise-app/moneywise/internal/guardrails"
	"github.com/moneywise-app/moneywise/internal/httputil"
	"github.com/moneywise-app/moneywise/internal/insight"
	"github.com/moneywise-app/moneywise/internal/ledger"
	"github.com/moneywise-app/moneywise/internal/storage"
)

// Server wires the domain services behind the HTTP API.
type Server struct {
	store        *storage.Store
	engine       *ledger.Engine
	orchestrator *agent.Orchestrator
	analyzer     *insight.Analyzer
	limiter      *guardrails.Limiter
	auth         *Authenticator
	logger       *zap.Logger
	upgrader     websocket.Upgrader
}

// New creates a Server. limiter may be nil to disable chat rate limits.
func New(store *storage.Store, engine *ledger.Engine, orchestrator *agent.Orchestrator, analyzer *insight.Analyzer, limiter *guardrails.Limiter, auth *Authenticator, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:        store,
		engine:       engine,
		orchestrator: orchestrator,
		analyzer:     analyzer,
		limiter:      limiter,
		auth:         auth,
		logger:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Demo app; the API is same-host only.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Router builds the route tree.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Middleware)

		r.Get("/api/me", s.handleMe)
		r.Get("/api/accounts", s.handleAccounts)
		r.Get("/api/transactions", s.handleTransactions)
		r.Post("/api/deposit", s.handleDeposit)
		r.Post("/api/withdraw", s.handleWithdraw)
		r.Post("/api/transfer", s.handleTransfer)
		r.Get("/api/dashboard", s.handleDashboard)
		r.Post("/api/analyze", s.handleAnalyze)

		r.Post("/api/chat", s.handleChat)
		r.Get("/api/chat", s.handleChatHistory)
		r.Get("/api/chat/ws", s.handleChatSocket)
	})

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// writeLedgerError maps the engine error taxonomy to HTTP statuses.
func (s *Server) writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrNotAuthorized):
		httputil.WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		httputil.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		httputil.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error("ledger operation failed", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
