package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/flatmate/internal/auth"
	"github.com/dukerupert/flatmate/internal/complaint"
	"github.com/dukerupert/flatmate/internal/config"
	"github.com/dukerupert/flatmate/internal/handler"
	"github.com/dukerupert/flatmate/internal/middleware"
	"github.com/dukerupert/flatmate/internal/store"
)

type Server struct {
	db           *sql.DB
	authH        *handler.AuthHandler
	complaintH   *handler.ComplaintHandler
	leaderboardH *handler.LeaderboardHandler
	userStore    *store.UserStore
	tokens       *auth.TokenIssuer
	complaints   *complaint.Service
	rateLimiter  *middleware.RateLimiter
	loginLimit   int
	loginWindow  time.Duration
	logger       *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Server {
	userStore := store.NewUserStore(db)
	complaintStore := store.NewComplaintStore(db)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)

	complaintSvc := complaint.NewService(complaintStore, userStore, logger.With("component", "complaint"))

	return &Server{
		db:           db,
		authH:        handler.NewAuthHandler(userStore, tokens, logger.With("component", "auth")),
		complaintH:   handler.NewComplaintHandler(complaintSvc, logger.With("component", "complaint_handler")),
		leaderboardH: handler.NewLeaderboardHandler(userStore, complaintSvc, logger.With("component", "leaderboard")),
		userStore:    userStore,
		tokens:       tokens,
		complaints:   complaintSvc,
		rateLimiter:  middleware.NewRateLimiter(),
		loginLimit:   cfg.LoginRateLimit,
		loginWindow:  cfg.LoginRateWindow,
		logger:       logger,
	}
}

// Complaints returns the complaint service for the archival job.
func (s *Server) Complaints() *complaint.Service {
	return s.complaints
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, wrapped with RequireAuth
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.tokens, s.userStore)
	outerMux.Handle("/api/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, s.loginLimit, s.loginWindow)
	return rl(h).ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Complaints
	mux.HandleFunc("GET /api/complaints", s.complaintH.List)
	mux.HandleFunc("GET /api/complaints/all-flat", s.complaintH.ListAll)
	mux.HandleFunc("GET /api/complaints/resolved", s.complaintH.ListResolved)
	mux.HandleFunc("GET /api/complaints/trending", s.complaintH.Trending)
	mux.HandleFunc("POST /api/complaints", s.complaintH.Create)
	mux.HandleFunc("POST /api/complaints/{id}/vote", s.complaintH.Vote)
	mux.HandleFunc("PUT /api/complaints/{id}/resolve", s.complaintH.Resolve)

	// Leaderboard
	mux.HandleFunc("GET /api/leaderboard", s.leaderboardH.Leaderboard)
	mux.HandleFunc("GET /api/leaderboard/stats", s.leaderboardH.Stats)
}
