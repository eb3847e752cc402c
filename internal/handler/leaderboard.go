package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/flatmate/internal/auth"
	"github.com/dukerupert/flatmate/internal/complaint"
	"github.com/dukerupert/flatmate/internal/model"
	"github.com/dukerupert/flatmate/internal/store"
)

type LeaderboardHandler struct {
	users      *store.UserStore
	complaints *complaint.Service
	logger     *slog.Logger
}

func NewLeaderboardHandler(users *store.UserStore, complaints *complaint.Service, logger *slog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{users: users, complaints: complaints, logger: logger}
}

// Leaderboard ranks the caller's flatmates by karma.
func (h *LeaderboardHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.users.Leaderboard(r.Context(), auth.HouseholdCode(r.Context()))
	if err != nil {
		h.logger.Error("leaderboard", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load leaderboard")
		return
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *LeaderboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.complaints.Stats(r.Context(), auth.HouseholdCode(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, "household stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
