package api

import (
	"context"
	"net/http"
	"strconv"
)

const defaultLimit = 10

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	TopN(ctx context.Context, n int) ([]Entry, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetLeaderboard handles GET /leaderboard?limit=N requests.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n, code, err := parseLimit(r, h.maxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, code, newKind(op, err))
		return
	}
	entries, err := h.deps.TopN(r.Context(), n)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// parseLimit reads the limit query parameter, defaulting to defaultLimit
// capped at maxLimit.
func parseLimit(r *http.Request, maxLimit int) (int, string, error) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return min(defaultLimit, maxLimit), "", nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, "bad_request", ErrBadRequest
	}
	if n > maxLimit {
		return 0, "limit_exceeded", ErrBadRequest
	}
	return n, "", nil
}
