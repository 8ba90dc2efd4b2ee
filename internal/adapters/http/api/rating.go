package api

import (
	"context"
	"net/http"
	"strings"
)

// RatingDependencies defines the interface for single-team lookups.
type RatingDependencies interface {
	Rank(ctx context.Context, team string) (Entry, error)
}

// RatingHandler handles rating requests.
type RatingHandler struct {
	deps RatingDependencies
}

// NewRatingHandler creates a new rating handler.
func NewRatingHandler(deps RatingDependencies) *RatingHandler {
	return &RatingHandler{deps: deps}
}

// HandleGetRating handles GET /rating/{team} requests.
func (h *RatingHandler) HandleGetRating(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	team := strings.TrimSpace(r.PathValue("team"))
	if team == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	entry, err := h.deps.Rank(r.Context(), team)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
