package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/okian/mrelo/internal/domain/model"
)

// MatchDependencies accepts finished matches for rating.
type MatchDependencies interface {
	Submit(ctx context.Context, m model.Match) (duplicate bool, err error)
}

// MatchesHandler handles match submissions.
type MatchesHandler struct {
	deps MatchDependencies
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps MatchDependencies) *MatchesHandler {
	return &MatchesHandler{deps: deps}
}

// matchRequest mirrors the OpenAPI schema for POST /matches.
type matchRequest struct {
	MatchID   string   `json:"match_id"`
	Home      string   `json:"home"`
	Away      string   `json:"away"`
	HomeScore *float64 `json:"home_score"`
	AwayScore *float64 `json:"away_score"`
	Neutral   bool     `json:"neutral"`
	Season    string   `json:"season"`
	PlayedAt  string   `json:"played_at"`
}

func (r matchRequest) toMatch() (model.Match, error) {
	if r.HomeScore == nil || r.AwayScore == nil {
		return model.Match{}, errors.New("home_score and away_score are required")
	}
	m := model.Match{
		MatchID:   r.MatchID,
		Home:      r.Home,
		Away:      r.Away,
		HomeScore: *r.HomeScore,
		AwayScore: *r.AwayScore,
		Neutral:   r.Neutral,
		Season:    r.Season,
	}
	if r.PlayedAt == "" {
		return m, model.ErrMissingPlayedAt
	}
	at, err := time.Parse(time.RFC3339, r.PlayedAt)
	if err != nil {
		return m, errors.New("invalid played_at; must be RFC3339")
	}
	m.PlayedAt = at.UTC()
	return m, m.Validate()
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// HandlePostMatch handles POST /matches requests.
func (h *MatchesHandler) HandlePostMatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_match"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	m, err := req.toMatch()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}

	dup, err := h.deps.Submit(r.Context(), m)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if dup {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}
