// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	repository "github.com/okian/mrelo/internal/adapters/repository"
	service "github.com/okian/mrelo/internal/app"
	"github.com/okian/mrelo/internal/domain/model"
	"github.com/okian/mrelo/internal/domain/types"
)

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	MatchDependencies
	LeaderboardDependencies
	RatingDependencies
	PredictDependencies
	HistoryDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	matchesHandler     *MatchesHandler
	leaderboardHandler *LeaderboardHandler
	ratingHandler      *RatingHandler
	predictHandler     *PredictHandler
	historyHandler     *HistoryHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// limit query parameter of list endpoints.
func NewServer(deps Dependencies, maxLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		matchesHandler:     NewMatchesHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		ratingHandler:      NewRatingHandler(deps),
		predictHandler:     NewPredictHandler(deps),
		historyHandler:     NewHistoryHandler(deps, maxLimit),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/matches", MetricsMiddleware(s.matchesHandler.HandlePostMatch, "matches"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/rating/{team}", MetricsMiddleware(s.ratingHandler.HandleGetRating, "rating"))
	mux.HandleFunc("/predict", MetricsMiddleware(s.predictHandler.HandlePredict, "predict"))
	mux.HandleFunc("/history/{team}", MetricsMiddleware(s.historyHandler.HandleGetHistory, "history"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service and store errors to a status code.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrInvalidLimit), errors.Is(err, repository.ErrInvalidTeam), isValidation(err):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, service.ErrNoHistory):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

func isValidation(err error) bool {
	for _, kind := range []error{
		model.ErrMissingMatchID,
		model.ErrMissingTeam,
		model.ErrSameTeam,
		model.ErrInvalidScore,
		model.ErrMissingPlayedAt,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
