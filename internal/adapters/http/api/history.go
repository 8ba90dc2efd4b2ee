package api

import (
	"context"
	"net/http"
	"strings"

	repository "github.com/okian/mrelo/internal/adapters/repository"
)

// HistoryDependencies defines the interface for per-team match history.
type HistoryDependencies interface {
	History(ctx context.Context, team string, limit int) ([]repository.HistoryEntry, error)
}

// HistoryHandler handles history requests.
type HistoryHandler struct {
	deps     HistoryDependencies
	maxLimit int
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(deps HistoryDependencies, maxLimit int) *HistoryHandler {
	return &HistoryHandler{deps: deps, maxLimit: maxLimit}
}

// HandleGetHistory handles GET /history/{team}?limit=N requests.
func (h *HistoryHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_history"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	team := strings.TrimSpace(r.PathValue("team"))
	if team == "" {
		writeError(w, http.StatusBadRequest, "bad_request", newKind(op, ErrBadRequest))
		return
	}
	n, code, err := parseLimit(r, h.maxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, code, newKind(op, err))
		return
	}
	rows, err := h.deps.History(r.Context(), team, n)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if rows == nil {
		rows = []repository.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, rows)
}
