package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	service "github.com/okian/mrelo/internal/app"
)

// PredictDependencies defines the interface for win probabilities.
type PredictDependencies interface {
	Predict(ctx context.Context, home, away string, neutral bool) (service.Prediction, error)
}

// PredictHandler handles prediction requests.
type PredictHandler struct {
	deps PredictDependencies
}

// NewPredictHandler creates a new prediction handler.
func NewPredictHandler(deps PredictDependencies) *PredictHandler {
	return &PredictHandler{deps: deps}
}

// HandlePredict handles GET /predict?home=&away=&neutral= requests.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	home, away := strings.TrimSpace(q.Get("home")), strings.TrimSpace(q.Get("away"))
	switch {
	case home == "" || away == "":
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, errors.New("home and away are required")))
		return
	case home == away:
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, errors.New("home and away must differ")))
		return
	}
	neutral := false
	if s := q.Get("neutral"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
			return
		}
		neutral = v
	}

	p, err := h.deps.Predict(r.Context(), home, away, neutral)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
