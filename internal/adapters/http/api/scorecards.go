package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const defaultListLimit = 50

// ScorecardHandler serves saved scorecards.
type ScorecardHandler struct {
	deps Dependencies
}

// NewScorecardHandler creates a new scorecard handler.
func NewScorecardHandler(deps Dependencies) *ScorecardHandler {
	return &ScorecardHandler{deps: deps}
}

// HandleList handles GET /scorecards?limit=N.
func (h *ScorecardHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: invalid limit", ErrBadRequest))
			return
		}
		limit = n
	}
	list, err := h.deps.ListScorecards(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleGet handles GET /scorecards/{boutID}.
func (h *ScorecardHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sc, err := h.deps.SavedScorecard(r.Context(), chi.URLParam(r, "boutID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}
