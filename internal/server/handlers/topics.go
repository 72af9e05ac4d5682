package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/deshgyan/deshgyan/internal/errors"
)

// ListTopics handles GET /api/topics.
func (a *API) ListTopics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.catalog)
}

// GetTopicGrid handles GET /api/topics/{grid}.
func (a *API) GetTopicGrid(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "grid")
	grid, ok := a.catalog.Grid(id)
	if !ok {
		respondWithError(w, r, apperrors.NewNotFoundError("unknown topic grid: "+id))
		return
	}
	writeJSON(w, http.StatusOK, grid)
}
