package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/deshgyan/deshgyan/internal/errors"
)

type historyResponse struct {
	Queries  []string `json:"queries"`
	Capacity int      `json:"capacity"`
}

func (a *API) historyBody() historyResponse {
	return historyResponse{Queries: a.app.Recent.List(), Capacity: a.app.Recent.Capacity()}
}

// ListHistory handles GET /api/history, newest first.
func (a *API) ListHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.historyBody())
}

// AddHistory handles POST /api/history with {"query": "..."}.
func (a *API) AddHistory(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		respondWithError(w, r, apperrors.NewInvalidInputError(queryRequiredMessage))
		return
	}
	if err := a.app.Recent.Record(r.Context(), req.Query); err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to save recent query"))
		return
	}
	writeJSON(w, http.StatusOK, a.historyBody())
}

// RemoveHistory handles DELETE /api/history/{query}.
func (a *API) RemoveHistory(w http.ResponseWriter, r *http.Request) {
	query, err := url.PathUnescape(chi.URLParam(r, "query"))
	if err != nil || strings.TrimSpace(query) == "" {
		respondWithError(w, r, apperrors.NewInvalidInputError(queryRequiredMessage))
		return
	}
	if err := a.app.Recent.Remove(r.Context(), query); err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to remove recent query"))
		return
	}
	writeJSON(w, http.StatusOK, a.historyBody())
}

// ClearHistory handles DELETE /api/history.
func (a *API) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := a.app.Recent.Clear(r.Context()); err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to clear recent queries"))
		return
	}
	writeJSON(w, http.StatusOK, a.historyBody())
}
