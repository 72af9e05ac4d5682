package handlers

import (
	"net/http"

	apperrors "github.com/deshgyan/deshgyan/internal/errors"
	"github.com/deshgyan/deshgyan/internal/prefs"
)

type themeBody struct {
	Theme string `json:"theme"`
}

// GetTheme handles GET /api/preferences/theme.
func (a *API) GetTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := a.app.Themes.Get(r.Context())
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to load theme"))
		return
	}
	writeJSON(w, http.StatusOK, themeBody{Theme: theme.String()})
}

// PutTheme handles PUT /api/preferences/theme with {"theme": "light"|"dark"}.
func (a *API) PutTheme(w http.ResponseWriter, r *http.Request) {
	var req themeBody
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	theme, err := prefs.ParseTheme(req.Theme)
	if err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "theme must be light or dark"))
		return
	}
	if err := a.app.Themes.Set(r.Context(), theme); err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to save theme"))
		return
	}
	writeJSON(w, http.StatusOK, themeBody{Theme: theme.String()})
}

// ToggleTheme handles POST /api/preferences/theme/toggle.
func (a *API) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := a.app.Themes.Toggle(r.Context())
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to toggle theme"))
		return
	}
	writeJSON(w, http.StatusOK, themeBody{Theme: theme.String()})
}
