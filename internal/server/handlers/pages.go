package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/deshgyan/deshgyan/internal/ailink"
	"github.com/deshgyan/deshgyan/internal/catalog"
	apperrors "github.com/deshgyan/deshgyan/internal/errors"
	"github.com/deshgyan/deshgyan/internal/markdown"
	"github.com/deshgyan/deshgyan/internal/prefs"
)

//go:embed templates/*.html
var templateFS embed.FS

func parsePages() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

type pageData struct {
	Title string
	Theme prefs.Theme
	Query string

	// Home page
	Recent []string
	Grids  []catalog.Grid

	// Article page
	Body      template.HTML
	Sources   []ailink.GroundingSource
	ImageURL  template.URL
	Error     string
	Retryable bool
}

// Home handles GET /: the search form, recent queries and topic grids.
func (a *API) Home(w http.ResponseWriter, r *http.Request) {
	data := a.basePage(r)
	data.Recent = a.app.Recent.List()
	data.Grids = a.catalog.Grids
	a.render(w, r, http.StatusOK, "index", data)
}

// Article handles GET /article?q=: runs the search and renders the answer,
// or an error panel with a retry link.
func (a *API) Article(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	data := a.basePage(r)
	data.Query = query
	data.Title = query

	a.recordQuery(r.Context(), query)
	result, err := a.searcher.Search(r.Context(), query)
	if err != nil {
		kind := ailink.KindOf(err)
		envelope := apperrors.WrapSearchError(r.Context(), err)
		data.Error = envelope.Message
		data.Retryable = kind.Retryable()
		a.warn("Article search failed",
			zap.String("error_code", envelope.Code),
			zap.String("kind", kind.String()),
			zap.Error(err))
		a.render(w, r, apperrors.HTTPStatusFromEnvelope(envelope), "article", data)
		return
	}

	data.Body = markdown.RenderHTML(markdown.Format(result.Text))
	data.Sources = result.Sources
	if safeImageURL(result.ImageURL) {
		data.ImageURL = template.URL(result.ImageURL) // #nosec G203 -- scheme checked by safeImageURL
	}
	a.render(w, r, http.StatusOK, "article", data)
}

func (a *API) basePage(r *http.Request) pageData {
	theme, err := a.app.Themes.Get(r.Context())
	if err != nil {
		a.warn("Failed to load theme preference", zap.Error(err))
	}
	return pageData{Theme: theme}
}

// render executes into a buffer so a template failure still yields a clean
// error response.
func (a *API) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := a.pages.ExecuteTemplate(&buf, name, data); err != nil {
		respondWithError(w, r, apperrors.WrapInternal(r.Context(), err, "failed to render page"))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// safeImageURL admits https links and inline base64 images, the two forms
// image providers return.
func safeImageURL(raw string) bool {
	return strings.HasPrefix(raw, "https://") || strings.HasPrefix(raw, "data:image/")
}
