package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/listings-api/internal/store"
)

type AgencyReader interface {
	AgencySettingsBySlug(ctx context.Context, slug string) (store.AgencySettings, error)
}

type AgencyDeps struct {
	Store AgencyReader
}

func RegisterAgency(r chi.Router, d AgencyDeps) {
	// Tenant config lookup: one settings row per agency subdomain slug.
	r.Get("/api/agency-config", func(w http.ResponseWriter, req *http.Request) {
		slug := req.URL.Query().Get("slug")
		if slug == "" {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "slug_required"})
			return
		}
		settings, err := d.Store.AgencySettingsBySlug(req.Context(), slug)
		if errors.Is(err, store.ErrNotFound) {
			render.Status(req, http.StatusNotFound)
			render.JSON(w, req, map[string]any{"error": "not_found", "slug": slug})
			return
		}
		if err != nil {
			render.Status(req, http.StatusInternalServerError)
			render.JSON(w, req, map[string]any{"error": "settings_error", "detail": err.Error()})
			return
		}
		render.JSON(w, req, settings)
	})
}
