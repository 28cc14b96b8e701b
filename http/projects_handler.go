package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/listings-api/internal/auth"
	"github.com/yourorg/listings-api/internal/store"
)

// Construction phases run on a fixed 1..12 ordinal scale.
const (
	MinPhase = 1
	MaxPhase = 12
)

type ProjectStore interface {
	CreateProject(ctx context.Context, name string, cashback float64, pin string) (store.Project, error)
	ListProjects(ctx context.Context) ([]store.Project, error)
	UpdateProjectPhase(ctx context.Context, id string, phase int) error
	AppendProjectUpdate(ctx context.Context, id string, upd store.ProjectUpdate) error
}

type ProjectsDeps struct {
	Store ProjectStore
	Log   *slog.Logger
	Now   func() time.Time
}

func (d ProjectsDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

func RegisterProjects(r chi.Router, d ProjectsDeps) {
	r.Post("/api/projects", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Name     string  `json:"name"`
			Cashback float64 `json:"cashback"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "invalid_json", "detail": err.Error()})
			return
		}
		if body.Name == "" {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "name_required"})
			return
		}
		pin, err := auth.NewPIN()
		if err != nil {
			render.Status(req, http.StatusInternalServerError)
			render.JSON(w, req, map[string]any{"error": "pin_error"})
			return
		}
		project, err := d.Store.CreateProject(req.Context(), body.Name, body.Cashback, pin)
		if err != nil {
			d.Log.Error("project create failed", "name", body.Name, "error", err)
			render.Status(req, http.StatusInternalServerError)
			render.JSON(w, req, map[string]any{"error": "create_error", "detail": err.Error()})
			return
		}
		render.JSON(w, req, map[string]any{"success": true, "project": project})
	})

	r.Get("/api/projects", func(w http.ResponseWriter, req *http.Request) {
		projects, err := d.Store.ListProjects(req.Context())
		if err != nil {
			render.Status(req, http.StatusInternalServerError)
			render.JSON(w, req, map[string]any{"error": "list_error", "detail": err.Error()})
			return
		}
		render.JSON(w, req, projects)
	})

	r.Put("/api/projects/{projectID}/phase", func(w http.ResponseWriter, req *http.Request) {
		projectID := chi.URLParam(req, "projectID")
		var body struct {
			Phase int `json:"phase"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "invalid_json", "detail": err.Error()})
			return
		}
		if body.Phase < MinPhase || body.Phase > MaxPhase {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "phase_out_of_range", "min": MinPhase, "max": MaxPhase})
			return
		}
		err := d.Store.UpdateProjectPhase(req.Context(), projectID, body.Phase)
		if errors.Is(err, store.ErrNotFound) {
			render.Status(req, http.StatusNotFound)
			render.JSON(w, req, map[string]any{"error": "not_found"})
			return
		}
		if err != nil {
			render.Status(req, http.StatusInternalServerError)
			render.JSON(w, req, map[string]any{"error": "update_error", "detail": err.Error()})
			return
		}
		render.JSON(w, req, map[string]any{"success": true, "phase": body.Phase})
	})

	r.Post("/api/projects/{projectID}/updates", func(w http.ResponseWriter, req *http.Request) {
		projectID := chi.URLParam(req, "projectID")
		var body struct {
			PhotoURL string `json:"photoUrl"`
			Note     string `json:"note"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "invalid_json", "detail": err.Error()})
			return
		}
		if body.PhotoURL == "" && body.Note == "" {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "update_empty"})
			return
		}
		upd := store.ProjectUpdate{PhotoURL: body.PhotoURL, Note: body.Note, At: d.now()}
		err := d.Store.AppendProjectUpdate(req.Context(), projectID, upd)
		if errors.Is(err, store.ErrNotFound) {
			render.Status(req, http.StatusNotFound)
			render.JSON(w, req, map[string]any{"error": "not_found"})
			return
		}
		if err != nil {
			render.Status(req, http.StatusInternalServerError)
			render.JSON(w, req, map[string]any{"error": "update_error", "detail": err.Error()})
			return
		}
		render.JSON(w, req, map[string]any{"success": true, "update": upd})
	})
}
