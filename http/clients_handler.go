package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/yourorg/listings-api/internal/auth"
)

var validate = validator.New()

type ClientCreator interface {
	CreateClient(ctx context.Context, email, pin, passwordHash string, projectID *string) (string, error)
}

type ClientsDeps struct {
	Store ClientCreator
	Log   *slog.Logger
}

type provisionRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	ProjectID *string `json:"projectId" validate:"omitempty,uuid4"`
}

func RegisterClients(r chi.Router, d ClientsDeps) {
	// Provisions a portal account: random 4-digit PIN plus a derived
	// temporary password. The plaintext password is returned once here
	// and only its bcrypt hash is stored.
	r.Post("/api/clients", func(w http.ResponseWriter, req *http.Request) {
		var body provisionRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "invalid_json", "detail": err.Error()})
			return
		}
		if err := validate.Struct(body); err != nil {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "invalid_body", "detail": err.Error()})
			return
		}

		pin, err := auth.NewPIN()
		if err != nil {
			render.Status(req, http.StatusInternalServerError)
			render.JSON(w, req, map[string]any{"error": "pin_error"})
			return
		}
		password := auth.TempPassword(pin)
		hash, err := auth.HashPassword(password)
		if err != nil {
			render.Status(req, http.StatusInternalServerError)
			render.JSON(w, req, map[string]any{"error": "password_error"})
			return
		}

		id, err := d.Store.CreateClient(req.Context(), body.Email, pin, hash, body.ProjectID)
		if err != nil {
			d.Log.Error("client provisioning failed", "email", body.Email, "error", err)
			render.Status(req, http.StatusInternalServerError)
			render.JSON(w, req, map[string]any{"error": "create_error", "detail": err.Error()})
			return
		}

		d.Log.Info("client provisioned", "client_id", id)
		render.JSON(w, req, map[string]any{
			"success":  true,
			"clientId": id,
			"pin":      pin,
			"password": password,
		})
	})
}
