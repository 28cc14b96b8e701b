package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/listings-api/internal/redisx"
	"github.com/yourorg/listings-api/internal/store"
)

var pinPattern = regexp.MustCompile(`^\d{4}$`)

type ProjectReader interface {
	GetProjectByPIN(ctx context.Context, pin string) (store.Project, error)
}

type TrackerDeps struct {
	Redis *redisx.Client // optional; without it every lookup hits the store
	Store ProjectReader
	// TTL tuning
	CacheTTL    time.Duration
	NegativeTTL time.Duration
}

// RegisterTracker serves the read-only client portal view. The portal
// polls this endpoint, so known PINs are cached briefly and unknown PINs
// get a negative-cache cooldown to keep guessing traffic off the store.
func RegisterTracker(r chi.Router, d TrackerDeps) {
	r.Route("/v1/tracker", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			pin := req.URL.Query().Get("pin")
			if !pinPattern.MatchString(pin) {
				render.Status(req, http.StatusBadRequest)
				render.JSON(w, req, map[string]any{"error": "pin_required", "detail": "pin must be 4 digits"})
				return
			}
			lookup(w, req, d, pin)
		})
	})
}

func lookup(w http.ResponseWriter, req *http.Request, d TrackerDeps, pin string) {
	ctx := req.Context()
	missKey := redisx.TrackerMissPrefix + pin
	cacheKey := redisx.TrackerKeyPrefix + pin

	if d.Redis != nil {
		if ok, _ := d.Redis.Exists(ctx, missKey); ok {
			render.Status(req, http.StatusNotFound)
			render.JSON(w, req, map[string]any{"error": "not_found", "cache_miss_cooldown": true})
			return
		}
		if val, err := d.Redis.Get(ctx, cacheKey); err == nil && val != "" {
			render.JSON(w, req, map[string]any{
				"ok":      true,
				"source":  "cache",
				"project": json.RawMessage(val),
			})
			return
		}
		// short lock so a polling burst on a cold PIN hits the store once;
		// released as soon as the lookup settles so an error does not leave
		// pollers on 202 for the full TTL
		if ok, _ := d.Redis.SetNX(ctx, redisx.TrackerLockPrefix+pin, "1", 5*time.Second); !ok {
			render.Status(req, http.StatusAccepted)
			render.JSON(w, req, map[string]any{"ok": false, "in_progress": true})
			return
		}
		defer func() { _ = d.Redis.Del(ctx, redisx.TrackerLockPrefix+pin) }()
	}

	project, err := d.Store.GetProjectByPIN(ctx, pin)
	if errors.Is(err, store.ErrNotFound) {
		if d.Redis != nil {
			_ = d.Redis.Set(ctx, missKey, "1", maxDur(d.NegativeTTL, 30*time.Second))
		}
		render.Status(req, http.StatusNotFound)
		render.JSON(w, req, map[string]any{"error": "not_found"})
		return
	}
	if err != nil {
		render.Status(req, http.StatusInternalServerError)
		render.JSON(w, req, map[string]any{"error": "tracker_error", "detail": err.Error()})
		return
	}

	if d.Redis != nil {
		if b, err := json.Marshal(project); err == nil {
			_ = d.Redis.Set(ctx, cacheKey, string(b), maxDur(d.CacheTTL, 30*time.Second))
		}
	}
	render.JSON(w, req, map[string]any{
		"ok":      true,
		"source":  "fresh",
		"project": project,
	})
}

func maxDur(a, b time.Duration) time.Duration {
	if a > 0 {
		return a
	}
	return b
}
