package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/listings-api/internal/syncer"
)

type SyncDeps struct {
	Syncer *syncer.Syncer
	Log    *slog.Logger
}

func RegisterSync(r chi.Router, d SyncDeps) {
	// On-demand sync trigger. A failed source only reduces totalSynced;
	// persistence failure marks the run failed without rolling back the
	// sources that already wrote.
	r.Get("/api/sync-properties", func(w http.ResponseWriter, req *http.Request) {
		stats, err := d.Syncer.Run(req.Context())
		if err != nil {
			d.Log.Error("sync run failed", "error", err, "synced", stats.Synced)
			render.Status(req, http.StatusInternalServerError)
			render.JSON(w, req, map[string]any{
				"success":     false,
				"error":       err.Error(),
				"totalSynced": stats.Synced,
			})
			return
		}
		d.Log.Info("sync run complete",
			"sources", stats.Sources,
			"skipped", stats.Skipped,
			"synced", stats.Synced,
		)
		render.JSON(w, req, map[string]any{
			"success":        true,
			"totalSynced":    stats.Synced,
			"skippedSources": stats.Skipped,
		})
	})
}
