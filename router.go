package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"

	httpapi "github.com/yourorg/listings-api/http"
	httpv1 "github.com/yourorg/listings-api/http/v1"
	"github.com/yourorg/listings-api/internal/logger"
	"github.com/yourorg/listings-api/internal/redisx"
	"github.com/yourorg/listings-api/internal/store"
	"github.com/yourorg/listings-api/internal/syncer"
)

type RouterDeps struct {
	Store    *store.Store
	Redis    *redisx.Client
	Syncer   *syncer.Syncer
	Log      *slog.Logger
	CacheTTL time.Duration
}

func BuildRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(httprate.LimitByIP(100, 1*time.Minute))
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(logger.Middleware(deps.Log))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"ok":true}`)) })

	httpapi.RegisterProperties(r, httpapi.PropertiesDeps{Store: deps.Store, Redis: deps.Redis, Log: deps.Log})
	httpapi.RegisterSync(r, httpapi.SyncDeps{Syncer: deps.Syncer, Log: deps.Log})
	httpapi.RegisterAgency(r, httpapi.AgencyDeps{Store: deps.Store})
	httpapi.RegisterClients(r, httpapi.ClientsDeps{Store: deps.Store, Log: deps.Log})
	httpapi.RegisterProjects(r, httpapi.ProjectsDeps{Store: deps.Store, Log: deps.Log})

	// v1 tracker portal with Redis-backed caching
	httpv1.RegisterTracker(r, httpv1.TrackerDeps{
		Redis:    deps.Redis,
		Store:    deps.Store,
		CacheTTL: deps.CacheTTL,
	})

	return r
}
