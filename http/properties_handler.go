package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/listings-api/feed"
	"github.com/yourorg/listings-api/internal/filter"
	"github.com/yourorg/listings-api/internal/redisx"
)

type PropertyReader interface {
	ListProperties(ctx context.Context) ([]feed.Property, error)
}

type PropertiesDeps struct {
	Store PropertyReader
	Redis *redisx.Client // optional; reads fall through to the store
	Log   *slog.Logger
}

func RegisterProperties(r chi.Router, d PropertiesDeps) {
	// Full normalized set, price ascending. Consumers always get an array:
	// internal failure degrades to [] with a 500 so the UI never needs to
	// special-case a broken backend.
	r.Get("/api/properties", func(w http.ResponseWriter, req *http.Request) {
		if payload, ok := d.cachedListings(req.Context()); ok {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(payload)
			return
		}
		records, err := d.Store.ListProperties(req.Context())
		if err != nil {
			d.Log.Warn("listings read failed, serving empty set", "error", err)
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("[]"))
			return
		}
		render.JSON(w, req, records)
	})

	// Filtered variant. The filter engine itself is pure; this endpoint
	// just binds criteria from the request and applies it server-side.
	r.Post("/api/properties/search", func(w http.ResponseWriter, req *http.Request) {
		var criteria filter.Criteria
		if err := json.NewDecoder(req.Body).Decode(&criteria); err != nil {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "invalid_json", "detail": err.Error()})
			return
		}
		d.serveFiltered(w, req, criteria)
	})

	r.Get("/api/properties/search", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		criteria := filter.Criteria{
			Town:         q.Get("town"),
			Development:  q.Get("development"),
			Region:       q.Get("region"),
			Reference:    q.Get("reference"),
			PropertyType: q.Get("property_type"),
		}
		if v := q.Get("min_beds"); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				criteria.MinBeds = i
			}
		}
		if v := q.Get("min_price"); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				criteria.MinPrice = f
			}
		}
		if v := q.Get("max_price"); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				criteria.MaxPrice = f
			}
		}
		d.serveFiltered(w, req, criteria)
	})
}

func (d PropertiesDeps) serveFiltered(w http.ResponseWriter, req *http.Request, criteria filter.Criteria) {
	records, err := d.loadListings(req.Context())
	if err != nil {
		d.Log.Warn("listings read failed, serving empty set", "error", err)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("[]"))
		return
	}
	render.JSON(w, req, filter.Apply(records, criteria))
}

// loadListings prefers the warmed cache and falls back to the store.
func (d PropertiesDeps) loadListings(ctx context.Context) ([]feed.Property, error) {
	if payload, ok := d.cachedListings(ctx); ok {
		var records []feed.Property
		if err := json.Unmarshal(payload, &records); err == nil {
			return records, nil
		}
	}
	return d.Store.ListProperties(ctx)
}

func (d PropertiesDeps) cachedListings(ctx context.Context) ([]byte, bool) {
	if d.Redis == nil {
		return nil, false
	}
	val, err := d.Redis.Get(ctx, redisx.ListingsKey)
	if err != nil || val == "" {
		return nil, false
	}
	return []byte(val), true
}
