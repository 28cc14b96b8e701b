// Package cache keeps the Redis-cached full listing payload in step with
// the database.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/yourorg/listings-api/feed"
	"github.com/yourorg/listings-api/internal/events"
	"github.com/yourorg/listings-api/internal/redisx"
)

type Store interface {
	ListProperties(ctx context.Context) ([]feed.Property, error)
}

// Warmer consumes ListingsSynced events and rebuilds the cached listing
// set so read traffic stays off the database between syncs.
type Warmer struct {
	Pub   events.Publisher
	Redis *redisx.Client
	Store Store
	TTL   time.Duration
	Log   *slog.Logger
}

func (w *Warmer) Run(ctx context.Context) {
	sub := w.Pub.SubscribeListingsSynced()
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-sub:
			if err := w.WarmOnce(ctx); err != nil {
				w.Log.Warn("listings cache warm failed", "error", err)
				continue
			}
			w.Log.Info("listings cache warmed", "synced", evt.Count, "regions", evt.Regions)
		}
	}
}

// WarmOnce rebuilds the cache from the store once.
func (w *Warmer) WarmOnce(ctx context.Context) error {
	records, err := w.Store.ListProperties(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return err
	}
	ttl := w.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return w.Redis.Set(ctx, redisx.ListingsKey, string(payload), ttl)
}
