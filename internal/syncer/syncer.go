// Package syncer runs one property-feed sync: fetch each configured
// source, normalize, upsert. A failed source is skipped; the rest of the
// run continues and reports partial totals.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/yourorg/listings-api/feed"
	"github.com/yourorg/listings-api/internal/events"
)

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Sink interface {
	UpsertProperties(ctx context.Context, records []feed.Property) (int, error)
}

// Stats summarizes one run. Synced counts records actually written, which
// may be partial when a source's batch failed midway.
type Stats struct {
	Sources int
	Skipped int
	Synced  int
}

type Syncer struct {
	Fetcher Fetcher
	Sink    Sink
	Pub     events.Publisher
	Sources []feed.Source
	Workers int
	Log     *slog.Logger
	Now     func() time.Time
}

type sourceResult struct {
	region  string
	written int
	skipped bool
	err     error
}

// Run syncs every source through a small bounded worker pool. Sources
// write disjoint key spaces, so concurrent upserts need no extra locking.
// Fetch and parse failures only skip their source; the returned error is
// non-nil only for persistence failures, and earlier sources' writes are
// never rolled back.
func (s *Syncer) Run(ctx context.Context) (Stats, error) {
	stats := Stats{Sources: len(s.Sources)}
	if len(s.Sources) == 0 {
		return stats, nil
	}

	workers := s.Workers
	if workers <= 0 {
		workers = 2
	}
	if workers > len(s.Sources) {
		workers = len(s.Sources)
	}

	jobs := make(chan feed.Source)
	results := make(chan sourceResult, len(s.Sources))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for src := range jobs {
				results <- s.syncSource(ctx, src)
			}
		}()
	}
	for _, src := range s.Sources {
		jobs <- src
	}
	close(jobs)
	wg.Wait()
	close(results)

	var errs error
	var regions []string
	for res := range results {
		if res.skipped {
			stats.Skipped++
			continue
		}
		stats.Synced += res.written
		if res.written > 0 {
			regions = append(regions, res.region)
		}
		if res.err != nil {
			errs = errors.Join(errs, res.err)
		}
	}

	if stats.Synced > 0 && s.Pub != nil {
		sort.Strings(regions)
		s.Pub.PublishListingsSynced(ctx, events.ListingsSynced{Regions: regions, Count: stats.Synced})
	}
	return stats, errs
}

func (s *Syncer) syncSource(ctx context.Context, src feed.Source) sourceResult {
	res := sourceResult{region: src.Region}

	body, err := s.Fetcher.Fetch(ctx, src.URL)
	if err != nil {
		s.logw("feed fetch failed, skipping source", "region", src.Region, "error", err)
		res.skipped = true
		return res
	}

	records := feed.Normalize(src.Region, body, s.now())
	if len(records) == 0 {
		s.logi("feed yielded no properties", "region", src.Region)
		return res
	}

	written, err := s.Sink.UpsertProperties(ctx, records)
	res.written = written
	if err != nil {
		res.err = fmt.Errorf("region %s: upsert: %w", src.Region, err)
	}
	return res
}

func (s *Syncer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Syncer) logw(msg string, args ...any) {
	if s.Log != nil {
		s.Log.Warn(msg, args...)
	}
}

func (s *Syncer) logi(msg string, args ...any) {
	if s.Log != nil {
		s.Log.Info(msg, args...)
	}
}
