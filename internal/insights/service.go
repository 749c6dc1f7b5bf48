package insights

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/guestpulse/guestpulse/internal/cache"
	"github.com/guestpulse/guestpulse/internal/store"
	"github.com/guestpulse/guestpulse/pkg/models"
)

const snapshotTTL = 60 * time.Second

// Service computes snapshots over the store, caching results per filter for
// a short TTL. Cache failures degrade to a direct computation.
type Service struct {
	store store.Store
	cache cache.Cache
}

func NewService(st store.Store, c cache.Cache) *Service {
	return &Service{store: st, cache: c}
}

// Snapshot returns the metrics for one filter selection, from cache when a
// fresh entry exists.
func (s *Service) Snapshot(ctx context.Context, f Filter) (*Snapshot, error) {
	key := cache.SnapshotKey(filterHash(f))

	if s.cache != nil {
		if data, found, err := s.cache.Get(ctx, key); err == nil && found {
			var snap Snapshot
			if err := json.Unmarshal(data, &snap); err == nil {
				return &snap, nil
			}
			slog.Warn("discarding undecodable cached snapshot", "key", key)
		}
	}

	rows, err := s.loadRows(ctx)
	if err != nil {
		return nil, err
	}
	snap := Compute(rows, f)

	if s.cache != nil {
		if data, err := json.Marshal(snap); err == nil {
			if err := s.cache.Set(ctx, key, data, snapshotTTL); err != nil {
				slog.Warn("failed to cache snapshot", "key", key, "error", err)
			}
		}
	}
	return &snap, nil
}

// loadRows joins every analysis with its review. Reviews without an analysis
// do not contribute to metrics.
func (s *Service) loadRows(ctx context.Context) ([]Row, error) {
	reviews, err := s.store.ListReviews(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing reviews: %w", err)
	}
	analyses, err := s.store.ListAnalyses(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}

	byID := make(map[string]*models.Review, len(reviews))
	for _, r := range reviews {
		byID[r.ID] = r
	}

	rows := make([]Row, 0, len(analyses))
	for _, a := range analyses {
		r, ok := byID[a.ID]
		if !ok {
			continue
		}
		rows = append(rows, Row{Review: *r, Analysis: *a})
	}
	return rows, nil
}

// filterHash produces a stable digest of the filter selection so equivalent
// filters share a cache entry regardless of slice order.
func filterHash(f Filter) string {
	canon := func(vals []string) string {
		sorted := append([]string(nil), vals...)
		sort.Strings(sorted)
		return strings.Join(sorted, ",")
	}
	parts := []string{
		"brands=" + canon(f.Brands),
		"outlets=" + canon(f.Outlets),
		"platforms=" + canon(f.Platforms),
		"order_types=" + canon(f.OrderTypes),
		"start=" + f.Start.UTC().Format(time.RFC3339),
		"end=" + f.End.UTC().Format(time.RFC3339),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, ";")))
	return hex.EncodeToString(sum[:])
}
