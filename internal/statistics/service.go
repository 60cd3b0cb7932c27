// Package statistics rolls up arrival and catalog counts behind a versioned
// Redis cache.
package statistics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/receiving/internal/catalog"
)

const maxParallelCounts = 4

// ArrivalStats counts arrivals per lifecycle status.
type ArrivalStats struct {
	Total           int64 `json:"total"`
	NotInitiated    int64 `json:"not_initiated"`
	Upcoming        int64 `json:"upcoming"`
	InProgress      int64 `json:"in_progress"`
	Finished        int64 `json:"finished"`
	WithDiscrepancy int64 `json:"with_discrepancy"`
}

// EntityStats counts reference data rows.
type EntityStats struct {
	Products   int64 `json:"products"`
	Suppliers  int64 `json:"suppliers"`
	Conditions int64 `json:"conditions"`
	Brands     int64 `json:"brands"`
	Categories int64 `json:"categories"`
	Colors     int64 `json:"colors"`
	Sizes      int64 `json:"sizes"`
	Styles     int64 `json:"styles"`
}

func (s *EntityStats) field(e catalog.Entity) *int64 {
	switch e {
	case catalog.EntityProducts:
		return &s.Products
	case catalog.EntitySuppliers:
		return &s.Suppliers
	case catalog.EntityConditions:
		return &s.Conditions
	case catalog.EntityBrands:
		return &s.Brands
	case catalog.EntityCategories:
		return &s.Categories
	case catalog.EntityColors:
		return &s.Colors
	case catalog.EntitySizes:
		return &s.Sizes
	case catalog.EntityStyles:
		return &s.Styles
	default:
		return nil
	}
}

// Service coordinates statistics queries with the cache layer.
type Service struct {
	repo  Repository
	cache *Cache
	group singleflight.Group
}

// NewService wires a Repository with a Cache helper.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Arrivals returns arrival counts per status.
func (s *Service) Arrivals(ctx context.Context) (ArrivalStats, error) {
	var out ArrivalStats
	err := s.fetch(ctx, "statistics:arrivals", &out, func(ctx context.Context) (interface{}, error) {
		return s.repo.ArrivalCounts(ctx)
	})
	return out, err
}

// Entities returns reference data counts. Tables are counted in parallel.
func (s *Service) Entities(ctx context.Context) (EntityStats, error) {
	var out EntityStats
	err := s.fetch(ctx, "statistics:entities", &out, s.countEntities)
	return out, err
}

func (s *Service) countEntities(ctx context.Context) (interface{}, error) {
	var stats EntityStats
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelCounts)
	for _, entity := range catalog.Entities {
		dst := stats.field(entity)
		g.Go(func() error {
			n, err := s.repo.EntityCount(ctx, entity)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("count entities: %w", err)
	}
	return stats, nil
}

// Warm recomputes every rollup under the current cache version and returns
// how many were loaded.
func (s *Service) Warm(ctx context.Context) (int, error) {
	if _, err := s.Arrivals(ctx); err != nil {
		return 0, fmt.Errorf("warm arrivals: %w", err)
	}
	if _, err := s.Entities(ctx); err != nil {
		return 1, fmt.Errorf("warm entities: %w", err)
	}
	return 2, nil
}

// Bump invalidates cached rollups.
func (s *Service) Bump(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// fetch collapses concurrent misses for the same versioned key into one load.
func (s *Service) fetch(ctx context.Context, prefix string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	key, err := s.cache.BuildKey(ctx, prefix)
	if err != nil {
		return err
	}
	ch := s.group.DoChan(key, func() (interface{}, error) {
		// Shared by every waiter, so not bound to the first caller's context.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		var raw json.RawMessage
		if err := s.cache.FetchJSON(loadCtx, key, &raw, loader); err != nil {
			return nil, err
		}
		return raw, nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.(json.RawMessage), dest)
	}
}
