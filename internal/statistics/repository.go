package statistics

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/receiving/internal/catalog"
)

// Repository exposes the aggregate queries statistics rely on.
type Repository interface {
	ArrivalCounts(ctx context.Context) (ArrivalStats, error)
	EntityCount(ctx context.Context, entity catalog.Entity) (int64, error)
}

type repository struct {
	pool    *pgxpool.Pool
	catalog *catalog.Store
}

// NewRepository creates a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool, catalog: catalog.NewStore(pool)}
}

// ArrivalCounts tallies arrivals per status in one scan.
func (r *repository) ArrivalCounts(ctx context.Context) (ArrivalStats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'not_initiated'),
		       COUNT(*) FILTER (WHERE status = 'upcoming'),
		       COUNT(*) FILTER (WHERE status = 'in_progress'),
		       COUNT(*) FILTER (WHERE status = 'finished'),
		       COUNT(*) FILTER (WHERE status = 'completed_with_discrepancy')
		FROM arrivals
	`
	var s ArrivalStats
	err := r.pool.QueryRow(ctx, query).Scan(
		&s.Total, &s.NotInitiated, &s.Upcoming, &s.InProgress, &s.Finished, &s.WithDiscrepancy,
	)
	return s, err
}

// EntityCount counts one reference table.
func (r *repository) EntityCount(ctx context.Context, entity catalog.Entity) (int64, error) {
	return r.catalog.Count(ctx, entity)
}
