// Package catalog reads the reference tables arrivals point at: suppliers,
// products, conditions and the product attribute dictionaries.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Entity names a countable reference table.
type Entity string

const (
	EntityProducts   Entity = "products"
	EntitySuppliers  Entity = "suppliers"
	EntityConditions Entity = "conditions"
	EntityBrands     Entity = "brands"
	EntityCategories Entity = "categories"
	EntityColors     Entity = "colors"
	EntitySizes      Entity = "sizes"
	EntityStyles     Entity = "styles"
)

// Entities lists every countable table in response order.
var Entities = []Entity{
	EntityProducts, EntitySuppliers, EntityConditions, EntityBrands,
	EntityCategories, EntityColors, EntitySizes, EntityStyles,
}

// ErrUnknownEntity is returned for a table outside Entities.
var ErrUnknownEntity = errors.New("catalog: unknown entity")

// Product is the identity subset of a product row.
type Product struct {
	ID      int64
	Name    string
	TSKU    string
	Barcode *string
}

// Store runs catalog lookups against a pool or an open transaction.
type Store struct {
	q Querier
}

// NewStore constructs a Store.
func NewStore(q Querier) *Store {
	return &Store{q: q}
}

// SupplierExists reports whether the supplier id is known.
func (s *Store) SupplierExists(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM suppliers WHERE supplier_id = $1)`, id)
}

// ConditionExists reports whether the condition id is known.
func (s *Store) ConditionExists(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM conditions WHERE condition_id = $1)`, id)
}

// MissingProducts returns the ids not present in products, sorted.
func (s *Store) MissingProducts(ctx context.Context, ids []int64) ([]int64, error) {
	return s.missing(ctx, `SELECT product_id FROM products WHERE product_id = ANY($1)`, ids)
}

// MissingConditions returns the ids not present in conditions, sorted.
func (s *Store) MissingConditions(ctx context.Context, ids []int64) ([]int64, error) {
	return s.missing(ctx, `SELECT condition_id FROM conditions WHERE condition_id = ANY($1)`, ids)
}

// Products loads identity columns for the given ids.
func (s *Store) Products(ctx context.Context, ids []int64) (map[int64]Product, error) {
	out := make(map[int64]Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.q.Query(ctx, `SELECT product_id, name, tsku, barcode FROM products WHERE product_id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.TSKU, &p.Barcode); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// Count returns the row count of one reference table.
func (s *Store) Count(ctx context.Context, entity Entity) (int64, error) {
	if !entity.valid() {
		return 0, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	var n int64
	// entity is validated against the closed set above.
	if err := s.q.QueryRow(ctx, "SELECT COUNT(*) FROM "+string(entity)).Scan(&n); err != nil {
		return 0, fmt.Errorf("catalog: count %s: %w", entity, err)
	}
	return n, nil
}

func (e Entity) valid() bool {
	for _, candidate := range Entities {
		if e == candidate {
			return true
		}
	}
	return false
}

func (s *Store) exists(ctx context.Context, query string, id int64) (bool, error) {
	var ok bool
	if err := s.q.QueryRow(ctx, query, id).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (s *Store) missing(ctx context.Context, query string, ids []int64) ([]int64, error) {
	wanted := uniqueIDs(ids)
	if len(wanted) == 0 {
		return nil, nil
	}
	rows, err := s.q.Query(ctx, query, wanted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	found := make(map[int64]struct{}, len(wanted))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return diffIDs(wanted, found), nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func diffIDs(wanted []int64, found map[int64]struct{}) []int64 {
	var out []int64
	for _, id := range wanted {
		if _, ok := found[id]; !ok {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
