package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository reads audit_logs with pgx.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Window returns rows newest first.
func (r *PGRepository) Window(ctx context.Context, f TimelineFilters, offset, limit int) ([]TimelineRow, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if !f.From.IsZero() {
		add("al.occurred_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("al.occurred_at < $%d", f.To)
	}
	if f.Actor != "" {
		add("u.email ILIKE $%d", "%"+f.Actor+"%")
	}
	if f.Entity != "" {
		add("al.entity = $%d", f.Entity)
	}
	if f.EntityID != "" {
		add("al.entity_id = $%d", f.EntityID)
	}
	if f.Action != "" {
		add("al.action = $%d", f.Action)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT al.occurred_at, al.actor_id, COALESCE(u.email, ''), al.action, al.entity, al.entity_id, al.meta
		FROM audit_logs al
		LEFT JOIN users u ON u.user_id = al.actor_id`)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	args = append(args, limit, offset)
	fmt.Fprintf(&sb, " ORDER BY al.occurred_at DESC, al.id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]TimelineRow, 0)
	for rows.Next() {
		var row TimelineRow
		var meta []byte
		if err := rows.Scan(&row.At, &row.ActorID, &row.Actor, &row.Action, &row.Entity, &row.EntityID, &meta); err != nil {
			return nil, err
		}
		if len(meta) > 0 && string(meta) != "null" {
			row.Meta = meta
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
