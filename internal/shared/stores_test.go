package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/receiving/internal/platform/httpx"
)

type execCall struct {
	sql  string
	args []any
}

type fakeExecer struct {
	calls []execCall
	tag   pgconn.CommandTag
	err   error
}

func (f *fakeExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	return f.tag, f.err
}

func TestAuditLoggerRecord(t *testing.T) {
	exec := &fakeExecer{}
	logger := NewAuditLogger(exec)

	err := logger.Record(context.Background(), AuditLog{ActorID: 7, Action: "arrival.finish", Entity: "arrivals", EntityID: "ARR1", Meta: map[string]any{"status": "finished"}})
	require.NoError(t, err)
	require.Len(t, exec.calls, 1)
	assert.Contains(t, exec.calls[0].sql, "INSERT INTO audit_logs")
	assert.Equal(t, int64(7), exec.calls[0].args[0])
	assert.JSONEq(t, `{"status":"finished"}`, string(exec.calls[0].args[4].([]byte)))

	require.Error(t, logger.Record(context.Background(), AuditLog{Action: "x"}))

	var nilLogger *AuditLogger
	require.Error(t, nilLogger.Record(context.Background(), AuditLog{}))
}

func TestIdempotencyStoreConflict(t *testing.T) {
	exec := &fakeExecer{err: &pgconn.PgError{Code: "23505"}}
	store := NewIdempotencyStore(exec)

	err := store.CheckAndInsert(context.Background(), "k1", "arrivals.create")
	require.ErrorIs(t, err, ErrIdempotencyConflict)
	require.ErrorIs(t, err, httpx.ErrDuplicate)

	exec.err = errors.New("down")
	err = store.CheckAndInsert(context.Background(), "k1", "arrivals.create")
	require.EqualError(t, err, "down")

	require.Error(t, store.CheckAndInsert(context.Background(), "", "arrivals.create"))
	require.Error(t, store.CheckAndInsert(context.Background(), "k", ""))
}

func TestIdempotencyStoreCleanup(t *testing.T) {
	exec := &fakeExecer{tag: pgconn.NewCommandTag("DELETE 3")}
	store := NewIdempotencyStore(exec)

	n, err := store.Cleanup(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.Len(t, exec.calls, 1)
	cutoff := exec.calls[0].args[0].(time.Time)
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), cutoff, time.Minute)
}

func TestPrincipalContext(t *testing.T) {
	ctx := context.Background()
	_, ok := PrincipalFromContext(ctx)
	assert.False(t, ok)
	assert.Zero(t, ActorID(ctx))

	ctx = ContextWithPrincipal(ctx, Principal{UserID: 4, Role: RoleAdmin})
	p, ok := PrincipalFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, RoleAdmin, p.Role)
	assert.Equal(t, int64(4), ActorID(ctx))
}
