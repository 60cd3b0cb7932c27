package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/odyssey-erp/receiving/internal/platform/httpx"
)

func TestMapError(t *testing.T) {
	wrap := func(code string) error {
		return fmt.Errorf("insert: %w", &pgconn.PgError{Code: code, ConstraintName: "c"})
	}

	assert.Nil(t, MapError(nil))
	assert.ErrorIs(t, MapError(pgx.ErrNoRows), httpx.ErrNotFound)
	assert.ErrorIs(t, MapError(wrap(CodeUniqueViolation)), httpx.ErrDuplicate)
	assert.ErrorIs(t, MapError(wrap(CodeForeignKeyViolation)), httpx.ErrNotFound)
	assert.ErrorIs(t, MapError(wrap(CodeCheckViolation)), httpx.ErrValidation)
	assert.ErrorIs(t, MapError(wrap(CodeSerializationFailure)), httpx.ErrConflict)

	plain := errors.New("boom")
	assert.Same(t, plain, MapError(plain))
	assert.True(t, IsUniqueViolation(wrap(CodeUniqueViolation)))
	assert.False(t, IsUniqueViolation(plain))
}
