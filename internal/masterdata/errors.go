package masterdata

import (
	"fmt"

	"github.com/odyssey-erp/receiving/internal/platform/httpx"
)

var (
	ErrUnknownKind       = fmt.Errorf("%w: unknown reference table", httpx.ErrNotFound)
	ErrLookupNotFound    = fmt.Errorf("%w: record not found", httpx.ErrNotFound)
	ErrSupplierNotFound  = fmt.Errorf("%w: supplier not found", httpx.ErrNotFound)
	ErrProductNotFound   = fmt.Errorf("%w: product not found", httpx.ErrNotFound)
	ErrReferenceNotFound = fmt.Errorf("%w: referenced record not found", httpx.ErrNotFound)
	ErrInUse             = fmt.Errorf("%w: record is still referenced", httpx.ErrConflict)
	ErrCodesExhausted    = fmt.Errorf("%w: could not allocate a unique product code", httpx.ErrConflict)
	ErrEmptyUpdate       = fmt.Errorf("%w: no fields to update", httpx.ErrValidation)
)
