package arrivals

import (
	"fmt"

	"github.com/odyssey-erp/receiving/internal/platform/httpx"
)

// Domain errors for arrivals. Each wraps an httpx sentinel so handlers map them
// with errors.Is.
var (
	ErrArrivalNotFound   = fmt.Errorf("%w: arrival not found", httpx.ErrNotFound)
	ErrLineNotFound      = fmt.Errorf("%w: product not found in this arrival", httpx.ErrNotFound)
	ErrSupplierNotFound  = fmt.Errorf("%w: supplier not found", httpx.ErrNotFound)
	ErrProductNotFound   = fmt.Errorf("%w: product not found", httpx.ErrNotFound)
	ErrConditionNotFound = fmt.Errorf("%w: condition not found", httpx.ErrNotFound)

	// Status guard errors.
	ErrCannotEdit        = fmt.Errorf("%w: only upcoming or not initiated arrivals can be edited", httpx.ErrForbidden)
	ErrCannotStart       = fmt.Errorf("%w: only upcoming arrivals can be processed", httpx.ErrForbidden)
	ErrCannotScan        = fmt.Errorf("%w: only in progress arrivals can be scanned", httpx.ErrForbidden)
	ErrCannotFinish      = fmt.Errorf("%w: only in progress arrivals can be finished", httpx.ErrForbidden)
	ErrCannotDelete      = fmt.Errorf("%w: arrivals in progress cannot be deleted", httpx.ErrForbidden)
	ErrInvalidTransition = fmt.Errorf("%w: invalid status transition", httpx.ErrForbidden)

	// Validation errors.
	ErrExceedsExpected  = fmt.Errorf("%w: cannot add quantity: would exceed expected quantity", httpx.ErrValidation)
	ErrDuplicateProduct = fmt.Errorf("%w: product listed more than once", httpx.ErrValidation)
	ErrInvalidStatus    = fmt.Errorf("%w: unknown status", httpx.ErrValidation)
	ErrNoArrivalNumbers = fmt.Errorf("%w: at least one arrival number is required", httpx.ErrValidation)

	// ErrNumberTaken signals a lost race on the arrival number unique index.
	ErrNumberTaken = fmt.Errorf("%w: arrival number already taken", httpx.ErrDuplicate)
)
