// Package arrivals tracks inbound supplier shipments from creation through
// scanning to reconciliation.
package arrivals

import "time"

// Status represents the lifecycle of an arrival.
type Status string

const (
	StatusNotInitiated             Status = "not_initiated"              // Created, no lines attached
	StatusUpcoming                 Status = "upcoming"                   // Lines attached, awaiting processing
	StatusInProgress               Status = "in_progress"                // Scanning underway
	StatusFinished                 Status = "finished"                   // Reconciled without discrepancy
	StatusCompletedWithDiscrepancy Status = "completed_with_discrepancy" // Reconciled with discrepancy
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusNotInitiated, StatusUpcoming, StatusInProgress, StatusFinished, StatusCompletedWithDiscrepancy:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are legal.
func (s Status) IsTerminal() bool {
	return s == StatusFinished || s == StatusCompletedWithDiscrepancy
}

// CanEdit checks if the arrival fields and line set may still change.
func (s Status) CanEdit() bool {
	return s == StatusNotInitiated || s == StatusUpcoming
}

// CanStart checks if processing may begin.
func (s Status) CanStart() bool {
	return s == StatusUpcoming
}

// CanScan checks if received quantities may be recorded.
func (s Status) CanScan() bool {
	return s == StatusInProgress
}

// CanFinish checks if the arrival may be reconciled.
func (s Status) CanFinish() bool {
	return s == StatusInProgress
}

// CanDelete checks if the arrival may be removed. Arrivals are protected while
// a scan session is active.
func (s Status) CanDelete() bool {
	return s != StatusInProgress
}

func (s Status) rank() int {
	switch s {
	case StatusNotInitiated:
		return 0
	case StatusUpcoming:
		return 1
	case StatusInProgress:
		return 2
	case StatusFinished, StatusCompletedWithDiscrepancy:
		return 3
	default:
		return -1
	}
}

// CanTransition reports whether moving from s to next keeps the lifecycle
// forward-only. Re-entering UPCOMING while the line set is replaced is allowed.
func (s Status) CanTransition(next Status) bool {
	if !s.IsValid() || !next.IsValid() || s.IsTerminal() {
		return false
	}
	if s == StatusUpcoming && next == StatusUpcoming {
		return true
	}
	return next.rank() == s.rank()+1
}

// Arrival is one shipment expected from one supplier.
type Arrival struct {
	ID                int64      `json:"arrival_id"`
	Number            string     `json:"arrival_number"`
	Title             string     `json:"title"`
	SupplierID        int64      `json:"supplier_id"`
	ExpectedDate      time.Time  `json:"expected_date"`
	StartedDate       *time.Time `json:"started_date"`
	FinishedDate      *time.Time `json:"finished_date"`
	Status            Status     `json:"status"`
	ExpectedPallets   *int       `json:"expected_pallets"`
	ExpectedBoxes     int        `json:"expected_boxes"`
	ExpectedKilograms float64    `json:"expected_kilograms"`
	ExpectedPieces    *int       `json:"expected_pieces"`
	ReceivedPallets   *int       `json:"received_pallets"`
	ReceivedBoxes     *int       `json:"received_boxes"`
	ReceivedKilograms *float64   `json:"received_kilograms"`
	ReceivedPieces    *int       `json:"received_pieces"`
	Notes             *string    `json:"notes"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Line is one expected product within an arrival.
type Line struct {
	ID               int64  `json:"arrival_product_id"`
	ArrivalID        int64  `json:"arrival_id"`
	ProductID        int64  `json:"product_id"`
	ConditionID      *int64 `json:"condition_id"`
	ExpectedQuantity int    `json:"expected_quantity"`
	ReceivedQuantity int    `json:"received_quantity"`
}

// LineDetail is a line joined with product and condition names.
type LineDetail struct {
	Line
	ProductName   *string `json:"product_name"`
	ProductSKU    *string `json:"product_sku"`
	Barcode       *string `json:"barcode"`
	ConditionName *string `json:"condition_name"`
}

// Difference returns received minus expected.
func (l LineDetail) Difference() int {
	return l.ReceivedQuantity - l.ExpectedQuantity
}

// Summary is the list view of an arrival.
type Summary struct {
	Arrival
	SupplierName string `json:"supplier_name"`
	ProductCount int    `json:"product_count"`
}

// Detail is an arrival with its supplier and lines.
type Detail struct {
	Arrival
	SupplierName string       `json:"supplier_name"`
	Lines        []LineDetail `json:"arrival_products"`
}
