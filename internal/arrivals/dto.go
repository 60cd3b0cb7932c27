package arrivals

import (
	"time"

	"github.com/odyssey-erp/receiving/internal/shared"
)

// CreateRequest is the payload for POST /api/arrivals.
type CreateRequest struct {
	Title             string    `json:"title" validate:"required,min=1,max=200"`
	SupplierID        int64     `json:"supplier_id" validate:"required,gt=0"`
	ExpectedDate      time.Time `json:"expected_date" validate:"required"`
	ExpectedPallets   int       `json:"expected_pallets" validate:"required,gt=0"`
	ExpectedBoxes     int       `json:"expected_boxes" validate:"required,gt=0"`
	ExpectedPieces    int       `json:"expected_pieces" validate:"required,gt=0"`
	ExpectedKilograms float64   `json:"expected_kilograms" validate:"required,gt=0"`
	Notes             *string   `json:"notes" validate:"omitempty"`
}

// UpdateRequest applies only the supplied fields.
type UpdateRequest struct {
	Title             *string    `json:"title" validate:"omitempty,min=1,max=200"`
	SupplierID        *int64     `json:"supplier_id" validate:"omitempty,gt=0"`
	ExpectedDate      *time.Time `json:"expected_date"`
	ExpectedPallets   *int       `json:"expected_pallets" validate:"omitempty,gt=0"`
	ExpectedBoxes     *int       `json:"expected_boxes" validate:"omitempty,gt=0"`
	ExpectedPieces    *int       `json:"expected_pieces" validate:"omitempty,gt=0"`
	ExpectedKilograms *float64   `json:"expected_kilograms" validate:"omitempty,gt=0"`
	Notes             *string    `json:"notes"`
}

// AttachLine is one expected product in an attach request.
type AttachLine struct {
	ProductID        int64  `json:"product_id" validate:"required,gt=0"`
	ExpectedQuantity *int   `json:"expected_quantity" validate:"required,gte=0,max=2147483647"`
	ConditionID      *int64 `json:"condition_id" validate:"omitempty,gt=0"`
}

// AttachProductsRequest replaces the line set of an arrival.
type AttachProductsRequest struct {
	ArrivalProducts []AttachLine `json:"arrival_products" validate:"required,min=1,dive"`
}

// StartProcessingRequest records shipment level received totals.
type StartProcessingRequest struct {
	ReceivedPallets   *int     `json:"received_pallets" validate:"omitempty,gte=0"`
	ReceivedBoxes     *int     `json:"received_boxes" validate:"required,gte=0"`
	ReceivedKilograms *float64 `json:"received_kilograms" validate:"omitempty,gte=0"`
	ReceivedPieces    *int     `json:"received_pieces" validate:"omitempty,gte=0"`
}

// ScanRequest adds a received quantity to one line.
type ScanRequest struct {
	ProductID        int64 `json:"product_id" validate:"required,gt=0"`
	ConditionID      int64 `json:"condition_id" validate:"required,gt=0"`
	ReceivedQuantity int   `json:"received_quantity" validate:"required,gt=0,max=2147483647"`
}

// DeleteManyRequest removes several arrivals at once.
type DeleteManyRequest struct {
	ArrivalNumbers []string `json:"arrival_numbers" validate:"required,min=1,dive,required,max=20"`
}

// ListFilters drives GET /api/arrivals.
type ListFilters struct {
	Search     string
	SupplierID *int64
	Status     *Status
	Negate     bool
	Descending bool
	Page       shared.PageParams
}

// CreateResult is returned by Create.
type CreateResult struct {
	ArrivalNumber string `json:"arrival_number"`
}

// StatusResult is returned by operations that move the lifecycle.
type StatusResult struct {
	ArrivalNumber string `json:"arrival_number"`
	Status        Status `json:"status"`
}

// ScanResult is the line state after a scan.
type ScanResult struct {
	ArrivalNumber    string `json:"arrival_number"`
	Status           Status `json:"status"`
	ProductID        int64  `json:"product_id"`
	ConditionID      *int64 `json:"condition_id"`
	ExpectedQuantity int    `json:"expected_quantity"`
	ReceivedQuantity int    `json:"received_quantity"`
}

// DeleteResult lists the removed arrivals.
type DeleteResult struct {
	DeletedArrivals []string `json:"deleted_arrivals"`
	Count           int      `json:"count"`
}

// ListResult is a page of arrivals.
type ListResult struct {
	Items      []Summary         `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}
