package arrivals

// LineWithProduct is the reconciliation input for one line. Name and SKU are
// nil when the product row could not be joined.
type LineWithProduct struct {
	ProductID   int64
	ProductName *string
	ProductSKU  *string
	Expected    int
	Received    int
}

// ProductDiscrepancy is a non-zero line difference.
type ProductDiscrepancy struct {
	ProductID   int64   `json:"product_id"`
	ProductName *string `json:"product_name"`
	ProductSKU  *string `json:"product_sku"`
	Expected    int     `json:"expected"`
	Received    int     `json:"received"`
	Difference  int     `json:"difference"`
}

// BoxDiscrepancy is a non-zero shipment box difference.
type BoxDiscrepancy struct {
	ExpectedBoxes int `json:"expected_boxes"`
	ReceivedBoxes int `json:"received_boxes"`
	Difference    int `json:"difference"`
}

// Discrepancies groups product and box level findings. Empty levels are nil.
type Discrepancies struct {
	Products []ProductDiscrepancy `json:"products"`
	Boxes    *BoxDiscrepancy      `json:"boxes"`
}

// Report is the outcome of finishing an arrival.
type Report struct {
	ArrivalNumber    string        `json:"arrival_number"`
	Status           Status        `json:"status"`
	HasDiscrepancies bool          `json:"has_discrepancies"`
	Discrepancies    Discrepancies `json:"discrepancies"`
}

// Reconcile compares received against expected quantities and derives the
// terminal status. A nil receivedBoxes counts as zero.
func Reconcile(number string, lines []LineWithProduct, expectedBoxes int, receivedBoxes *int) Report {
	var products []ProductDiscrepancy
	for _, line := range lines {
		diff := line.Received - line.Expected
		if diff == 0 {
			continue
		}
		products = append(products, ProductDiscrepancy{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			ProductSKU:  line.ProductSKU,
			Expected:    line.Expected,
			Received:    line.Received,
			Difference:  diff,
		})
	}

	received := 0
	if receivedBoxes != nil {
		received = *receivedBoxes
	}
	var boxes *BoxDiscrepancy
	if diff := received - expectedBoxes; diff != 0 {
		boxes = &BoxDiscrepancy{ExpectedBoxes: expectedBoxes, ReceivedBoxes: received, Difference: diff}
	}

	has := len(products) > 0 || boxes != nil
	status := StatusFinished
	if has {
		status = StatusCompletedWithDiscrepancy
	}
	return Report{
		ArrivalNumber:    number,
		Status:           status,
		HasDiscrepancies: has,
		Discrepancies:    Discrepancies{Products: products, Boxes: boxes},
	}
}

// LineSplit partitions lines by whether they match their expected quantity.
type LineSplit struct {
	ArrivalNumber      string       `json:"arrival_number"`
	WithDiscrepancy    []LineDetail `json:"with_discrepancy"`
	WithoutDiscrepancy []LineDetail `json:"without_discrepancy"`
}

// SplitLines builds a LineSplit. Both slices are non-nil.
func SplitLines(number string, lines []LineDetail) LineSplit {
	out := LineSplit{
		ArrivalNumber:      number,
		WithDiscrepancy:    []LineDetail{},
		WithoutDiscrepancy: []LineDetail{},
	}
	for _, line := range lines {
		if line.Difference() != 0 {
			out.WithDiscrepancy = append(out.WithDiscrepancy, line)
			continue
		}
		out.WithoutDiscrepancy = append(out.WithoutDiscrepancy, line)
	}
	return out
}
