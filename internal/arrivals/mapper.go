package arrivals

import (
	"sort"
	"strings"
)

// ToArrival maps CreateRequest to a NOT_INITIATED arrival. Blank notes are
// stored as NULL.
func (r CreateRequest) ToArrival(number string) Arrival {
	pallets, pieces := r.ExpectedPallets, r.ExpectedPieces
	a := Arrival{
		Number:            number,
		Title:             strings.TrimSpace(r.Title),
		SupplierID:        r.SupplierID,
		ExpectedDate:      r.ExpectedDate,
		Status:            StatusNotInitiated,
		ExpectedPallets:   &pallets,
		ExpectedBoxes:     r.ExpectedBoxes,
		ExpectedKilograms: r.ExpectedKilograms,
		ExpectedPieces:    &pieces,
	}
	if r.Notes != nil && strings.TrimSpace(*r.Notes) != "" {
		notes := *r.Notes
		a.Notes = &notes
	}
	return a
}

// Updates maps the supplied fields of UpdateRequest to column values.
func (r UpdateRequest) Updates() map[string]interface{} {
	updates := make(map[string]interface{})
	if r.Title != nil {
		updates["title"] = strings.TrimSpace(*r.Title)
	}
	if r.SupplierID != nil {
		updates["supplier_id"] = *r.SupplierID
	}
	if r.ExpectedDate != nil {
		updates["expected_date"] = *r.ExpectedDate
	}
	if r.ExpectedPallets != nil {
		updates["expected_pallets"] = *r.ExpectedPallets
	}
	if r.ExpectedBoxes != nil {
		updates["expected_boxes"] = *r.ExpectedBoxes
	}
	if r.ExpectedPieces != nil {
		updates["expected_pieces"] = *r.ExpectedPieces
	}
	if r.ExpectedKilograms != nil {
		updates["expected_kilograms"] = *r.ExpectedKilograms
	}
	if r.Notes != nil {
		updates["notes"] = r.Notes
	}
	return updates
}

// ToLines maps attach lines to new lines with nothing received.
func (r AttachProductsRequest) ToLines(arrivalID int64) []Line {
	lines := make([]Line, 0, len(r.ArrivalProducts))
	for _, in := range r.ArrivalProducts {
		lines = append(lines, Line{
			ArrivalID:        arrivalID,
			ProductID:        in.ProductID,
			ConditionID:      in.ConditionID,
			ExpectedQuantity: *in.ExpectedQuantity,
		})
	}
	return lines
}

// Received maps start totals to column values. Omitted totals default to zero.
func (r StartProcessingRequest) Received() map[string]interface{} {
	return map[string]interface{}{
		"received_pallets":   intOrZero(r.ReceivedPallets),
		"received_boxes":     intOrZero(r.ReceivedBoxes),
		"received_kilograms": floatOrZero(r.ReceivedKilograms),
		"received_pieces":    intOrZero(r.ReceivedPieces),
	}
}

func (r AttachProductsRequest) productIDs() []int64 {
	ids := make([]int64, 0, len(r.ArrivalProducts))
	for _, l := range r.ArrivalProducts {
		ids = append(ids, l.ProductID)
	}
	return ids
}

func (r AttachProductsRequest) conditionIDs() []int64 {
	var ids []int64
	for _, l := range r.ArrivalProducts {
		if l.ConditionID != nil {
			ids = append(ids, *l.ConditionID)
		}
	}
	return ids
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
