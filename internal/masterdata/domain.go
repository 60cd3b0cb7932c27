// Package masterdata manages the reference data arrivals point at: the
// product attribute dictionaries, conditions, suppliers and products.
package masterdata

import (
	"time"
)

// Kind names a simple name-keyed dictionary table.
type Kind string

const (
	KindBrands     Kind = "brands"
	KindCategories Kind = "categories"
	KindColors     Kind = "colors"
	KindSizes      Kind = "sizes"
	KindStyles     Kind = "styles"
	KindConditions Kind = "conditions"
)

// Kinds lists every dictionary in route order.
var Kinds = []Kind{KindBrands, KindCategories, KindColors, KindSizes, KindStyles, KindConditions}

// lookupTable describes the physical table behind a Kind.
type lookupTable struct {
	table          string
	idColumn       string
	label          string
	hasDescription bool
}

var lookupTables = map[Kind]lookupTable{
	KindBrands:     {table: "brands", idColumn: "brand_id", label: "brand"},
	KindCategories: {table: "categories", idColumn: "category_id", label: "category", hasDescription: true},
	KindColors:     {table: "colors", idColumn: "color_id", label: "color"},
	KindSizes:      {table: "sizes", idColumn: "size_id", label: "size"},
	KindStyles:     {table: "styles", idColumn: "style_id", label: "style"},
	KindConditions: {table: "conditions", idColumn: "condition_id", label: "condition", hasDescription: true},
}

func tableFor(kind Kind) (lookupTable, error) {
	t, ok := lookupTables[kind]
	if !ok {
		return lookupTable{}, ErrUnknownKind
	}
	return t, nil
}

// Lookup is one dictionary row.
type Lookup struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Supplier is a shipment origin.
type Supplier struct {
	ID            int64     `json:"supplier_id"`
	Name          string    `json:"name"`
	ContactPerson *string   `json:"contact_person"`
	Phone         *string   `json:"phone"`
	Email         *string   `json:"email"`
	Address       *string   `json:"address"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Ref is an embedded id/name pair.
type Ref struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Product is a catalog item with its resolved attributes.
type Product struct {
	ID        int64     `json:"product_id"`
	Name      string    `json:"name"`
	TSKU      string    `json:"tsku"`
	Barcode   string    `json:"barcode"`
	Brand     *Ref      `json:"brand"`
	Category  Ref       `json:"category"`
	Size      *Ref      `json:"size"`
	Color     *Ref      `json:"color"`
	Style     *Ref      `json:"style"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewProduct is the row written on create.
type NewProduct struct {
	Name       string
	TSKU       string
	Barcode    string
	BrandID    int64
	CategoryID int64
	SizeID     int64
	ColorID    int64
	StyleID    int64
}
