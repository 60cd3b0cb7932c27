package masterdata

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/odyssey-erp/receiving/internal/platform/httpx"
	"github.com/odyssey-erp/receiving/internal/shared"
)

const maxSearchRunes = 100

// LookupRequest creates or renames a dictionary row.
type LookupRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// CreateSupplierRequest is the body of supplier create.
type CreateSupplierRequest struct {
	Name          string `json:"name" validate:"required,max=200"`
	ContactPerson string `json:"contact_person" validate:"required,max=200"`
	Phone         string `json:"phone" validate:"required,max=50"`
	Email         string `json:"email" validate:"required,email,max=255"`
	Address       string `json:"address" validate:"required"`
}

// UpdateSupplierRequest patches the supplied fields only.
type UpdateSupplierRequest struct {
	Name          *string `json:"name" validate:"omitempty,min=1,max=200"`
	ContactPerson *string `json:"contact_person" validate:"omitempty,min=1,max=200"`
	Phone         *string `json:"phone" validate:"omitempty,min=1,max=50"`
	Email         *string `json:"email" validate:"omitempty,email,max=255"`
	Address       *string `json:"address" validate:"omitempty,min=1"`
}

// CreateProductRequest is the body of product create. TSKU and barcode are
// generated.
type CreateProductRequest struct {
	Name       string `json:"name" validate:"required,max=100"`
	BrandID    int64  `json:"brand_id" validate:"required,gt=0"`
	CategoryID int64  `json:"category_id" validate:"required,gt=0"`
	SizeID     int64  `json:"size_id" validate:"required,gt=0"`
	ColorID    int64  `json:"color_id" validate:"required,gt=0"`
	StyleID    int64  `json:"style_id" validate:"required,gt=0"`
}

// UpdateProductRequest patches the supplied fields only.
type UpdateProductRequest struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=100"`
	BrandID    *int64  `json:"brand_id" validate:"omitempty,gt=0"`
	CategoryID *int64  `json:"category_id" validate:"omitempty,gt=0"`
	SizeID     *int64  `json:"size_id" validate:"omitempty,gt=0"`
	ColorID    *int64  `json:"color_id" validate:"omitempty,gt=0"`
	StyleID    *int64  `json:"style_id" validate:"omitempty,gt=0"`
}

// DeleteManyRequest names rows by id.
type DeleteManyRequest struct {
	IDs []int64 `json:"ids" validate:"required,min=1,dive,gt=0"`
}

// DeleteManyProductsRequest names products by barcode.
type DeleteManyProductsRequest struct {
	Barcodes []string `json:"barcodes" validate:"required,min=1,dive,required"`
}

// DeleteResult reports which keys were removed.
type DeleteResult struct {
	Deleted any `json:"deleted"`
	Count   int `json:"count"`
}

// ListFilters is the shared search/order/page window.
type ListFilters struct {
	Search     string
	Descending bool
	Page       shared.PageParams
}

// ProductFilters narrows product listings by attribute ids.
type ProductFilters struct {
	ListFilters
	BrandID    *int64
	CategoryID *int64
	SizeID     *int64
	ColorID    *int64
	StyleID    *int64
}

// ListResult is a page of items.
type ListResult[T any] struct {
	Items      []T               `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

// ParseListFilters reads search, order and page params.
func ParseListFilters(q url.Values) ListFilters {
	search := strings.TrimSpace(q.Get("search"))
	if runes := []rune(search); len(runes) > maxSearchRunes {
		search = string(runes[:maxSearchRunes])
	}
	return ListFilters{
		Search:     search,
		Descending: strings.EqualFold(q.Get("order"), "desc"),
		Page:       shared.ParsePageParams(q),
	}
}

// ParseProductFilters adds the attribute id filters.
func ParseProductFilters(q url.Values) (ProductFilters, error) {
	f := ProductFilters{ListFilters: ParseListFilters(q)}
	var fields []httpx.FieldError
	for _, p := range []struct {
		key string
		dst **int64
	}{
		{"brand", &f.BrandID},
		{"category", &f.CategoryID},
		{"size", &f.SizeID},
		{"color", &f.ColorID},
		{"style", &f.StyleID},
	} {
		raw := q.Get(p.key)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			fields = append(fields, httpx.FieldError{Field: p.key, Message: "must be a positive integer"})
			continue
		}
		*p.dst = &id
	}
	if len(fields) > 0 {
		return ProductFilters{}, &httpx.ValidationError{Fields: fields}
	}
	return f, nil
}

// Updates lists the columns a supplier patch touches.
func (r UpdateSupplierRequest) Updates() map[string]any {
	out := map[string]any{}
	if r.Name != nil {
		out["name"] = strings.TrimSpace(*r.Name)
	}
	if r.ContactPerson != nil {
		out["contact_person"] = *r.ContactPerson
	}
	if r.Phone != nil {
		out["phone"] = *r.Phone
	}
	if r.Email != nil {
		out["email"] = strings.ToLower(strings.TrimSpace(*r.Email))
	}
	if r.Address != nil {
		out["address"] = *r.Address
	}
	return out
}

// Updates lists the columns a product patch touches.
func (r UpdateProductRequest) Updates() map[string]any {
	out := map[string]any{}
	if r.Name != nil {
		out["name"] = strings.TrimSpace(*r.Name)
	}
	if r.BrandID != nil {
		out["brand_id"] = *r.BrandID
	}
	if r.CategoryID != nil {
		out["category_id"] = *r.CategoryID
	}
	if r.SizeID != nil {
		out["size_id"] = *r.SizeID
	}
	if r.ColorID != nil {
		out["color_id"] = *r.ColorID
	}
	if r.StyleID != nil {
		out["style_id"] = *r.StyleID
	}
	return out
}
