package masterdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/odyssey-erp/receiving/internal/shared"
)

// Invalidator drops cached reference counts after a mutation.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service implements reference data CRUD.
type Service struct {
	repo        Repository
	logger      *slog.Logger
	barcodes    *BarcodeGenerator
	invalidator Invalidator
}

// NewService constructs the service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, barcodes: NewBarcodeGenerator()}
}

// SetInvalidator wires the statistics cache.
func (s *Service) SetInvalidator(i Invalidator) { s.invalidator = i }

// ListLookups returns a page of one dictionary.
func (s *Service) ListLookups(ctx context.Context, kind Kind, f ListFilters) (*ListResult[Lookup], error) {
	f.Page = normalizePage(f.Page)
	items, total, err := s.repo.ListLookups(ctx, kind, f)
	if err != nil {
		return nil, err
	}
	return &ListResult[Lookup]{Items: items, Pagination: shared.NewPagination(f.Page, total)}, nil
}

// GetLookup returns one dictionary row.
func (s *Service) GetLookup(ctx context.Context, kind Kind, id int64) (*Lookup, error) {
	l, err := s.repo.GetLookup(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CreateLookup inserts a row; a duplicate name is a conflict.
func (s *Service) CreateLookup(ctx context.Context, kind Kind, req LookupRequest) (*Lookup, error) {
	req.Name = strings.TrimSpace(req.Name)
	l, err := s.repo.CreateLookup(ctx, kind, req)
	if err != nil {
		return nil, err
	}
	s.bump(ctx)
	return &l, nil
}

// UpdateLookup renames a row.
func (s *Service) UpdateLookup(ctx context.Context, kind Kind, id int64, req LookupRequest) (*Lookup, error) {
	req.Name = strings.TrimSpace(req.Name)
	l, err := s.repo.UpdateLookup(ctx, kind, id, req)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// DeleteLookup removes one row.
func (s *Service) DeleteLookup(ctx context.Context, kind Kind, id int64) (*DeleteResult, error) {
	n, err := s.repo.DeleteLookups(ctx, kind, []int64{id})
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrLookupNotFound
	}
	s.bump(ctx)
	return &DeleteResult{Deleted: []int64{id}, Count: 1}, nil
}

// DeleteLookups removes every listed row that exists.
func (s *Service) DeleteLookups(ctx context.Context, kind Kind, ids []int64) (*DeleteResult, error) {
	ids = uniqueInts(ids)
	n, err := s.repo.DeleteLookups(ctx, kind, ids)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		s.bump(ctx)
	}
	return &DeleteResult{Deleted: ids, Count: int(n)}, nil
}

// ListSuppliers returns a page of suppliers.
func (s *Service) ListSuppliers(ctx context.Context, f ListFilters) (*ListResult[Supplier], error) {
	f.Page = normalizePage(f.Page)
	items, total, err := s.repo.ListSuppliers(ctx, f)
	if err != nil {
		return nil, err
	}
	return &ListResult[Supplier]{Items: items, Pagination: shared.NewPagination(f.Page, total)}, nil
}

// GetSupplier returns one supplier.
func (s *Service) GetSupplier(ctx context.Context, id int64) (*Supplier, error) {
	sup, err := s.repo.GetSupplier(ctx, id)
	if err != nil {
		return nil, err
	}
	return &sup, nil
}

// CreateSupplier inserts a supplier.
func (s *Service) CreateSupplier(ctx context.Context, req CreateSupplierRequest) (*Supplier, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	sup, err := s.repo.CreateSupplier(ctx, req)
	if err != nil {
		return nil, err
	}
	s.bump(ctx)
	return &sup, nil
}

// UpdateSupplier patches the supplied fields.
func (s *Service) UpdateSupplier(ctx context.Context, id int64, req UpdateSupplierRequest) (*Supplier, error) {
	updates := req.Updates()
	if len(updates) == 0 {
		return nil, ErrEmptyUpdate
	}
	sup, err := s.repo.UpdateSupplier(ctx, id, updates)
	if err != nil {
		return nil, err
	}
	return &sup, nil
}

// DeleteSupplier removes one supplier. Suppliers with arrivals are in use.
func (s *Service) DeleteSupplier(ctx context.Context, id int64) (*DeleteResult, error) {
	n, err := s.repo.DeleteSuppliers(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrSupplierNotFound
	}
	s.bump(ctx)
	return &DeleteResult{Deleted: []int64{id}, Count: 1}, nil
}

// DeleteSuppliers removes every listed supplier that exists.
func (s *Service) DeleteSuppliers(ctx context.Context, ids []int64) (*DeleteResult, error) {
	ids = uniqueInts(ids)
	n, err := s.repo.DeleteSuppliers(ctx, ids)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		s.bump(ctx)
	}
	return &DeleteResult{Deleted: ids, Count: int(n)}, nil
}

// ListProducts returns a page of products with resolved attributes.
func (s *Service) ListProducts(ctx context.Context, f ProductFilters) (*ListResult[Product], error) {
	f.Page = normalizePage(f.Page)
	items, total, err := s.repo.ListProducts(ctx, f)
	if err != nil {
		return nil, err
	}
	return &ListResult[Product]{Items: items, Pagination: shared.NewPagination(f.Page, total)}, nil
}

// GetProduct returns one product by barcode.
func (s *Service) GetProduct(ctx context.Context, barcode string) (*Product, error) {
	p, err := s.repo.GetProduct(ctx, barcode)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProduct allocates a TSKU and barcode and inserts the product.
func (s *Service) CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error) {
	for _, ref := range []struct {
		kind Kind
		id   int64
	}{{KindSizes, req.SizeID}, {KindColors, req.ColorID}, {KindStyles, req.StyleID}} {
		if _, err := s.repo.LookupName(ctx, ref.kind, ref.id); err != nil {
			return nil, err
		}
	}
	brand, err := s.repo.LookupName(ctx, KindBrands, req.BrandID)
	if err != nil {
		return nil, err
	}
	category, err := s.repo.LookupName(ctx, KindCategories, req.CategoryID)
	if err != nil {
		return nil, err
	}
	last, err := s.repo.LastTSKUSequence(ctx, TSKUPrefix(brand, category))
	if err != nil {
		return nil, err
	}

	row := NewProduct{
		Name:       strings.TrimSpace(req.Name),
		BrandID:    req.BrandID,
		CategoryID: req.CategoryID,
		SizeID:     req.SizeID,
		ColorID:    req.ColorID,
		StyleID:    req.StyleID,
	}
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		row.TSKU = TSKU(brand, category, last+1+attempt)
		row.Barcode = s.barcodes.Next()
		err = s.repo.CreateProduct(ctx, row)
		if errors.Is(err, errCodeTaken) {
			s.logger.Debug("product code collision", slog.String("tsku", row.TSKU), slog.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, err
		}
		s.bump(ctx)
		return s.GetProduct(ctx, row.Barcode)
	}
	return nil, fmt.Errorf("%w after %d attempts", ErrCodesExhausted, maxCodeAttempts)
}

// UpdateProduct patches the supplied fields of the product with barcode.
func (s *Service) UpdateProduct(ctx context.Context, barcode string, req UpdateProductRequest) (*Product, error) {
	updates := req.Updates()
	if len(updates) == 0 {
		return nil, ErrEmptyUpdate
	}
	if err := s.repo.UpdateProduct(ctx, barcode, updates); err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, barcode)
}

// DeleteProduct removes one product. Products on arrivals are in use.
func (s *Service) DeleteProduct(ctx context.Context, barcode string) (*DeleteResult, error) {
	n, err := s.repo.DeleteProducts(ctx, []string{barcode})
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrProductNotFound
	}
	s.bump(ctx)
	return &DeleteResult{Deleted: []string{barcode}, Count: 1}, nil
}

// DeleteProducts removes the listed products; none matching is not found.
func (s *Service) DeleteProducts(ctx context.Context, barcodes []string) (*DeleteResult, error) {
	n, err := s.repo.DeleteProducts(ctx, barcodes)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrProductNotFound
	}
	s.bump(ctx)
	return &DeleteResult{Deleted: barcodes, Count: int(n)}, nil
}

func (s *Service) bump(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Bump(ctx); err != nil {
		s.logger.Warn("statistics invalidate", slog.Any("error", err))
	}
}

func normalizePage(p shared.PageParams) shared.PageParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.ItemsPerPage < 1 {
		p.ItemsPerPage = shared.ParsePageParams(nil).ItemsPerPage
	}
	return p
}

func uniqueInts(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
