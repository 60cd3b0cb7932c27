package masterdata

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/odyssey-erp/receiving/internal/platform/httpx"
)

// memoryRepo is an in-process Repository for service and handler tests.
type memoryRepo struct {
	mu          sync.Mutex
	nextID      int64
	lookups     map[Kind]map[int64]Lookup
	suppliers   map[int64]Supplier
	products    map[string]NewProduct
	productIDs  map[string]int64
	inUse       map[string]bool
	takenTSKU   map[string]bool
	createCalls int
}

func newMemoryRepo() *memoryRepo {
	m := &memoryRepo{
		nextID:     100,
		lookups:    map[Kind]map[int64]Lookup{},
		suppliers:  map[int64]Supplier{},
		products:   map[string]NewProduct{},
		productIDs: map[string]int64{},
		inUse:      map[string]bool{},
		takenTSKU:  map[string]bool{},
	}
	for _, k := range Kinds {
		m.lookups[k] = map[int64]Lookup{}
	}
	return m
}

func (m *memoryRepo) seedLookup(kind Kind, id int64, name string) {
	m.lookups[kind][id] = Lookup{ID: id, Name: name}
}

func (m *memoryRepo) ListLookups(_ context.Context, kind Kind, f ListFilters) ([]Lookup, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.lookups[kind]
	if !ok {
		return nil, 0, ErrUnknownKind
	}
	items := make([]Lookup, 0)
	for _, l := range rows {
		if f.Search == "" || strings.Contains(strings.ToLower(l.Name), strings.ToLower(f.Search)) {
			items = append(items, l)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if f.Descending {
			return items[i].Name > items[j].Name
		}
		return items[i].Name < items[j].Name
	})
	total := len(items)
	start := min(f.Page.Offset(), total)
	end := min(start+f.Page.ItemsPerPage, total)
	return items[start:end], total, nil
}

func (m *memoryRepo) GetLookup(_ context.Context, kind Kind, id int64) (Lookup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lookups[kind][id]
	if !ok {
		return Lookup{}, ErrLookupNotFound
	}
	return l, nil
}

func (m *memoryRepo) LookupName(_ context.Context, kind Kind, id int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lookups[kind][id]
	if !ok {
		return "", fmt.Errorf("%w: %s %d", ErrReferenceNotFound, kind, id)
	}
	return l.Name, nil
}

func (m *memoryRepo) CreateLookup(_ context.Context, kind Kind, req LookupRequest) (Lookup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.lookups[kind] {
		if l.Name == req.Name {
			return Lookup{}, fmt.Errorf("%w: %s name", httpx.ErrDuplicate, kind)
		}
	}
	m.nextID++
	l := Lookup{ID: m.nextID, Name: req.Name, Description: req.Description, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.lookups[kind][l.ID] = l
	return l, nil
}

func (m *memoryRepo) UpdateLookup(_ context.Context, kind Kind, id int64, req LookupRequest) (Lookup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lookups[kind][id]
	if !ok {
		return Lookup{}, ErrLookupNotFound
	}
	l.Name = req.Name
	m.lookups[kind][id] = l
	return l, nil
}

func (m *memoryRepo) DeleteLookups(_ context.Context, kind Kind, ids []int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if m.inUse[fmt.Sprintf("%s:%d", kind, id)] {
			return 0, ErrInUse
		}
	}
	var n int64
	for _, id := range ids {
		if _, ok := m.lookups[kind][id]; ok {
			delete(m.lookups[kind], id)
			n++
		}
	}
	return n, nil
}

func (m *memoryRepo) ListSuppliers(_ context.Context, f ListFilters) ([]Supplier, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]Supplier, 0, len(m.suppliers))
	for _, s := range m.suppliers {
		items = append(items, s)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, len(items), nil
}

func (m *memoryRepo) GetSupplier(_ context.Context, id int64) (Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suppliers[id]
	if !ok {
		return Supplier{}, ErrSupplierNotFound
	}
	return s, nil
}

func (m *memoryRepo) CreateSupplier(_ context.Context, req CreateSupplierRequest) (Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s := Supplier{ID: m.nextID, Name: req.Name, ContactPerson: &req.ContactPerson, Phone: &req.Phone, Email: &req.Email, Address: &req.Address}
	m.suppliers[s.ID] = s
	return s, nil
}

func (m *memoryRepo) UpdateSupplier(_ context.Context, id int64, updates map[string]any) (Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suppliers[id]
	if !ok {
		return Supplier{}, ErrSupplierNotFound
	}
	if v, ok := updates["name"].(string); ok {
		s.Name = v
	}
	if v, ok := updates["email"].(string); ok {
		s.Email = &v
	}
	m.suppliers[id] = s
	return s, nil
}

func (m *memoryRepo) DeleteSuppliers(_ context.Context, ids []int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		if m.inUse[fmt.Sprintf("supplier:%d", id)] {
			return 0, ErrInUse
		}
	}
	for _, id := range ids {
		if _, ok := m.suppliers[id]; ok {
			delete(m.suppliers, id)
			n++
		}
	}
	return n, nil
}

func (m *memoryRepo) product(barcode string) Product {
	p := m.products[barcode]
	brand := m.lookups[KindBrands][p.BrandID]
	category := m.lookups[KindCategories][p.CategoryID]
	return Product{
		ID:       m.productIDs[barcode],
		Name:     p.Name,
		TSKU:     p.TSKU,
		Barcode:  barcode,
		Brand:    &Ref{ID: brand.ID, Name: brand.Name},
		Category: Ref{ID: category.ID, Name: category.Name},
	}
}

func (m *memoryRepo) ListProducts(_ context.Context, f ProductFilters) ([]Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]Product, 0)
	for code, p := range m.products {
		if f.CategoryID != nil && p.CategoryID != *f.CategoryID {
			continue
		}
		items = append(items, m.product(code))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].TSKU < items[j].TSKU })
	return items, len(items), nil
}

func (m *memoryRepo) GetProduct(_ context.Context, barcode string) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[barcode]; !ok {
		return Product{}, ErrProductNotFound
	}
	return m.product(barcode), nil
}

func (m *memoryRepo) LastTSKUSequence(_ context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	last := 0
	for _, p := range m.products {
		if !strings.HasPrefix(p.TSKU, prefix) {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(p.TSKU, prefix)); err == nil && n > last {
			last = n
		}
	}
	return last, nil
}

func (m *memoryRepo) CreateProduct(_ context.Context, p NewProduct) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.takenTSKU[p.TSKU] {
		return errCodeTaken
	}
	if _, ok := m.products[p.Barcode]; ok {
		return errCodeTaken
	}
	m.takenTSKU[p.TSKU] = true
	m.nextID++
	m.products[p.Barcode] = p
	m.productIDs[p.Barcode] = m.nextID
	return nil
}

func (m *memoryRepo) UpdateProduct(_ context.Context, barcode string, updates map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[barcode]
	if !ok {
		return ErrProductNotFound
	}
	if v, ok := updates["name"].(string); ok {
		p.Name = v
	}
	if v, ok := updates["brand_id"].(int64); ok {
		if _, exists := m.lookups[KindBrands][v]; !exists {
			return ErrReferenceNotFound
		}
		p.BrandID = v
	}
	m.products[barcode] = p
	return nil
}

func (m *memoryRepo) DeleteProducts(_ context.Context, barcodes []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, code := range barcodes {
		if m.inUse["product:"+code] {
			return 0, ErrInUse
		}
	}
	for _, code := range barcodes {
		if p, ok := m.products[code]; ok {
			delete(m.takenTSKU, p.TSKU)
			delete(m.products, code)
			n++
		}
	}
	return n, nil
}
