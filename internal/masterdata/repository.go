package masterdata

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/receiving/internal/platform/db"
)

// Repository persists reference data.
type Repository interface {
	ListLookups(ctx context.Context, kind Kind, f ListFilters) ([]Lookup, int, error)
	GetLookup(ctx context.Context, kind Kind, id int64) (Lookup, error)
	LookupName(ctx context.Context, kind Kind, id int64) (string, error)
	CreateLookup(ctx context.Context, kind Kind, req LookupRequest) (Lookup, error)
	UpdateLookup(ctx context.Context, kind Kind, id int64, req LookupRequest) (Lookup, error)
	DeleteLookups(ctx context.Context, kind Kind, ids []int64) (int64, error)

	ListSuppliers(ctx context.Context, f ListFilters) ([]Supplier, int, error)
	GetSupplier(ctx context.Context, id int64) (Supplier, error)
	CreateSupplier(ctx context.Context, req CreateSupplierRequest) (Supplier, error)
	UpdateSupplier(ctx context.Context, id int64, updates map[string]any) (Supplier, error)
	DeleteSuppliers(ctx context.Context, ids []int64) (int64, error)

	ListProducts(ctx context.Context, f ProductFilters) ([]Product, int, error)
	GetProduct(ctx context.Context, barcode string) (Product, error)
	// LastTSKUSequence returns the highest numeric suffix among TSKUs
	// starting with prefix, or zero.
	LastTSKUSequence(ctx context.Context, prefix string) (int, error)
	CreateProduct(ctx context.Context, p NewProduct) error
	UpdateProduct(ctx context.Context, barcode string, updates map[string]any) error
	DeleteProducts(ctx context.Context, barcodes []string) (int64, error)
}

// errCodeTaken reports a TSKU or barcode collision on insert.
var errCodeTaken = errors.New("masterdata: product code taken")

type repo struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new master data repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repo{pool: pool}
}

// where accumulates positional predicates.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(format string, v any) {
	w.args = append(w.args, v)
	w.clauses = append(w.clauses, fmt.Sprintf(format, len(w.args)))
}

// addSearch ORs an ILIKE over cols with one shared parameter.
func (w *where) addSearch(search string, cols ...string) {
	if search == "" {
		return
	}
	w.args = append(w.args, "%"+escapeLike(search)+"%")
	n := len(w.args)
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprintf("%s ILIKE $%d", c, n)
	}
	w.clauses = append(w.clauses, "("+strings.Join(parts, " OR ")+")")
}

func (w *where) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func direction(desc bool) string {
	if desc {
		return "DESC"
	}
	return "ASC"
}

func (r *repo) count(ctx context.Context, from string, w *where) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+from+w.sql(), w.args...).Scan(&total)
	return total, err
}

// Lookup operations

func (r *repo) lookupColumns(t lookupTable) string {
	desc := "NULL::text"
	if t.hasDescription {
		desc = "description"
	}
	return fmt.Sprintf("%s, name, %s, created_at, updated_at", t.idColumn, desc)
}

func scanLookup(row pgx.Row) (Lookup, error) {
	var l Lookup
	err := row.Scan(&l.ID, &l.Name, &l.Description, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

func (r *repo) ListLookups(ctx context.Context, kind Kind, f ListFilters) ([]Lookup, int, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, 0, err
	}
	w := &where{}
	w.addSearch(f.Search, "name")
	total, err := r.count(ctx, t.table, w)
	if err != nil {
		return nil, 0, err
	}
	args := append(append([]any{}, w.args...), f.Page.ItemsPerPage, f.Page.Offset())
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY name %s, %s LIMIT $%d OFFSET $%d",
		r.lookupColumns(t), t.table, w.sql(), direction(f.Descending), t.idColumn, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := make([]Lookup, 0)
	for rows.Next() {
		l, err := scanLookup(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, l)
	}
	return items, total, rows.Err()
}

func (r *repo) GetLookup(ctx context.Context, kind Kind, id int64) (Lookup, error) {
	t, err := tableFor(kind)
	if err != nil {
		return Lookup{}, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", r.lookupColumns(t), t.table, t.idColumn)
	l, err := scanLookup(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lookup{}, fmt.Errorf("%w: %s %d", ErrLookupNotFound, t.label, id)
	}
	return l, err
}

func (r *repo) LookupName(ctx context.Context, kind Kind, id int64) (string, error) {
	t, err := tableFor(kind)
	if err != nil {
		return "", err
	}
	var name string
	err = r.pool.QueryRow(ctx, fmt.Sprintf("SELECT name FROM %s WHERE %s = $1", t.table, t.idColumn), id).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: %s %d", ErrReferenceNotFound, t.label, id)
	}
	return name, err
}

func (r *repo) CreateLookup(ctx context.Context, kind Kind, req LookupRequest) (Lookup, error) {
	t, err := tableFor(kind)
	if err != nil {
		return Lookup{}, err
	}
	cols, vals, args := "name", "$1", []any{req.Name}
	if t.hasDescription {
		cols, vals, args = "name, description", "$1, $2", append(args, req.Description)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s", t.table, cols, vals, r.lookupColumns(t))
	l, err := scanLookup(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return Lookup{}, db.MapError(err)
	}
	return l, nil
}

func (r *repo) UpdateLookup(ctx context.Context, kind Kind, id int64, req LookupRequest) (Lookup, error) {
	t, err := tableFor(kind)
	if err != nil {
		return Lookup{}, err
	}
	set, args := "name = $2", []any{id, req.Name}
	if t.hasDescription && req.Description != nil {
		set, args = "name = $2, description = $3", append(args, *req.Description)
	}
	query := fmt.Sprintf("UPDATE %s SET %s, updated_at = NOW() WHERE %s = $1 RETURNING %s",
		t.table, set, t.idColumn, r.lookupColumns(t))
	l, err := scanLookup(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lookup{}, fmt.Errorf("%w: %s %d", ErrLookupNotFound, t.label, id)
	}
	if err != nil {
		return Lookup{}, db.MapError(err)
	}
	return l, nil
}

func (r *repo) DeleteLookups(ctx context.Context, kind Kind, ids []int64) (int64, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	tag, err := r.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = ANY($1)", t.table, t.idColumn), ids)
	if err != nil {
		return 0, mapDeleteError(err)
	}
	return tag.RowsAffected(), nil
}

// Supplier operations

const supplierColumns = `supplier_id, name, contact_person, phone, email, address, created_at, updated_at`

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Name, &s.ContactPerson, &s.Phone, &s.Email, &s.Address, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *repo) ListSuppliers(ctx context.Context, f ListFilters) ([]Supplier, int, error) {
	w := &where{}
	w.addSearch(f.Search, "name", "email", "phone", "contact_person", "address")
	total, err := r.count(ctx, "suppliers", w)
	if err != nil {
		return nil, 0, err
	}
	args := append(append([]any{}, w.args...), f.Page.ItemsPerPage, f.Page.Offset())
	query := fmt.Sprintf("SELECT %s FROM suppliers%s ORDER BY name %s, supplier_id LIMIT $%d OFFSET $%d",
		supplierColumns, w.sql(), direction(f.Descending), len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := make([]Supplier, 0)
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

func (r *repo) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	s, err := scanSupplier(r.pool.QueryRow(ctx, "SELECT "+supplierColumns+" FROM suppliers WHERE supplier_id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, ErrSupplierNotFound
	}
	return s, err
}

func (r *repo) CreateSupplier(ctx context.Context, req CreateSupplierRequest) (Supplier, error) {
	s, err := scanSupplier(r.pool.QueryRow(ctx, `INSERT INTO suppliers (name, contact_person, phone, email, address)
		VALUES ($1, $2, $3, $4, $5) RETURNING `+supplierColumns,
		req.Name, req.ContactPerson, req.Phone, req.Email, req.Address))
	if err != nil {
		return Supplier{}, db.MapError(err)
	}
	return s, nil
}

func (r *repo) UpdateSupplier(ctx context.Context, id int64, updates map[string]any) (Supplier, error) {
	set, args := setClause(updates, id)
	s, err := scanSupplier(r.pool.QueryRow(ctx,
		"UPDATE suppliers SET "+set+" WHERE supplier_id = $1 RETURNING "+supplierColumns, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, ErrSupplierNotFound
	}
	if err != nil {
		return Supplier{}, db.MapError(err)
	}
	return s, nil
}

func (r *repo) DeleteSuppliers(ctx context.Context, ids []int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM suppliers WHERE supplier_id = ANY($1)", ids)
	if err != nil {
		return 0, mapDeleteError(err)
	}
	return tag.RowsAffected(), nil
}

// Product operations

const productSelect = `SELECT p.product_id, p.name, p.tsku, COALESCE(p.barcode, ''),
		p.brand_id, b.name, p.category_id, c.name, p.size_id, s.name,
		p.color_id, co.name, p.style_id, st.name, p.created_at, p.updated_at
	FROM products p
	JOIN categories c ON c.category_id = p.category_id
	LEFT JOIN brands b ON b.brand_id = p.brand_id
	LEFT JOIN sizes s ON s.size_id = p.size_id
	LEFT JOIN colors co ON co.color_id = p.color_id
	LEFT JOIN styles st ON st.style_id = p.style_id`

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p                                         Product
		brandID, sizeID, colorID, styleID         *int64
		brandName, sizeName, colorName, styleName *string
	)
	err := row.Scan(&p.ID, &p.Name, &p.TSKU, &p.Barcode,
		&brandID, &brandName, &p.Category.ID, &p.Category.Name, &sizeID, &sizeName,
		&colorID, &colorName, &styleID, &styleName, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	p.Brand = ref(brandID, brandName)
	p.Size = ref(sizeID, sizeName)
	p.Color = ref(colorID, colorName)
	p.Style = ref(styleID, styleName)
	return p, nil
}

func ref(id *int64, name *string) *Ref {
	if id == nil {
		return nil
	}
	r := &Ref{ID: *id}
	if name != nil {
		r.Name = *name
	}
	return r
}

func (r *repo) ListProducts(ctx context.Context, f ProductFilters) ([]Product, int, error) {
	w := &where{}
	for _, c := range []struct {
		col string
		id  *int64
	}{
		{"p.brand_id", f.BrandID},
		{"p.category_id", f.CategoryID},
		{"p.size_id", f.SizeID},
		{"p.color_id", f.ColorID},
		{"p.style_id", f.StyleID},
	} {
		if c.id != nil {
			w.add(c.col+" = $%d", *c.id)
		}
	}
	w.addSearch(f.Search, "p.tsku", "p.barcode", "p.name")
	total, err := r.count(ctx, "products p", w)
	if err != nil {
		return nil, 0, err
	}
	args := append(append([]any{}, w.args...), f.Page.ItemsPerPage, f.Page.Offset())
	query := fmt.Sprintf("%s%s ORDER BY p.name %s, p.product_id LIMIT $%d OFFSET $%d",
		productSelect, w.sql(), direction(f.Descending), len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repo) GetProduct(ctx context.Context, barcode string) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, productSelect+" WHERE p.barcode = $1", barcode))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	return p, err
}

func (r *repo) LastTSKUSequence(ctx context.Context, prefix string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(MAX(substring(tsku from '[0-9]+$')::int), 0)
		FROM products WHERE tsku LIKE $1`, escapeLike(prefix)+"%").Scan(&n)
	return n, err
}

func (r *repo) CreateProduct(ctx context.Context, p NewProduct) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO products (name, tsku, barcode, brand_id, category_id, size_id, color_id, style_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.Name, p.TSKU, p.Barcode, p.BrandID, p.CategoryID, p.SizeID, p.ColorID, p.StyleID)
	if db.IsUniqueViolation(err) {
		return errCodeTaken
	}
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (r *repo) UpdateProduct(ctx context.Context, barcode string, updates map[string]any) error {
	set, args := setClause(updates, barcode)
	tag, err := r.pool.Exec(ctx, "UPDATE products SET "+set+" WHERE barcode = $1", args...)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *repo) DeleteProducts(ctx context.Context, barcodes []string) (int64, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM products WHERE barcode = ANY($1)", barcodes)
	if err != nil {
		return 0, mapDeleteError(err)
	}
	return tag.RowsAffected(), nil
}

// setClause renders "col = $n" pairs in key order after the $1 key arg.
func setClause(updates map[string]any, key any) (string, []any) {
	cols := make([]string, 0, len(updates))
	for c := range updates {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	args := []any{key}
	parts := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		args = append(args, updates[c])
		parts = append(parts, fmt.Sprintf("%s = $%d", c, len(args)))
	}
	parts = append(parts, "updated_at = NOW()")
	return strings.Join(parts, ", "), args
}

// mapWriteError reports a dangling foreign key as a missing reference.
func mapWriteError(err error) error {
	if db.IsForeignKeyViolation(err) {
		return fmt.Errorf("%w: %v", ErrReferenceNotFound, err)
	}
	return db.MapError(err)
}

// mapDeleteError reports a row still referenced elsewhere as in use.
func mapDeleteError(err error) error {
	if db.IsForeignKeyViolation(err) {
		return fmt.Errorf("%w: %v", ErrInUse, err)
	}
	return db.MapError(err)
}
