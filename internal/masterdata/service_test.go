package masterdata

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/receiving/internal/platform/httpx"
	"github.com/odyssey-erp/receiving/internal/rbac"
	"github.com/odyssey-erp/receiving/internal/shared"
)

type countingInvalidator struct{ bumps int }

func (c *countingInvalidator) Bump(context.Context) error {
	c.bumps++
	return nil
}

func newTestService(t *testing.T) (*Service, *memoryRepo, *countingInvalidator) {
	t.Helper()
	repo := newMemoryRepo()
	repo.seedLookup(KindBrands, 1, "Northwind")
	repo.seedLookup(KindCategories, 1, "Apparel")
	repo.seedLookup(KindSizes, 1, "M")
	repo.seedLookup(KindColors, 1, "Black")
	repo.seedLookup(KindStyles, 1, "Casual")
	svc := NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
	inv := &countingInvalidator{}
	svc.SetInvalidator(inv)
	return svc, repo, inv
}

func validProduct() CreateProductRequest {
	return CreateProductRequest{Name: " Crew Tee ", BrandID: 1, CategoryID: 1, SizeID: 1, ColorID: 1, StyleID: 1}
}

func TestLookupLifecycle(t *testing.T) {
	svc, repo, inv := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateLookup(ctx, KindColors, LookupRequest{Name: "  Navy "})
	require.NoError(t, err)
	require.Equal(t, "Navy", created.Name)
	require.Equal(t, 1, inv.bumps)

	_, err = svc.CreateLookup(ctx, KindColors, LookupRequest{Name: "Navy"})
	require.ErrorIs(t, err, httpx.ErrDuplicate)

	page, err := svc.ListLookups(ctx, KindColors, ListFilters{Search: "av"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, 1, page.Pagination.TotalItems)
	require.Equal(t, 10, page.Pagination.ItemsPerPage)

	renamed, err := svc.UpdateLookup(ctx, KindColors, created.ID, LookupRequest{Name: "Midnight"})
	require.NoError(t, err)
	require.Equal(t, "Midnight", renamed.Name)

	repo.inUse["colors:1"] = true
	_, err = svc.DeleteLookup(ctx, KindColors, 1)
	require.ErrorIs(t, err, httpx.ErrConflict)

	res, err := svc.DeleteLookup(ctx, KindColors, created.ID)
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)

	_, err = svc.DeleteLookup(ctx, KindColors, created.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestDeleteManyLookupsDeduplicates(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.seedLookup(KindSizes, 2, "L")

	res, err := svc.DeleteLookups(context.Background(), KindSizes, []int64{2, 2, 99})
	require.NoError(t, err)
	require.Equal(t, []int64{2, 99}, res.Deleted)
	require.Equal(t, 1, res.Count)
}

func TestUnknownKind(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.ListLookups(context.Background(), Kind("units"), ListFilters{})
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestSupplierCreateAndPatch(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	sup, err := svc.CreateSupplier(ctx, CreateSupplierRequest{
		Name: " Harbor ", ContactPerson: "Ana", Phone: "555", Email: " Ana@Harbor.COM ", Address: "Pier 4",
	})
	require.NoError(t, err)
	require.Equal(t, "Harbor", sup.Name)
	require.Equal(t, "ana@harbor.com", *sup.Email)

	_, err = svc.UpdateSupplier(ctx, sup.ID, UpdateSupplierRequest{})
	require.ErrorIs(t, err, ErrEmptyUpdate)
	require.ErrorIs(t, err, httpx.ErrValidation)

	name := "Harbor Textiles"
	updated, err := svc.UpdateSupplier(ctx, sup.ID, UpdateSupplierRequest{Name: &name})
	require.NoError(t, err)
	require.Equal(t, name, updated.Name)

	repo.inUse["supplier:"+strconv.FormatInt(sup.ID, 10)] = true
	_, err = svc.DeleteSupplier(ctx, sup.ID)
	require.ErrorIs(t, err, ErrInUse)
}

func TestCreateProductGeneratesCodes(t *testing.T) {
	svc, _, inv := newTestService(t)

	p, err := svc.CreateProduct(context.Background(), validProduct())
	require.NoError(t, err)
	require.Equal(t, "Crew Tee", p.Name)
	require.Equal(t, "NOR-AP-000001", p.TSKU)
	require.True(t, ValidEAN13(p.Barcode))
	require.Equal(t, "Northwind", p.Brand.Name)
	require.Equal(t, 1, inv.bumps)

	second, err := svc.CreateProduct(context.Background(), validProduct())
	require.NoError(t, err)
	require.Equal(t, "NOR-AP-000002", second.TSKU)
}

func TestCreateProductRetriesCollisions(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.takenTSKU["NOR-AP-000001"] = true

	p, err := svc.CreateProduct(context.Background(), validProduct())
	require.NoError(t, err)
	require.Equal(t, "NOR-AP-000002", p.TSKU)
	require.Equal(t, 2, repo.createCalls)
}

func TestCreateProductGivesUpAfterBoundedAttempts(t *testing.T) {
	svc, repo, _ := newTestService(t)
	for i := 1; i <= maxCodeAttempts; i++ {
		repo.takenTSKU[TSKU("Northwind", "Apparel", i)] = true
	}

	_, err := svc.CreateProduct(context.Background(), validProduct())
	require.ErrorIs(t, err, ErrCodesExhausted)
	require.Equal(t, maxCodeAttempts, repo.createCalls)
}

func TestCreateProductAfterDeletesContinuesFromHighestCode(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	seq := 0
	svc.barcodes = &BarcodeGenerator{
		now:    func() time.Time { return time.UnixMilli(1767225600123) },
		random: func() int { seq++; return seq },
	}

	var barcodes []string
	for i := 0; i < 10; i++ {
		p, err := svc.CreateProduct(ctx, validProduct())
		require.NoError(t, err)
		barcodes = append(barcodes, p.Barcode)
	}
	_, err := svc.DeleteProducts(ctx, barcodes[:5])
	require.NoError(t, err)

	p, err := svc.CreateProduct(ctx, validProduct())
	require.NoError(t, err)
	require.Equal(t, "NOR-AP-000011", p.TSKU)
}

func TestCreateProductRequiresReferences(t *testing.T) {
	svc, repo, _ := newTestService(t)
	req := validProduct()
	req.StyleID = 9

	_, err := svc.CreateProduct(context.Background(), req)
	require.ErrorIs(t, err, ErrReferenceNotFound)
	require.Zero(t, repo.createCalls)
}

func TestProductUpdateAndDelete(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	p, err := svc.CreateProduct(ctx, validProduct())
	require.NoError(t, err)

	name := "Crew Tee v2"
	updated, err := svc.UpdateProduct(ctx, p.Barcode, UpdateProductRequest{Name: &name})
	require.NoError(t, err)
	require.Equal(t, name, updated.Name)

	missingBrand := int64(77)
	_, err = svc.UpdateProduct(ctx, p.Barcode, UpdateProductRequest{BrandID: &missingBrand})
	require.ErrorIs(t, err, httpx.ErrNotFound)

	_, err = svc.DeleteProducts(ctx, []string{"0000000000000"})
	require.ErrorIs(t, err, ErrProductNotFound)

	res, err := svc.DeleteProduct(ctx, p.Barcode)
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)
}

// HTTP

func asRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.ContextWithPrincipal(r.Context(), shared.Principal{UserID: 1, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newTestRouter(t *testing.T, role string) (http.Handler, *memoryRepo) {
	t.Helper()
	svc, repo, _ := newTestService(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	responder := httpx.Responder{Logger: logger}
	h := NewHandler(logger, svc, responder, rbac.Middleware{Logger: logger, Responder: responder})
	r := chi.NewRouter()
	r.Use(asRole(role))
	h.MountRoutes(r)
	return r, repo
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, target, &buf))
	return rr
}

func TestHandlerLookupRoutes(t *testing.T) {
	admin, _ := newTestRouter(t, shared.RoleAdmin)

	rr := do(t, admin, http.MethodPost, "/brands", LookupRequest{Name: "Contoso"})
	require.Equal(t, http.StatusCreated, rr.Code)
	var created Lookup
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	rr = do(t, admin, http.MethodGet, "/brands?search=con", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var page ListResult[Lookup]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)

	rr = do(t, admin, http.MethodPost, "/brands", LookupRequest{})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, admin, http.MethodGet, "/brands/abc", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, admin, http.MethodDelete, "/brands", DeleteManyRequest{IDs: []int64{created.ID}})
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestHandlerUserCannotCreateOrDelete(t *testing.T) {
	user, _ := newTestRouter(t, shared.RoleUser)

	rr := do(t, user, http.MethodPost, "/conditions", LookupRequest{Name: "Damaged"})
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, user, http.MethodDelete, "/suppliers/1", nil)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, user, http.MethodPut, "/sizes/1", LookupRequest{Name: "Medium"})
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestHandlerProductFlow(t *testing.T) {
	admin, _ := newTestRouter(t, shared.RoleAdmin)

	rr := do(t, admin, http.MethodPost, "/products", validProduct())
	require.Equal(t, http.StatusCreated, rr.Code)
	var p Product
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))

	rr = do(t, admin, http.MethodGet, "/products/"+p.Barcode, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, admin, http.MethodGet, "/products?category=x", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, admin, http.MethodGet, "/products?category=1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var page ListResult[Product]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)

	rr = do(t, admin, http.MethodPost, "/products", CreateProductRequest{Name: "x"})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, admin, http.MethodDelete, "/products", DeleteManyProductsRequest{Barcodes: []string{p.Barcode}})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, admin, http.MethodGet, "/products/"+p.Barcode, nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerSupplierValidation(t *testing.T) {
	admin, _ := newTestRouter(t, shared.RoleAdmin)
	rr := do(t, admin, http.MethodPost, "/suppliers", CreateSupplierRequest{Name: "X", ContactPerson: "Y", Phone: "1", Email: "nope", Address: "Z"})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	require.Len(t, problem.Errors, 1)
	require.Equal(t, "email", problem.Errors[0].Field)
}
