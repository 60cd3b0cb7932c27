package arrivals

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/receiving/internal/catalog"
	"github.com/odyssey-erp/receiving/internal/platform/db"
)

// Repository defines the interface for arrival persistence.
type Repository interface {
	// Read operations
	GetByNumber(ctx context.Context, number string) (*Arrival, error)
	GetDetail(ctx context.Context, number string) (*Detail, error)
	Lines(ctx context.Context, arrivalID int64) ([]LineDetail, error)
	List(ctx context.Context, f ListFilters) ([]Summary, int, error)

	// Write operations (transactional)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the reads and writes a single state change needs.
// Lock methods take row locks held until the transaction ends.
type TxRepository interface {
	LockByNumber(ctx context.Context, number string) (*Arrival, error)
	LockByNumbers(ctx context.Context, numbers []string) ([]Arrival, error)
	LockLine(ctx context.Context, arrivalID, productID int64) (*Line, error)
	NumberExists(ctx context.Context, number string) (bool, error)
	NextNumberSequence(ctx context.Context) (int64, error)

	SupplierExists(ctx context.Context, id int64) (bool, error)
	ConditionExists(ctx context.Context, id int64) (bool, error)
	MissingProducts(ctx context.Context, ids []int64) ([]int64, error)
	MissingConditions(ctx context.Context, ids []int64) ([]int64, error)

	CreateArrival(ctx context.Context, a Arrival) (int64, error)
	UpdateArrival(ctx context.Context, id int64, updates map[string]interface{}) error
	UpdateStatus(ctx context.Context, id int64, status Status, updates map[string]interface{}) error
	DeleteLines(ctx context.Context, arrivalID int64) error
	InsertLines(ctx context.Context, lines []Line) error
	UpdateLineReceived(ctx context.Context, lineID int64, received int, conditionID *int64) error
	LinesWithProducts(ctx context.Context, arrivalID int64) ([]LineWithProduct, error)
	DeleteArrivals(ctx context.Context, ids []int64) (int64, error)
}

// repository implements Repository using pgxpool.
type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
	*catalog.Store
}

// WithTx runs fn in a read-committed transaction. Row locks taken through
// TxRepository serialize concurrent writers on the same arrival.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxOptions(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx, Store: catalog.NewStore(tx)})
	})
}

const arrivalColumns = `
	a.arrival_id, a.arrival_number, a.title, a.supplier_id, a.expected_date,
	a.started_date, a.finished_date, a.status,
	a.expected_pallets, a.expected_boxes, a.expected_kilograms, a.expected_pieces,
	a.received_pallets, a.received_boxes, a.received_kilograms, a.received_pieces,
	a.notes, a.created_at, a.updated_at`

func scanArrival(row pgx.Row, extra ...any) (*Arrival, error) {
	var a Arrival
	dest := []any{
		&a.ID, &a.Number, &a.Title, &a.SupplierID, &a.ExpectedDate,
		&a.StartedDate, &a.FinishedDate, &a.Status,
		&a.ExpectedPallets, &a.ExpectedBoxes, &a.ExpectedKilograms, &a.ExpectedPieces,
		&a.ReceivedPallets, &a.ReceivedBoxes, &a.ReceivedKilograms, &a.ReceivedPieces,
		&a.Notes, &a.CreatedAt, &a.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrArrivalNotFound
		}
		return nil, err
	}
	return &a, nil
}

// GetByNumber retrieves an arrival by its number.
func (r *repository) GetByNumber(ctx context.Context, number string) (*Arrival, error) {
	query := `SELECT ` + arrivalColumns + ` FROM arrivals a WHERE a.arrival_number = $1`
	return scanArrival(r.pool.QueryRow(ctx, query, number))
}

// GetDetail retrieves an arrival with supplier name and lines.
func (r *repository) GetDetail(ctx context.Context, number string) (*Detail, error) {
	query := `
		SELECT ` + arrivalColumns + `, s.name
		FROM arrivals a
		JOIN suppliers s ON s.supplier_id = a.supplier_id
		WHERE a.arrival_number = $1
	`
	var supplierName string
	a, err := scanArrival(r.pool.QueryRow(ctx, query, number), &supplierName)
	if err != nil {
		return nil, err
	}
	lines, err := r.Lines(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	return &Detail{Arrival: *a, SupplierName: supplierName, Lines: lines}, nil
}

// Lines loads the lines of an arrival with product and condition names.
func (r *repository) Lines(ctx context.Context, arrivalID int64) ([]LineDetail, error) {
	query := `
		SELECT ap.arrival_product_id, ap.arrival_id, ap.product_id, ap.condition_id,
		       ap.expected_quantity, ap.received_quantity,
		       p.name, p.tsku, p.barcode, c.name
		FROM arrival_products ap
		LEFT JOIN products p ON p.product_id = ap.product_id
		LEFT JOIN conditions c ON c.condition_id = ap.condition_id
		WHERE ap.arrival_id = $1
		ORDER BY ap.arrival_product_id
	`
	rows, err := r.pool.Query(ctx, query, arrivalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []LineDetail{}
	for rows.Next() {
		var l LineDetail
		if err := rows.Scan(
			&l.ID, &l.ArrivalID, &l.ProductID, &l.ConditionID,
			&l.ExpectedQuantity, &l.ReceivedQuantity,
			&l.ProductName, &l.ProductSKU, &l.Barcode, &l.ConditionName,
		); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// List returns a filtered page of arrivals and the total match count.
func (r *repository) List(ctx context.Context, f ListFilters) ([]Summary, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if f.Status != nil {
		op := "="
		if f.Negate {
			op = "<>"
		}
		conditions = append(conditions, fmt.Sprintf("a.status %s $%d", op, argPos))
		args = append(args, string(*f.Status))
		argPos++
	}

	if f.Search != "" {
		clause := fmt.Sprintf("a.arrival_number ILIKE $%d OR a.title ILIKE $%d", argPos, argPos)
		args = append(args, likePattern(f.Search))
		argPos++
		if f.SupplierID != nil {
			clause += fmt.Sprintf(" OR a.supplier_id = $%d", argPos)
			args = append(args, *f.SupplierID)
			argPos++
		}
		conditions = append(conditions, "("+clause+")")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Count
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM arrivals a %s`, whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dir := "ASC"
	if f.Descending {
		dir = "DESC"
	}

	// Fetch
	query := fmt.Sprintf(`
		SELECT %s, s.name,
		       (SELECT COUNT(*) FROM arrival_products ap WHERE ap.arrival_id = a.arrival_id)
		FROM arrivals a
		JOIN suppliers s ON s.supplier_id = a.supplier_id
		%s
		ORDER BY a.expected_date %s, a.arrival_id %s
		LIMIT $%d OFFSET $%d
	`, arrivalColumns, whereClause, dir, dir, argPos, argPos+1)
	args = append(args, f.Page.ItemsPerPage, f.Page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []Summary{}
	for rows.Next() {
		var s Summary
		a, err := scanArrival(rows, &s.SupplierName, &s.ProductCount)
		if err != nil {
			return nil, 0, err
		}
		s.Arrival = *a
		items = append(items, s)
	}
	return items, total, rows.Err()
}
