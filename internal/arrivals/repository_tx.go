package arrivals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/odyssey-erp/receiving/internal/platform/db"
)

const numberConstraint = "uq_arrivals_number"

// LockByNumber loads an arrival and holds its row lock.
func (t *txRepository) LockByNumber(ctx context.Context, number string) (*Arrival, error) {
	query := `SELECT ` + arrivalColumns + ` FROM arrivals a WHERE a.arrival_number = $1 FOR UPDATE`
	a, err := scanArrival(t.tx.QueryRow(ctx, query, number))
	if err != nil {
		return nil, db.MapError(err)
	}
	return a, nil
}

// LockByNumbers locks every arrival whose number is listed. Missing numbers are
// skipped.
func (t *txRepository) LockByNumbers(ctx context.Context, numbers []string) ([]Arrival, error) {
	query := `
		SELECT ` + arrivalColumns + `
		FROM arrivals a
		WHERE a.arrival_number = ANY($1)
		ORDER BY a.arrival_id
		FOR UPDATE
	`
	rows, err := t.tx.Query(ctx, query, numbers)
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()

	var out []Arrival
	for rows.Next() {
		a, err := scanArrival(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// LockLine loads the line for productID and holds its row lock.
func (t *txRepository) LockLine(ctx context.Context, arrivalID, productID int64) (*Line, error) {
	query := `
		SELECT arrival_product_id, arrival_id, product_id, condition_id,
		       expected_quantity, received_quantity
		FROM arrival_products
		WHERE arrival_id = $1 AND product_id = $2
		FOR UPDATE
	`
	var l Line
	err := t.tx.QueryRow(ctx, query, arrivalID, productID).Scan(
		&l.ID, &l.ArrivalID, &l.ProductID, &l.ConditionID, &l.ExpectedQuantity, &l.ReceivedQuantity,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLineNotFound
		}
		return nil, db.MapError(err)
	}
	return &l, nil
}

// NumberExists reports whether an arrival already uses number.
func (t *txRepository) NumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM arrivals WHERE arrival_number = $1)`, number).Scan(&exists)
	return exists, err
}

// NextNumberSequence draws from arrival_number_seq.
func (t *txRepository) NextNumberSequence(ctx context.Context) (int64, error) {
	var seq int64
	err := t.tx.QueryRow(ctx, `SELECT nextval('arrival_number_seq')`).Scan(&seq)
	return seq, err
}

// CreateArrival inserts an arrival and returns its id.
func (t *txRepository) CreateArrival(ctx context.Context, a Arrival) (int64, error) {
	query := `
		INSERT INTO arrivals (
			arrival_number, title, supplier_id, expected_date, status,
			expected_pallets, expected_boxes, expected_kilograms, expected_pieces, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING arrival_id
	`
	var id int64
	err := t.tx.QueryRow(ctx, query,
		a.Number, a.Title, a.SupplierID, a.ExpectedDate, a.Status,
		a.ExpectedPallets, a.ExpectedBoxes, a.ExpectedKilograms, a.ExpectedPieces, a.Notes,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == db.CodeUniqueViolation && pgErr.ConstraintName == numberConstraint {
			return 0, ErrNumberTaken
		}
		return 0, db.MapError(err)
	}
	return id, nil
}

// UpdateArrival updates arrival fields.
func (t *txRepository) UpdateArrival(ctx context.Context, id int64, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	var setClauses []string
	var args []interface{}
	argPos := 1

	for _, field := range sortedKeys(updates) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", field, argPos))
		args = append(args, updates[field])
		argPos++
	}

	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", argPos))
	args = append(args, time.Now())
	argPos++

	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE arrivals
		SET %s
		WHERE arrival_id = $%d
	`, strings.Join(setClauses, ", "), argPos)

	cmdTag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return db.MapError(err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrArrivalNotFound
	}
	return nil
}

// UpdateStatus updates status with additional fields.
func (t *txRepository) UpdateStatus(ctx context.Context, id int64, status Status, updates map[string]interface{}) error {
	if updates == nil {
		updates = make(map[string]interface{})
	}
	updates["status"] = status
	return t.UpdateArrival(ctx, id, updates)
}

// DeleteLines removes all lines for an arrival.
func (t *txRepository) DeleteLines(ctx context.Context, arrivalID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM arrival_products WHERE arrival_id = $1`, arrivalID)
	return err
}

// InsertLines bulk inserts lines with COPY.
func (t *txRepository) InsertLines(ctx context.Context, lines []Line) error {
	if len(lines) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []any{l.ArrivalID, l.ProductID, l.ConditionID, l.ExpectedQuantity, l.ReceivedQuantity})
	}
	_, err := t.tx.CopyFrom(ctx,
		pgx.Identifier{"arrival_products"},
		[]string{"arrival_id", "product_id", "condition_id", "expected_quantity", "received_quantity"},
		pgx.CopyFromRows(rows),
	)
	return db.MapError(err)
}

// UpdateLineReceived stores the accumulated received quantity of a line.
func (t *txRepository) UpdateLineReceived(ctx context.Context, lineID int64, received int, conditionID *int64) error {
	query := `
		UPDATE arrival_products
		SET received_quantity = $1, condition_id = COALESCE($2, condition_id), updated_at = $3
		WHERE arrival_product_id = $4
	`
	cmdTag, err := t.tx.Exec(ctx, query, received, conditionID, time.Now(), lineID)
	if err != nil {
		return db.MapError(err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

// LinesWithProducts loads reconciliation input. Lines whose product row is
// gone keep nil name and SKU.
func (t *txRepository) LinesWithProducts(ctx context.Context, arrivalID int64) ([]LineWithProduct, error) {
	query := `
		SELECT ap.product_id, p.name, p.tsku, ap.expected_quantity, ap.received_quantity
		FROM arrival_products ap
		LEFT JOIN products p ON p.product_id = ap.product_id
		WHERE ap.arrival_id = $1
		ORDER BY ap.arrival_product_id
		FOR UPDATE OF ap
	`
	rows, err := t.tx.Query(ctx, query, arrivalID)
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()

	var out []LineWithProduct
	for rows.Next() {
		var l LineWithProduct
		if err := rows.Scan(&l.ProductID, &l.ProductName, &l.ProductSKU, &l.Expected, &l.Received); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// DeleteArrivals removes lines first and then the arrivals.
func (t *txRepository) DeleteArrivals(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM arrival_products WHERE arrival_id = ANY($1)`, ids); err != nil {
		return 0, db.MapError(err)
	}
	cmdTag, err := t.tx.Exec(ctx, `DELETE FROM arrivals WHERE arrival_id = ANY($1)`, ids)
	if err != nil {
		return 0, db.MapError(err)
	}
	return cmdTag.RowsAffected(), nil
}
