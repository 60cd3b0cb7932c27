package arrivals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/odyssey-erp/receiving/internal/shared"
)

const (
	idempotencyModule = "arrivals.create"
	auditEntity       = "arrival"
	maxCreateAttempts = 3
)

// Auditor records state changes.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Idempotency guards create against replays.
type Idempotency interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Metrics receives lifecycle counters.
type Metrics interface {
	ObserveTransition(status string)
	ObserveScan(result string)
	ObserveDiscrepancies(products int, boxes bool)
}

// Invalidator drops cached statistics after a mutation.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Warmer schedules a background statistics refresh.
type Warmer interface {
	EnqueueStatisticsWarmup(ctx context.Context) error
}

// Service implements the arrival state machine.
type Service struct {
	repo    Repository
	numbers *NumberGenerator
	logger  *slog.Logger
	now     func() time.Time

	audit       Auditor
	idempotency Idempotency
	metrics     Metrics
	invalidator Invalidator
	warmer      Warmer
}

// NewService creates a new service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		numbers: NewNumberGenerator(),
		logger:  logger,
		now:     time.Now,
	}
}

// SetAuditor wires the audit trail.
func (s *Service) SetAuditor(a Auditor) { s.audit = a }

// SetIdempotency wires the idempotency key store.
func (s *Service) SetIdempotency(i Idempotency) { s.idempotency = i }

// SetMetrics wires lifecycle counters.
func (s *Service) SetMetrics(m Metrics) { s.metrics = m }

// SetInvalidator wires the statistics cache.
func (s *Service) SetInvalidator(i Invalidator) { s.invalidator = i }

// SetWarmer wires background statistics refresh.
func (s *Service) SetWarmer(w Warmer) { s.warmer = w }

// Create persists a NOT_INITIATED arrival under a freshly generated number.
func (s *Service) Create(ctx context.Context, req CreateRequest, idempotencyKey string) (*CreateResult, error) {
	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, idempotencyKey, idempotencyModule); err != nil {
			return nil, err
		}
	}

	var number string
	var err error
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			ok, err := tx.SupplierExists(ctx, req.SupplierID)
			if err != nil {
				return fmt.Errorf("check supplier: %w", err)
			}
			if !ok {
				return fmt.Errorf("%w: %d", ErrSupplierNotFound, req.SupplierID)
			}
			number, err = s.allocateNumber(ctx, tx)
			if err != nil {
				return err
			}
			_, err = tx.CreateArrival(ctx, req.ToArrival(number))
			return err
		})
		if !errors.Is(err, ErrNumberTaken) {
			break
		}
		s.logger.Warn("arrival number collision, retrying", slog.String("arrival_number", number), slog.Int("attempt", attempt+1))
	}
	if err != nil {
		if idempotencyKey != "" && s.idempotency != nil {
			if derr := s.idempotency.Delete(ctx, idempotencyKey); derr != nil {
				s.logger.Error("release idempotency key", slog.Any("error", derr))
			}
		}
		return nil, fmt.Errorf("create arrival: %w", err)
	}

	s.afterTransition(ctx, number, "arrival.created", StatusNotInitiated, map[string]any{
		"supplier_id":    req.SupplierID,
		"expected_boxes": req.ExpectedBoxes,
	})
	return &CreateResult{ArrivalNumber: number}, nil
}

// allocateNumber draws candidates until one is unused, then falls back to the
// sequence.
func (s *Service) allocateNumber(ctx context.Context, tx TxRepository) (string, error) {
	for i := 0; i < maxNumberAttempts; i++ {
		candidate := s.numbers.Candidate()
		exists, err := tx.NumberExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check arrival number: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	seq, err := tx.NextNumberSequence(ctx)
	if err != nil {
		return "", fmt.Errorf("arrival number sequence: %w", err)
	}
	return s.numbers.Fallback(seq), nil
}

// AttachProducts replaces the line set and moves the arrival to UPCOMING.
func (s *Service) AttachProducts(ctx context.Context, number string, req AttachProductsRequest) (*StatusResult, error) {
	if err := ValidateAttachRequest(req); err != nil {
		return nil, err
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		a, err := tx.LockByNumber(ctx, number)
		if err != nil {
			return err
		}
		if !a.Status.CanEdit() {
			return fmt.Errorf("%w: %s", ErrCannotEdit, a.Status)
		}
		missing, err := tx.MissingProducts(ctx, req.productIDs())
		if err != nil {
			return fmt.Errorf("check products: %w", err)
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: %v", ErrProductNotFound, missing)
		}
		missing, err = tx.MissingConditions(ctx, req.conditionIDs())
		if err != nil {
			return fmt.Errorf("check conditions: %w", err)
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: %v", ErrConditionNotFound, missing)
		}
		if err := tx.DeleteLines(ctx, a.ID); err != nil {
			return fmt.Errorf("delete lines: %w", err)
		}
		if err := tx.InsertLines(ctx, req.ToLines(a.ID)); err != nil {
			return fmt.Errorf("insert lines: %w", err)
		}
		return s.transition(ctx, tx, a, StatusUpcoming, nil)
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, number, "arrival.products_attached", StatusUpcoming, map[string]any{
		"lines": len(req.ArrivalProducts),
	})
	return &StatusResult{ArrivalNumber: number, Status: StatusUpcoming}, nil
}

// Update applies the supplied fields to an editable arrival.
func (s *Service) Update(ctx context.Context, number string, req UpdateRequest) (*Arrival, error) {
	updates := req.Updates()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		a, err := tx.LockByNumber(ctx, number)
		if err != nil {
			return err
		}
		if !a.Status.CanEdit() {
			return fmt.Errorf("%w: %s", ErrCannotEdit, a.Status)
		}
		if req.SupplierID != nil {
			ok, err := tx.SupplierExists(ctx, *req.SupplierID)
			if err != nil {
				return fmt.Errorf("check supplier: %w", err)
			}
			if !ok {
				return fmt.Errorf("%w: %d", ErrSupplierNotFound, *req.SupplierID)
			}
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.UpdateArrival(ctx, a.ID, updates); err != nil {
			return fmt.Errorf("update: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		s.record(ctx, number, "arrival.updated", map[string]any{"fields": sortedKeys(updates)})
		s.bump(ctx)
	}
	return s.repo.GetByNumber(ctx, number)
}

// StartProcessing records received totals and moves UPCOMING to IN_PROGRESS.
func (s *Service) StartProcessing(ctx context.Context, number string, req StartProcessingRequest) (*StatusResult, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		a, err := tx.LockByNumber(ctx, number)
		if err != nil {
			return err
		}
		if !a.Status.CanStart() {
			return fmt.Errorf("%w: %s", ErrCannotStart, a.Status)
		}
		updates := req.Received()
		updates["started_date"] = s.now()
		return s.transition(ctx, tx, a, StatusInProgress, updates)
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, number, "arrival.started", StatusInProgress, map[string]any{
		"received_boxes": intOrZero(req.ReceivedBoxes),
	})
	return &StatusResult{ArrivalNumber: number, Status: StatusInProgress}, nil
}

// Scan adds req.ReceivedQuantity to the matching line. The arrival and line
// rows stay locked until commit, so concurrent scans of one line serialize.
func (s *Service) Scan(ctx context.Context, number string, req ScanRequest) (*ScanResult, error) {
	var result ScanResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		a, err := tx.LockByNumber(ctx, number)
		if err != nil {
			return err
		}
		if !a.Status.CanScan() {
			return fmt.Errorf("%w: %s", ErrCannotScan, a.Status)
		}
		line, err := tx.LockLine(ctx, a.ID, req.ProductID)
		if err != nil {
			return err
		}
		if req.ReceivedQuantity > line.ExpectedQuantity-line.ReceivedQuantity {
			return fmt.Errorf("%w: product %d expects %d, has %d", ErrExceedsExpected, req.ProductID, line.ExpectedQuantity, line.ReceivedQuantity)
		}
		ok, err := tx.ConditionExists(ctx, req.ConditionID)
		if err != nil {
			return fmt.Errorf("check condition: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: %d", ErrConditionNotFound, req.ConditionID)
		}
		received := line.ReceivedQuantity + req.ReceivedQuantity
		conditionID := req.ConditionID
		if err := tx.UpdateLineReceived(ctx, line.ID, received, &conditionID); err != nil {
			return fmt.Errorf("update line: %w", err)
		}
		result = ScanResult{
			ArrivalNumber:    number,
			Status:           a.Status,
			ProductID:        line.ProductID,
			ConditionID:      &conditionID,
			ExpectedQuantity: line.ExpectedQuantity,
			ReceivedQuantity: received,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrExceedsExpected) {
			s.observeScan("rejected")
		}
		return nil, err
	}
	s.observeScan("accepted")
	return &result, nil
}

// FinishProcessing reconciles an IN_PROGRESS arrival and stores its terminal
// status.
func (s *Service) FinishProcessing(ctx context.Context, number string) (*Report, error) {
	var report Report
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		a, err := tx.LockByNumber(ctx, number)
		if err != nil {
			return err
		}
		if !a.Status.CanFinish() {
			return fmt.Errorf("%w: %s", ErrCannotFinish, a.Status)
		}
		lines, err := tx.LinesWithProducts(ctx, a.ID)
		if err != nil {
			return fmt.Errorf("load lines: %w", err)
		}
		report = Reconcile(a.Number, lines, a.ExpectedBoxes, a.ReceivedBoxes)
		return s.transition(ctx, tx, a, report.Status, map[string]interface{}{
			"finished_date": s.now(),
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ObserveDiscrepancies(len(report.Discrepancies.Products), report.Discrepancies.Boxes != nil)
	}
	s.afterTransition(ctx, number, "arrival.finished", report.Status, map[string]any{
		"has_discrepancies": report.HasDiscrepancies,
		"product_diffs":     len(report.Discrepancies.Products),
	})
	if s.warmer != nil {
		if err := s.warmer.EnqueueStatisticsWarmup(ctx); err != nil {
			s.logger.Warn("enqueue statistics warmup", slog.Any("error", err))
		}
	}
	return &report, nil
}

// Delete removes one arrival and its lines.
func (s *Service) Delete(ctx context.Context, number string) (*DeleteResult, error) {
	return s.DeleteMany(ctx, []string{number})
}

// DeleteMany removes the listed arrivals and their lines in one transaction.
// Any IN_PROGRESS member rejects the whole batch.
func (s *Service) DeleteMany(ctx context.Context, numbers []string) (*DeleteResult, error) {
	numbers = uniqueNumbers(numbers)
	if len(numbers) == 0 {
		return nil, ErrNoArrivalNumbers
	}

	var deleted []string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		found, err := tx.LockByNumbers(ctx, numbers)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return ErrArrivalNotFound
		}
		ids := make([]int64, 0, len(found))
		for _, a := range found {
			if !a.Status.CanDelete() {
				return fmt.Errorf("%w: %s", ErrCannotDelete, a.Number)
			}
			ids = append(ids, a.ID)
			deleted = append(deleted, a.Number)
		}
		if _, err := tx.DeleteArrivals(ctx, ids); err != nil {
			return fmt.Errorf("delete arrivals: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, number := range deleted {
		s.record(ctx, number, "arrival.deleted", nil)
	}
	s.bump(ctx)
	return &DeleteResult{DeletedArrivals: deleted, Count: len(deleted)}, nil
}

// Get returns an arrival with supplier name and lines.
func (s *Service) Get(ctx context.Context, number string) (*Detail, error) {
	return s.repo.GetDetail(ctx, number)
}

// LineSplit partitions the lines of an arrival by discrepancy.
func (s *Service) LineSplit(ctx context.Context, number string) (*LineSplit, error) {
	a, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.Lines(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("load lines: %w", err)
	}
	split := SplitLines(a.Number, lines)
	return &split, nil
}

// List returns a filtered page of arrivals.
func (s *Service) List(ctx context.Context, f ListFilters) (*ListResult, error) {
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list arrivals: %w", err)
	}
	return &ListResult{Items: items, Pagination: shared.NewPagination(f.Page, total)}, nil
}

func (s *Service) transition(ctx context.Context, tx TxRepository, a *Arrival, next Status, updates map[string]interface{}) error {
	if !a.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, a.Status, next)
	}
	if err := tx.UpdateStatus(ctx, a.ID, next, updates); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	a.Status = next
	return nil
}

func (s *Service) afterTransition(ctx context.Context, number, action string, status Status, meta map[string]any) {
	if meta == nil {
		meta = map[string]any{}
	}
	meta["status"] = string(status)
	s.record(ctx, number, action, meta)
	if s.metrics != nil {
		s.metrics.ObserveTransition(string(status))
	}
	s.bump(ctx)
	s.logger.Info("arrival transition",
		slog.String("arrival_number", number),
		slog.String("action", action),
		slog.String("status", string(status)),
	)
}

// record writes the audit entry after commit. Failures are logged only; the
// state change already happened.
func (s *Service) record(ctx context.Context, number, action string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorID(ctx),
		Action:   action,
		Entity:   auditEntity,
		EntityID: number,
		Meta:     meta,
		At:       s.now(),
	})
	if err != nil {
		s.logger.Error("audit arrival", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) bump(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Bump(ctx); err != nil {
		s.logger.Warn("invalidate statistics cache", slog.Any("error", err))
	}
}

func (s *Service) observeScan(result string) {
	if s.metrics != nil {
		s.metrics.ObserveScan(result)
	}
}

func uniqueNumbers(numbers []string) []string {
	seen := make(map[string]struct{}, len(numbers))
	out := make([]string, 0, len(numbers))
	for _, n := range numbers {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
