package arrivals

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// memoryStore is an in-memory Repository. WithTx holds a single mutex for the
// whole callback and restores a snapshot when it fails.
type memoryStore struct {
	mu sync.Mutex

	arrivals map[int64]Arrival
	lines    map[int64]Line
	nextID   int64
	seq      int64

	suppliers  map[int64]string
	products   map[int64]string
	conditions map[int64]string

	// failInserts makes the next CreateArrival calls lose the number race.
	failInserts int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		arrivals:   map[int64]Arrival{},
		lines:      map[int64]Line{},
		suppliers:  map[int64]string{1: "Acme Textiles", 2: "Nordic Goods"},
		products:   map[int64]string{10: "Linen Shirt", 11: "Wool Scarf", 12: "Denim Jacket"},
		conditions: map[int64]string{1: "New", 2: "Damaged"},
	}
}

type memorySnapshot struct {
	arrivals map[int64]Arrival
	lines    map[int64]Line
	nextID   int64
	seq      int64
}

func (m *memoryStore) snapshot() memorySnapshot {
	snap := memorySnapshot{
		arrivals: make(map[int64]Arrival, len(m.arrivals)),
		lines:    make(map[int64]Line, len(m.lines)),
		nextID:   m.nextID,
		seq:      m.seq,
	}
	for k, v := range m.arrivals {
		snap.arrivals[k] = v
	}
	for k, v := range m.lines {
		snap.lines[k] = v
	}
	return snap
}

func (m *memoryStore) restore(s memorySnapshot) {
	m.arrivals, m.lines, m.nextID, m.seq = s.arrivals, s.lines, s.nextID, s.seq
}

func (m *memoryStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snapshot()
	if err := fn(ctx, &memoryTx{m: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memoryStore) findLocked(number string) (Arrival, bool) {
	for _, a := range m.arrivals {
		if a.Number == number {
			return a, true
		}
	}
	return Arrival{}, false
}

func (m *memoryStore) linesLocked(arrivalID int64) []Line {
	var out []Line
	for _, l := range m.lines {
		if l.ArrivalID == arrivalID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memoryStore) GetByNumber(_ context.Context, number string) (*Arrival, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.findLocked(number)
	if !ok {
		return nil, ErrArrivalNotFound
	}
	return &a, nil
}

func (m *memoryStore) GetDetail(ctx context.Context, number string) (*Detail, error) {
	a, err := m.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	lines, err := m.Lines(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return &Detail{Arrival: *a, SupplierName: m.suppliers[a.SupplierID], Lines: lines}, nil
}

func (m *memoryStore) Lines(_ context.Context, arrivalID int64) ([]LineDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []LineDetail{}
	for _, l := range m.linesLocked(arrivalID) {
		d := LineDetail{Line: l}
		if name, ok := m.products[l.ProductID]; ok {
			d.ProductName = &name
		}
		out = append(out, d)
	}
	return out, nil
}

func (m *memoryStore) List(_ context.Context, f ListFilters) ([]Summary, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []Summary
	for _, a := range m.arrivals {
		if f.Status != nil && (a.Status == *f.Status) == f.Negate {
			continue
		}
		if f.Search != "" {
			hit := strings.Contains(strings.ToLower(a.Number), f.Search) ||
				strings.Contains(strings.ToLower(a.Title), f.Search) ||
				(f.SupplierID != nil && a.SupplierID == *f.SupplierID)
			if !hit {
				continue
			}
		}
		matched = append(matched, Summary{
			Arrival:      a,
			SupplierName: m.suppliers[a.SupplierID],
			ProductCount: len(m.linesLocked(a.ID)),
		})
	}
	sort.Slice(matched, func(i, j int) bool {
		if f.Descending {
			return matched[i].ExpectedDate.After(matched[j].ExpectedDate)
		}
		return matched[i].ExpectedDate.Before(matched[j].ExpectedDate)
	})
	total := len(matched)
	start := f.Page.Offset()
	if start > total {
		start = total
	}
	end := start + f.Page.ItemsPerPage
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// memoryTx runs with memoryStore.mu already held.
type memoryTx struct {
	m *memoryStore
}

func (t *memoryTx) LockByNumber(_ context.Context, number string) (*Arrival, error) {
	a, ok := t.m.findLocked(number)
	if !ok {
		return nil, ErrArrivalNotFound
	}
	return &a, nil
}

func (t *memoryTx) LockByNumbers(_ context.Context, numbers []string) ([]Arrival, error) {
	var out []Arrival
	for _, n := range numbers {
		if a, ok := t.m.findLocked(n); ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (t *memoryTx) LockLine(_ context.Context, arrivalID, productID int64) (*Line, error) {
	for _, l := range t.m.linesLocked(arrivalID) {
		if l.ProductID == productID {
			return &l, nil
		}
	}
	return nil, ErrLineNotFound
}

func (t *memoryTx) NumberExists(_ context.Context, number string) (bool, error) {
	_, ok := t.m.findLocked(number)
	return ok, nil
}

func (t *memoryTx) NextNumberSequence(context.Context) (int64, error) {
	t.m.seq++
	return t.m.seq, nil
}

func (t *memoryTx) SupplierExists(_ context.Context, id int64) (bool, error) {
	_, ok := t.m.suppliers[id]
	return ok, nil
}

func (t *memoryTx) ConditionExists(_ context.Context, id int64) (bool, error) {
	_, ok := t.m.conditions[id]
	return ok, nil
}

func (t *memoryTx) MissingProducts(_ context.Context, ids []int64) ([]int64, error) {
	return missingFrom(t.m.products, ids), nil
}

func (t *memoryTx) MissingConditions(_ context.Context, ids []int64) ([]int64, error) {
	return missingFrom(t.m.conditions, ids), nil
}

func missingFrom(known map[int64]string, ids []int64) []int64 {
	var out []int64
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func (t *memoryTx) CreateArrival(_ context.Context, a Arrival) (int64, error) {
	if t.m.failInserts > 0 {
		t.m.failInserts--
		return 0, ErrNumberTaken
	}
	if _, ok := t.m.findLocked(a.Number); ok {
		return 0, ErrNumberTaken
	}
	t.m.nextID++
	a.ID = t.m.nextID
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	t.m.arrivals[a.ID] = a
	return a.ID, nil
}

func (t *memoryTx) UpdateArrival(_ context.Context, id int64, updates map[string]interface{}) error {
	a, ok := t.m.arrivals[id]
	if !ok {
		return ErrArrivalNotFound
	}
	for field, v := range updates {
		switch field {
		case "title":
			a.Title = v.(string)
		case "supplier_id":
			a.SupplierID = v.(int64)
		case "expected_date":
			a.ExpectedDate = v.(time.Time)
		case "expected_pallets":
			n := v.(int)
			a.ExpectedPallets = &n
		case "expected_boxes":
			a.ExpectedBoxes = v.(int)
		case "expected_pieces":
			n := v.(int)
			a.ExpectedPieces = &n
		case "expected_kilograms":
			a.ExpectedKilograms = v.(float64)
		case "notes":
			a.Notes = v.(*string)
		case "status":
			a.Status = v.(Status)
		case "started_date":
			ts := v.(time.Time)
			a.StartedDate = &ts
		case "finished_date":
			ts := v.(time.Time)
			a.FinishedDate = &ts
		case "received_pallets":
			n := v.(int)
			a.ReceivedPallets = &n
		case "received_boxes":
			n := v.(int)
			a.ReceivedBoxes = &n
		case "received_pieces":
			n := v.(int)
			a.ReceivedPieces = &n
		case "received_kilograms":
			f := v.(float64)
			a.ReceivedKilograms = &f
		default:
			panic("memoryTx: unknown column " + field)
		}
	}
	a.UpdatedAt = time.Now()
	t.m.arrivals[id] = a
	return nil
}

func (t *memoryTx) UpdateStatus(ctx context.Context, id int64, status Status, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = status
	return t.UpdateArrival(ctx, id, updates)
}

func (t *memoryTx) DeleteLines(_ context.Context, arrivalID int64) error {
	for id, l := range t.m.lines {
		if l.ArrivalID == arrivalID {
			delete(t.m.lines, id)
		}
	}
	return nil
}

func (t *memoryTx) InsertLines(_ context.Context, lines []Line) error {
	for _, l := range lines {
		t.m.nextID++
		l.ID = t.m.nextID
		t.m.lines[l.ID] = l
	}
	return nil
}

func (t *memoryTx) UpdateLineReceived(_ context.Context, lineID int64, received int, conditionID *int64) error {
	l, ok := t.m.lines[lineID]
	if !ok {
		return ErrLineNotFound
	}
	if received < 0 || received > l.ExpectedQuantity {
		panic("memoryTx: received quantity outside [0, expected]")
	}
	l.ReceivedQuantity = received
	if conditionID != nil {
		l.ConditionID = conditionID
	}
	t.m.lines[lineID] = l
	return nil
}

func (t *memoryTx) LinesWithProducts(_ context.Context, arrivalID int64) ([]LineWithProduct, error) {
	var out []LineWithProduct
	for _, l := range t.m.linesLocked(arrivalID) {
		lw := LineWithProduct{ProductID: l.ProductID, Expected: l.ExpectedQuantity, Received: l.ReceivedQuantity}
		if name, ok := t.m.products[l.ProductID]; ok {
			sku := "SKU-" + name
			lw.ProductName = &name
			lw.ProductSKU = &sku
		}
		out = append(out, lw)
	}
	return out, nil
}

func (t *memoryTx) DeleteArrivals(_ context.Context, ids []int64) (int64, error) {
	var n int64
	for _, id := range ids {
		_ = t.DeleteLines(context.Background(), id)
		if _, ok := t.m.arrivals[id]; ok {
			delete(t.m.arrivals, id)
			n++
		}
	}
	return n, nil
}

var (
	_ Repository   = (*memoryStore)(nil)
	_ TxRepository = (*memoryTx)(nil)
)
