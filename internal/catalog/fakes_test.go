package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/partsdesk/partsdesk/internal/lookups"
	"github.com/partsdesk/partsdesk/internal/shared"
)

type memoryStore struct {
	mu         sync.Mutex
	products   []Product
	nextID     int64
	listCalls  int
	countCalls int
	lastLimit  int
	lastOffset int
	listErr    error
	deleteErr  error
}

func newMemoryStore(products ...Product) *memoryStore {
	s := &memoryStore{}
	for _, p := range products {
		if p.ID > s.nextID {
			s.nextID = p.ID
		}
		s.products = append(s.products, p)
	}
	return s
}

func (s *memoryStore) match(q Query) []Product {
	var out []Product
	for _, p := range s.products {
		if q.Search != "" && !strings.Contains(p.ProductName, q.Search) && !strings.Contains(p.PartNo, q.Search) {
			continue
		}
		if q.Category != nil && p.Category != strconv.FormatInt(*q.Category, 10) {
			continue
		}
		if q.Company != nil && p.Company != strconv.FormatInt(*q.Company, 10) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (s *memoryStore) List(ctx context.Context, q Query, limit, offset int) ([]Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	s.lastLimit, s.lastOffset = limit, offset
	if s.listErr != nil {
		return nil, s.listErr
	}
	all := s.match(q)
	if limit <= 0 {
		return all, nil
	}
	if offset >= len(all) {
		return nil, nil
	}
	return all[offset:min(offset+limit, len(all))], nil
}

func (s *memoryStore) Count(ctx context.Context, q Query) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countCalls++
	return len(s.match(q)), nil
}

func (s *memoryStore) Get(ctx context.Context, id int64) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
}

func (s *memoryStore) Create(ctx context.Context, p Product) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p.ID = s.nextID
	s.products = append(s.products, p)
	return p, nil
}

func (s *memoryStore) Update(ctx context.Context, p Product) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID == p.ID {
			s.products[i] = p
			return p, nil
		}
	}
	return Product{}, fmt.Errorf("%w: product %d", shared.ErrNotFound, p.ID)
}

func (s *memoryStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	for i := range s.products {
		if s.products[i].ID == id {
			s.products = slices.Delete(s.products, i, i+1)
			return nil
		}
	}
	return fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
}

type fakeNames struct {
	mu    sync.Mutex
	data  map[lookups.Kind]map[string]string
	calls map[lookups.Kind]int
	ids   map[lookups.Kind][]int64
	err   error
}

func newFakeNames() *fakeNames {
	return &fakeNames{
		data: map[lookups.Kind]map[string]string{
			lookups.KindCategory:    {"1": "Brakes", "2": "Filters", "3": "Lighting"},
			lookups.KindCompany:     {"10": "Bosch", "11": "Minda"},
			lookups.KindSubcategory: {"3": "Sedan", "7": "SUV", "9": "Hatch"},
		},
		calls: map[lookups.Kind]int{},
		ids:   map[lookups.Kind][]int64{},
	}
}

func (f *fakeNames) NamesByIDs(ctx context.Context, kind lookups.Kind, ids []int64) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[kind]++
	f.ids[kind] = append([]int64(nil), ids...)
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]string{}
	for _, id := range ids {
		key := strconv.FormatInt(id, 10)
		if name, ok := f.data[kind][key]; ok {
			out[key] = name
		}
	}
	return out, nil
}

type lineItem struct {
	id      int64
	product string
	date    time.Time
	rate    float64
}

// lineTable emulates purchase_line_items for both rate stores.
type lineTable struct {
	mu          sync.Mutex
	items       []lineItem
	bulkErr     error
	failIDs     map[string]bool
	delay       time.Duration
	bulkCalls   int
	singleCalls int
	inFlight    int
	maxInFlight int
}

func (t *lineTable) latest(product string) (lineItem, bool) {
	var (
		best  lineItem
		found bool
	)
	for _, it := range t.items {
		if it.product != product {
			continue
		}
		if !found || it.date.After(best.date) || (it.date.Equal(best.date) && it.id > best.id) {
			best, found = it, true
		}
	}
	return best, found
}

func (t *lineTable) LatestRates(ctx context.Context, ids []string) (map[string]float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bulkCalls++
	if t.bulkErr != nil {
		return nil, t.bulkErr
	}
	out := map[string]float64{}
	for _, id := range ids {
		if it, ok := t.latest(id); ok {
			out[id] = it.rate
		}
	}
	return out, nil
}

func (t *lineTable) LatestRate(ctx context.Context, id string) (float64, bool, error) {
	t.mu.Lock()
	t.singleCalls++
	t.inFlight++
	t.maxInFlight = max(t.maxInFlight, t.inFlight)
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.inFlight--
		t.mu.Unlock()
	}()

	if t.delay > 0 {
		select {
		case <-time.After(t.delay):
		case <-ctx.Done():
			return 0, false, ctx.Err()
		}
	}
	if t.failIDs[id] {
		return 0, false, errors.New("connection reset")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	it, ok := t.latest(id)
	return it.rate, ok, nil
}

func day(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
}
