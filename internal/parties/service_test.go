package parties

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partsdesk/partsdesk/internal/shared"
)

type memoryRepo struct {
	rows   map[Kind]map[int64]Party
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: map[Kind]map[int64]Party{KindVendor: {}, KindCustomer: {}}}
}

func (r *memoryRepo) List(ctx context.Context, kind Kind, search string, limit, offset int) ([]Party, int, error) {
	var all []Party
	for _, p := range r.rows[kind] {
		if search == "" || strings.Contains(strings.ToLower(p.Name), strings.ToLower(search)) {
			all = append(all, p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	if offset >= len(all) {
		return nil, len(all), nil
	}
	return all[offset:min(offset+limit, len(all))], len(all), nil
}

func (r *memoryRepo) Get(ctx context.Context, kind Kind, id int64) (Party, error) {
	p, ok := r.rows[kind][id]
	if !ok {
		return Party{}, fmt.Errorf("%w: %s %d", shared.ErrNotFound, kind.Label(), id)
	}
	return p, nil
}

func (r *memoryRepo) Create(ctx context.Context, kind Kind, p Party) (Party, error) {
	for _, existing := range r.rows[kind] {
		if strings.EqualFold(existing.Name, p.Name) {
			return Party{}, fmt.Errorf("%w: %s %q already exists", shared.ErrDuplicate, kind.Label(), p.Name)
		}
	}
	r.nextID++
	p.ID = r.nextID
	r.rows[kind][p.ID] = p
	return p, nil
}

func (r *memoryRepo) Update(ctx context.Context, kind Kind, p Party) (Party, error) {
	if _, ok := r.rows[kind][p.ID]; !ok {
		return Party{}, fmt.Errorf("%w: %s %d", shared.ErrNotFound, kind.Label(), p.ID)
	}
	r.rows[kind][p.ID] = p
	return p, nil
}

func (r *memoryRepo) NamesByIDs(ctx context.Context, kind Kind, ids []int64) (map[int64]string, error) {
	out := map[int64]string{}
	for _, id := range ids {
		if p, ok := r.rows[kind][id]; ok {
			out[id] = p.Name
		}
	}
	return out, nil
}

func TestServiceCreateNormalizes(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	p, err := svc.Create(context.Background(), KindVendor, Input{Name: "  sharma   auto  parts ", GSTIN: "27aapfu0939f1zv"})
	require.NoError(t, err)
	assert.Equal(t, "Sharma Auto Parts", p.Name)
	assert.Equal(t, "27AAPFU0939F1ZV", p.GSTIN)

	_, err = svc.Create(context.Background(), KindVendor, Input{Name: "SHARMA auto parts"})
	require.ErrorIs(t, err, shared.ErrDuplicate)

	_, err = svc.Create(context.Background(), KindVendor, Input{Name: "Other", GSTIN: "short"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestServiceKindsAreSeparate(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	_, err := svc.Create(context.Background(), KindVendor, Input{Name: "Ravi"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), KindCustomer, Input{Name: "Ravi"})
	require.NoError(t, err)

	list, pg, err := svc.List(context.Background(), KindCustomer, "", shared.PageRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, pg.Total)
}

func TestServiceUpdateUnknown(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	_, err := svc.Update(context.Background(), KindCustomer, 9, Input{Name: "Nobody"})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestHandlerRoutes(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(slog.Default(), NewService(newMemoryRepo(), nil)).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/customers/", strings.NewReader(`{"name":"ravi kumar","phone":"98450"}`)))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/customers/?search=ravi", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body listResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "Ravi Kumar", body.Items[0].Name)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/vendors/7", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
