package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/gidroatlas/atlas-service/internal/adapter/http"
	"github.com/gidroatlas/atlas-service/internal/adapter/registry"
	"github.com/gidroatlas/atlas-service/internal/catalog"
	"github.com/gidroatlas/atlas-service/internal/domain"
	"github.com/gidroatlas/atlas-service/internal/session"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func int64Ptr(v int64) *int64 { return &v }

// fakeCatalog serves a fixed collection and records mutations.
type fakeCatalog struct {
	objects []domain.WaterObject
	err     error

	edited      []int64
	saved       *domain.WaterObject
	deleted     []int64
	priorityIn  registry.PriorityInput
	priorityDel []int64
	sess        session.Session
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{objects: []domain.WaterObject{
		{ID: 1, Name: "Капшагай", RegionID: int64Ptr(1), RegionName: "Алматинская область", Fauna: true, TechnicalCondition: 2, PriorityScore: 15, PriorityLabel: domain.LabelHigh},
		{ID: 2, Name: "Балхаш", RegionID: int64Ptr(2), RegionName: "Карагандинская область", TechnicalCondition: 5, PriorityScore: 3, PriorityLabel: domain.LabelLow},
		{ID: 3, Name: "Сорбулак", RegionID: int64Ptr(1), RegionName: "Алматинская область", TechnicalCondition: 4, PriorityScore: 7, PriorityLabel: domain.LabelMedium},
	}}
}

func (f *fakeCatalog) Select(criteria domain.Criteria, spec domain.SortSpec) catalog.View {
	objects := domain.Apply(f.objects, criteria, spec)
	summary := domain.Aggregate(objects)
	return catalog.View{Objects: objects, Summary: summary, Charts: summary.Charts(), Sort: spec}
}

func (f *fakeCatalog) SortSpec() domain.SortSpec { return domain.DefaultSort }

func (f *fakeCatalog) Edit(ctx context.Context, id int64) (*catalog.Draft, error) {
	f.edited = append(f.edited, id)
	return f.Open(ctx, id)
}

func (f *fakeCatalog) Open(_ context.Context, id int64) (*catalog.Draft, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, o := range f.objects {
		if o.ID == id {
			d := &catalog.Draft{Object: o}
			if id == 1 {
				d.Priority = &domain.PriorityRecord{ObjectID: 1, Score: 15, Level: domain.LevelHigh, FormulaVersion: "v1"}
			}
			return d, nil
		}
	}
	return nil, &registry.StatusError{Operation: "get_object", StatusCode: http.StatusNotFound, Body: "not found"}
}

func (f *fakeCatalog) Save(_ context.Context, sess session.Session, draft *catalog.Draft) (domain.WaterObject, error) {
	f.sess = sess
	obj := draft.Object
	f.saved = &obj
	return obj, nil
}

func (f *fakeCatalog) Delete(_ context.Context, sess session.Session, id int64) error {
	f.sess = sess
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeCatalog) SavePriority(_ context.Context, sess session.Session, id int64, in registry.PriorityInput) (domain.PriorityRecord, error) {
	f.sess = sess
	f.priorityIn = in
	in = in.WithDefaults()
	return domain.PriorityRecord{ObjectID: id, Score: in.Score, Level: in.Level, FormulaVersion: in.FormulaVersion}, nil
}

func (f *fakeCatalog) DeletePriority(_ context.Context, sess session.Session, id int64) error {
	f.sess = sess
	f.priorityDel = append(f.priorityDel, id)
	return nil
}

func newTestServer(readyErr error, cat httpadapter.Catalog) *httpadapter.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, cat, logger)
}

func serve(t *testing.T, srv http.Handler, method, target, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func objectIDs(objects []domain.WaterObject) []int64 {
	ids := make([]int64, len(objects))
	for i, o := range objects {
		ids[i] = o.ID
	}
	return ids
}

func TestHealthzReturns200(t *testing.T) {
	rec := serve(t, newTestServer(nil, newFakeCatalog()), http.MethodGet, "/healthz", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := serve(t, newTestServer(nil, newFakeCatalog()), http.MethodGet, "/readyz", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := serve(t, newTestServer(fmt.Errorf("not ready yet"), newFakeCatalog()), http.MethodGet, "/readyz", "", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(t, newTestServer(nil, newFakeCatalog()), http.MethodGet, "/metrics", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestListObjects(t *testing.T) {
	srv := newTestServer(nil, newFakeCatalog())

	tests := []struct {
		name  string
		query string
		want  []int64
	}{
		{"default sort is priority descending", "", []int64{1, 3, 2}},
		{"sort by name ascending", "?sort=name", []int64{2, 1, 3}},
		{"sort by name descending", "?sort=name&dir=desc", []int64{3, 1, 2}},
		{"filter by region", "?region=1&sort=id", []int64{1, 3}},
		{"filter by search term", "?search=%D0%B1%D0%B0%D0%BB%D1%85", []int64{2}},
		{"filter by fauna", "?fauna=true", []int64{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, srv, http.MethodGet, "/api/objects"+tt.query, "", "")
			require.Equal(t, http.StatusOK, rec.Code)
			view := decode[catalog.View](t, rec)
			assert.Equal(t, tt.want, objectIDs(view.Objects))
			assert.Equal(t, len(tt.want), view.Summary.Total)
		})
	}
}

func TestListObjects_BadQuery(t *testing.T) {
	srv := newTestServer(nil, newFakeCatalog())

	for _, query := range []string{"?region=abc", "?sort=colour", "?sort=name&dir=sideways", "?technical_condition=9"} {
		t.Run(query, func(t *testing.T) {
			rec := serve(t, srv, http.MethodGet, "/api/objects"+query, "", "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])
		})
	}
}

func TestStats(t *testing.T) {
	rec := serve(t, newTestServer(nil, newFakeCatalog()), http.MethodGet, "/api/stats?region=1", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Summary domain.Summary `json:"summary"`
		Charts  domain.Charts  `json:"charts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Summary.Total)
	assert.Equal(t, 1, body.Summary.WithFauna)
	assert.InDelta(t, 3.0, body.Summary.AvgCondition, 1e-9)
	assert.Equal(t, []string{"Алматинская область"}, body.Charts.Regions.Labels)
	assert.Equal(t, []int{2}, body.Charts.Regions.Data)
}

func TestGetObject(t *testing.T) {
	srv := newTestServer(nil, newFakeCatalog())

	rec := serve(t, srv, http.MethodGet, "/api/objects/1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Object   domain.WaterObject     `json:"object"`
		Priority *domain.PriorityRecord `json:"priority"`
		Preview  catalog.Preview        `json:"preview"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Капшагай", body.Object.Name)
	require.NotNil(t, body.Priority)
	assert.Equal(t, domain.LevelHigh, body.Priority.Level)
	assert.NotEmpty(t, body.Preview.Label)
}

func TestGetObject_Errors(t *testing.T) {
	srv := newTestServer(nil, newFakeCatalog())

	assert.Equal(t, http.StatusNotFound, serve(t, srv, http.MethodGet, "/api/objects/99", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, srv, http.MethodGet, "/api/objects/abc", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, srv, http.MethodGet, "/api/objects/0", "", "").Code)

	cat := newFakeCatalog()
	cat.err = errors.New("connection refused")
	rec := serve(t, newTestServer(nil, cat), http.MethodGet, "/api/objects/1", "", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestUpdateObject(t *testing.T) {
	cat := newFakeCatalog()
	srv := newTestServer(nil, cat)

	rec := serve(t, srv, http.MethodPut, "/api/objects/2",
		`{"name":"Балхаш (восток)","technical_condition":3,"passport_date":"2024-01-10"}`, "tok")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []int64{2}, cat.edited, "updates read the object past the cache")
	require.NotNil(t, cat.saved)
	assert.Equal(t, "Балхаш (восток)", cat.saved.Name)
	assert.Equal(t, 3, cat.saved.TechnicalCondition)
	assert.Equal(t, "2024-01-10", cat.saved.PassportDate.Format(domain.PassportDateLayout))
	assert.Equal(t, "tok", cat.sess.Access)

	obj := decode[domain.WaterObject](t, rec)
	assert.Equal(t, int64(2), obj.ID)
}

func TestUpdateObject_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		token  string
		status int
	}{
		{"no token", `{"name":"x"}`, "", http.StatusUnauthorized},
		{"unknown field", `{"colour":"blue"}`, "tok", http.StatusBadRequest},
		{"malformed json", `{"name":`, "tok", http.StatusBadRequest},
		{"condition out of range", `{"technical_condition":0}`, "tok", http.StatusBadRequest},
		{"bad date", `{"passport_date":"10.01.2024"}`, "tok", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := newFakeCatalog()
			rec := serve(t, newTestServer(nil, cat), http.MethodPut, "/api/objects/2", tt.body, tt.token)
			assert.Equal(t, tt.status, rec.Code)
			assert.Nil(t, cat.saved)
		})
	}
}

func TestDeleteObject(t *testing.T) {
	cat := newFakeCatalog()
	srv := newTestServer(nil, cat)

	rec := serve(t, srv, http.MethodDelete, "/api/objects/3", "", "tok")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []int64{3}, cat.deleted)

	rec = serve(t, srv, http.MethodDelete, "/api/objects/3", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeleteObject_RegistryStatusPassesThrough(t *testing.T) {
	cat := newFakeCatalog()
	cat.err = fmt.Errorf("delete object 3: %w", &registry.StatusError{Operation: "delete_object", StatusCode: http.StatusForbidden, Body: "forbidden"})

	rec := serve(t, newTestServer(nil, cat), http.MethodDelete, "/api/objects/3", "", "tok")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteObject_AuthRequiredFromRegistry(t *testing.T) {
	cat := newFakeCatalog()
	cat.err = fmt.Errorf("delete object 3: %w", registry.ErrAuthRequired)

	rec := serve(t, newTestServer(nil, cat), http.MethodDelete, "/api/objects/3", "", "tok")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPutPriority(t *testing.T) {
	cat := newFakeCatalog()
	srv := newTestServer(nil, cat)

	rec := serve(t, srv, http.MethodPut, "/api/objects/2/priority", `{"score":12.5}`, "tok")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.InDelta(t, 12.5, cat.priorityIn.Score, 0)
	got := decode[domain.PriorityRecord](t, rec)
	assert.Equal(t, domain.LevelLow, got.Level)
	assert.Equal(t, "v1", got.FormulaVersion)
}

func TestPutPriority_UnknownLevel(t *testing.T) {
	rec := serve(t, newTestServer(nil, newFakeCatalog()), http.MethodPut, "/api/objects/2/priority", `{"score":1,"level":"urgent"}`, "tok")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeletePriority(t *testing.T) {
	cat := newFakeCatalog()
	rec := serve(t, newTestServer(nil, cat), http.MethodDelete, "/api/objects/1/priority", "", "tok")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []int64{1}, cat.priorityDel)
}
