package pipeline_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gidroatlas/atlas-service/internal/adapter/registry"
	"github.com/gidroatlas/atlas-service/internal/catalog"
	"github.com/gidroatlas/atlas-service/internal/domain"
	"github.com/gidroatlas/atlas-service/internal/pipeline"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "data", "mock", name))
	require.NoError(t, err)
	return data
}

// fixtureServer serves the mock registry fixtures on the deployed paths.
func fixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	objects := readFixture(t, "water_objects.json")

	var lists domain.DictionaryLists
	require.NoError(t, json.Unmarshal(readFixture(t, "dictionaries.json"), &lists))

	serve := func(v any) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(v)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /atla/objects/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(objects)
	})
	mux.HandleFunc("GET /atla/regions/", serve(lists.Regions))
	mux.HandleFunc("GET /atla/resource-types/", serve(lists.ResourceTypes))
	mux.HandleFunc("GET /atla/water-types/", serve(lists.WaterTypes))
	return httptest.NewServer(mux)
}

func TestPipeline_WithMockRegistryData(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	srv := fixtureServer(t)
	defer srv.Close()

	metrics := newTestMetrics()
	client := registry.NewClient(srv.URL, 5*time.Second, 0, quietLogger(), metrics)
	cat := catalog.New(client, nil, quietLogger())
	ldr := &mockLoader{}

	p := pipeline.New(pipeline.NewExtractor(cat, quietLogger()), pipeline.NewTransformer(quietLogger()), ldr, quietLogger(), metrics, 4)
	require.NoError(t, p.RunOnce(context.Background()))

	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}, ldr.loadedKeys())
	assert.Len(t, ldr.batches, 3)

	objects := cat.Objects()
	require.Len(t, objects, 10)
	byID := make(map[int64]domain.WaterObject, len(objects))
	for _, o := range objects {
		byID[o.ID] = o
	}

	cases := []struct {
		id        int64
		label     domain.PriorityLabel
		region    string
		waterType string
		condition int
	}{
		{1, domain.LabelHigh, "Алматинская область", "Пресная", 3},
		{2, domain.LabelMedium, "Карагандинская область", "Солёная", 2},
		{3, domain.LabelLow, "Алматинская область", domain.NoWaterType, 5},
		{4, domain.LabelMedium, "Восточно-Казахстанская область", "Пресная", 4},
		{5, domain.LabelHigh, "Восточно-Казахстанская область", "Пресная", 2},
		{6, domain.LabelLow, "Жамбылская область", "Пресная", 5},
		{7, domain.LabelHigh, "Карагандинская область", domain.NoWaterType, 4},
		{8, domain.LabelHigh, "Регион 99", "Солёная", 1},
		{9, domain.LabelHigh, "Алматинская область", "Солёная", domain.UnknownCondition},
		{10, domain.LabelLow, "Карагандинская область", "Пресная", 5},
	}
	for _, tc := range cases {
		obj := byID[tc.id]
		assert.Equal(t, tc.label, obj.PriorityLabel, "object %d label", tc.id)
		assert.Equal(t, tc.region, obj.RegionName, "object %d region", tc.id)
		assert.Equal(t, tc.waterType, obj.WaterTypeName, "object %d water type", tc.id)
		assert.Equal(t, tc.condition, obj.TechnicalCondition, "object %d condition", tc.id)
	}

	// Server-supplied priority wins over the formula.
	assert.InDelta(t, 8.4, byID[2].PriorityScore, 0)
	assert.InDelta(t, 5.0, byID[5].PriorityScore, 0)
	assert.InDelta(t, 4.5, byID[6].PriorityScore, 0)
	assert.InDelta(t, 18.0, byID[9].PriorityScore, 1e-9)

	assert.InDelta(t, 47.85, byID[10].Latitude, 0)
	assert.InDelta(t, 0, byID[10].Longitude, 0)
	assert.False(t, byID[10].HasPDF())
	assert.True(t, byID[1].HasPDF())

	view := cat.View(domain.DefaultSort)
	s := view.Summary
	assert.Equal(t, 10, s.Total)
	assert.Equal(t, 5, s.WithFauna)
	assert.InDelta(t, 3.1, s.AvgCondition, 1e-9)
	assert.Equal(t, 5, s.PriorityCount(domain.LabelHigh))
	assert.Equal(t, 2, s.PriorityCount(domain.LabelMedium))
	assert.Equal(t, 3, s.PriorityCount(domain.LabelLow))
	assert.Equal(t, s.Total, s.PriorityCount(domain.LabelHigh)+s.PriorityCount(domain.LabelMedium)+s.PriorityCount(domain.LabelLow))

	regions := map[string]int{}
	for _, b := range s.ByRegion {
		regions[b.Label] = b.Count
	}
	assert.Equal(t, map[string]int{
		"Алматинская область":            3,
		"Карагандинская область":         3,
		"Восточно-Казахстанская область": 2,
		"Жамбылская область":             1,
		"Регион 99":                      1,
	}, regions)

	waterTypes := map[string]int{}
	for _, b := range s.ByWaterType {
		waterTypes[b.Label] = b.Count
	}
	assert.Equal(t, map[string]int{"Пресная": 5, "Солёная": 3, domain.NoWaterType: 2}, waterTypes)
}
