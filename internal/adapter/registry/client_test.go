package registry

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gidroatlas/atlas-service/internal/domain"
	"github.com/gidroatlas/atlas-service/internal/observability"
	"github.com/gidroatlas/atlas-service/internal/session"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

var expert = session.Session{Email: "expert@example.org", UserType: "expert", Access: "acc-token"}

func testClient(baseURL string) *Client {
	return NewClient(baseURL, 5*time.Second, 0,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		observability.NewMetricsForTesting(),
	)
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set(headerContentType, contentTypeJSON)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestClient_ListObjects_SendsCriteria(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/atla/objects/", r.URL.Path)
		assert.Equal(t, "озеро", r.URL.Query().Get("search"))
		assert.Equal(t, "3", r.URL.Query().Get("region"))
		assert.Equal(t, "true", r.URL.Query().Get("fauna"))
		_, err := uuid.Parse(r.Header.Get("X-Request-ID"))
		assert.NoError(t, err, "request id should be a uuid")
		assert.Empty(t, r.Header.Get("Authorization"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`[
			{"id": 1, "name": "Озеро Балхаш", "region": 3, "technical_condition": "2", "priority_score": 14.5},
			{"id": 2, "name": "Озеро Зайсан", "region": 3, "latitude": null}
		]`))
	}))
	defer srv.Close()

	region := int64(3)
	fauna := true
	c := testClient(srv.URL)
	raws, err := c.ListObjects(context.Background(), domain.Criteria{SearchTerm: "озеро", Region: &region, Fauna: &fauna})
	require.NoError(t, err)
	require.Len(t, raws, 2)

	assert.Equal(t, "Озеро Балхаш", raws[0].Name)
	assert.Equal(t, domain.Float(2), raws[0].TechnicalCondition)
	assert.Equal(t, domain.Float(14.5), raws[0].PriorityScore)
	assert.False(t, raws[1].Latitude.Valid)
}

func TestClient_ListObjects_NoQueryWhenCriteriaEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		writeJSON(t, w, []any{})
	}))
	defer srv.Close()

	raws, err := testClient(srv.URL).ListObjects(context.Background(), domain.Criteria{})
	require.NoError(t, err)
	assert.Empty(t, raws)
}

func TestClient_ListObjects_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ListObjects(context.Background(), domain.Criteria{})
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, "upstream down", statusErr.Body)
	assert.Contains(t, err.Error(), "502")
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestClient_GetObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/atla/objects/42/", r.URL.Path)
		writeJSON(t, w, map[string]any{"id": 42, "name": "Капшагай", "pdf": "https://example.org/p.pdf"})
	}))
	defer srv.Close()

	raw, err := testClient(srv.URL).GetObject(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), raw.ID)
	require.NotNil(t, raw.PDF)
	assert.Equal(t, "https://example.org/p.pdf", *raw.PDF)
}

func TestClient_UpdateObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/atla/objects/7/", r.URL.Path)
		assert.Equal(t, "Bearer acc-token", r.Header.Get("Authorization"))
		assert.Equal(t, contentTypeJSON, r.Header.Get(headerContentType))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Сорбулак", body["name"])
		assert.Nil(t, body["water_type"])
		assert.Nil(t, body["pdf"])
		assert.InDelta(t, 9.5, body["priority"], 1e-9)

		writeJSON(t, w, map[string]any{"id": 7, "name": "Сорбулак"})
	}))
	defer srv.Close()

	update := ObjectUpdate{Name: "Сорбулак", Priority: 9.5}
	raw, err := testClient(srv.URL).UpdateObject(context.Background(), expert, 7, update)
	require.NoError(t, err)
	assert.Equal(t, "Сорбулак", raw.Name)
}

func TestClient_MutationsRequireAuth(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	ctx := context.Background()
	guest := session.Session{}

	_, err := c.UpdateObject(ctx, guest, 1, ObjectUpdate{})
	require.ErrorIs(t, err, ErrAuthRequired)
	require.ErrorIs(t, c.DeleteObject(ctx, guest, 1), ErrAuthRequired)
	_, err = c.PutPriority(ctx, guest, 1, PriorityInput{})
	require.ErrorIs(t, err, ErrAuthRequired)
	require.ErrorIs(t, c.DeletePriority(ctx, guest, 1), ErrAuthRequired)

	assert.Equal(t, int32(0), calls.Load(), "no request should be sent without a token")
}

func TestClient_Delete_NoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	require.NoError(t, c.DeleteObject(context.Background(), expert, 3))
	require.NoError(t, c.DeletePriority(context.Background(), expert, 3))
}

func TestClient_GetPriority_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/atla/priority-scores/5/by-object/", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).GetPriority(context.Background(), 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_PutPriority_AppliesDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		var in PriorityInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, domain.LevelLow, in.Level)
		assert.Equal(t, "v1", in.FormulaVersion)
		writeJSON(t, w, map[string]any{"object": 5, "score": in.Score, "level": in.Level, "formula_version": in.FormulaVersion})
	}))
	defer srv.Close()

	rec, err := testClient(srv.URL).PutPriority(context.Background(), expert, 5, PriorityInput{Score: 13})
	require.NoError(t, err)
	assert.Equal(t, int64(5), rec.ObjectID)
	assert.InDelta(t, 13.0, rec.Score, 0)
	assert.Equal(t, domain.LevelLow, rec.Level)
}

func TestClient_Dictionaries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/atla/regions/":
			writeJSON(t, w, []domain.DictionaryEntry{{ID: 1, Name: "Алматинская"}})
		case "/atla/resource-types/":
			writeJSON(t, w, []domain.DictionaryEntry{{ID: 2, Name: "Озеро"}})
		case "/atla/water-types/":
			writeJSON(t, w, []domain.DictionaryEntry{{ID: 3, Name: "Пресная"}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dicts, err := testClient(srv.URL).Dictionaries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Алматинская", dicts.Regions[1])
	assert.Equal(t, "Озеро", dicts.ResourceTypes[2])
	assert.Equal(t, "Пресная", dicts.WaterTypes[3])
}

func TestClient_Dictionaries_AnyFailureFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/atla/water-types/" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(t, w, []domain.DictionaryEntry{})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Dictionaries(context.Background())
	require.Error(t, err)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "list_water_types", statusErr.Operation)
}

func TestClient_Login(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/user/login/", r.URL.Path)
		var creds Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Неверный пароль"}`))
			return
		}
		writeJSON(t, w, map[string]string{"email": creds.Email, "user_type": "expert", "access": "a", "refresh": "r"})
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	sess, err := c.Login(context.Background(), Credentials{Email: "e@example.org", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, session.Session{Email: "e@example.org", UserType: "expert", Access: "a", Refresh: "r"}, sess)

	_, err = c.Login(context.Background(), Credentials{Email: "e@example.org", Password: "wrong"})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "Неверный пароль")
}

func TestClient_Register(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/register/", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		writeJSON(t, w, map[string]string{"email": "new@example.org"})
	}))
	defer srv.Close()

	require.NoError(t, testClient(srv.URL).Register(context.Background(), Credentials{Email: "new@example.org", Password: "p"}))
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.httpClient.Timeout = 50 * time.Millisecond

	_, err := c.GetObject(context.Background(), 1)
	require.Error(t, err)
}

func TestClient_RateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"id": 1})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, 0.5,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		observability.NewMetricsForTesting(),
	)
	_, err := c.GetObject(context.Background(), 1)
	require.NoError(t, err, "first request consumes the burst")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.GetObject(ctx, 1)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestNewObjectUpdate(t *testing.T) {
	region := int64(4)
	zero := int64(0)
	obj := domain.WaterObject{
		ID:                 9,
		Name:               "Капшагай",
		RegionID:           &region,
		WaterTypeID:        &zero,
		Fauna:              true,
		PassportDate:       time.Date(2010, time.June, 1, 0, 0, 0, 0, time.UTC),
		TechnicalCondition: 3,
		Latitude:           43.9,
		Longitude:          77.1,
		PDFURL:             domain.NoPDF,
		PriorityScore:      24.8,
	}

	u := NewObjectUpdate(obj)
	require.NotNil(t, u.Region)
	assert.Equal(t, int64(4), *u.Region)
	assert.Nil(t, u.ResourceType)
	assert.Nil(t, u.WaterType, "zero ids are sent as null")
	assert.Nil(t, u.PDF, "the no-pdf sentinel is sent as null")
	assert.Equal(t, "2010-06-01", u.PassportDate)
	assert.InDelta(t, 24.8, u.Priority, 0)

	obj.PDFURL = "https://example.org/doc.pdf"
	u = NewObjectUpdate(obj)
	require.NotNil(t, u.PDF)
	assert.Equal(t, "https://example.org/doc.pdf", *u.PDF)
}
