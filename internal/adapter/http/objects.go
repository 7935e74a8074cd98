package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"

	"github.com/gidroatlas/atlas-service/internal/adapter/registry"
	"github.com/gidroatlas/atlas-service/internal/catalog"
	"github.com/gidroatlas/atlas-service/internal/domain"
	"github.com/gidroatlas/atlas-service/internal/session"
)

// Query parameters selecting the sort, alongside the filter parameters.
const (
	paramSort = "sort"
	paramDir  = "dir"
)

// maxBodyBytes bounds PUT request bodies.
const maxBodyBytes = 64 << 10

type statsResponse struct {
	Summary domain.Summary `json:"summary"`
	Charts  domain.Charts  `json:"charts"`
}

type objectResponse struct {
	Object   domain.WaterObject     `json:"object"`
	Priority *domain.PriorityRecord `json:"priority"`
	Preview  catalog.Preview        `json:"preview"`
}

func (s *Server) handleListObjects(w http.ResponseWriter, r *http.Request) {
	criteria, spec, err := s.parseQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, s.catalog.Select(criteria, spec))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	criteria, err := domain.ParseCriteria(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view := s.catalog.Select(criteria, domain.SortSpec{})
	sharedobs.WriteJSON(w, http.StatusOK, statsResponse{Summary: view.Summary, Charts: view.Charts})
}

func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	id, ok := objectID(w, r)
	if !ok {
		return
	}
	draft, err := s.catalog.Open(r.Context(), id)
	if err != nil {
		s.writeRegistryError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, objectResponse{
		Object:   draft.Object,
		Priority: draft.Priority,
		Preview:  draft.Preview(),
	})
}

func (s *Server) handleUpdateObject(w http.ResponseWriter, r *http.Request) {
	id, ok := objectID(w, r)
	if !ok {
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	var patch catalog.Patch
	if !decodeBody(w, r, &patch) {
		return
	}

	draft, err := s.catalog.Edit(r.Context(), id)
	if err != nil {
		s.writeRegistryError(w, err)
		return
	}
	if err := patch.Apply(draft); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	obj, err := s.catalog.Save(r.Context(), sess, draft)
	if err != nil {
		s.writeRegistryError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, obj)
}

func (s *Server) handleDeleteObject(w http.ResponseWriter, r *http.Request) {
	id, ok := objectID(w, r)
	if !ok {
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	if err := s.catalog.Delete(r.Context(), sess, id); err != nil {
		s.writeRegistryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePutPriority(w http.ResponseWriter, r *http.Request) {
	id, ok := objectID(w, r)
	if !ok {
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	var in registry.PriorityInput
	if !decodeBody(w, r, &in) {
		return
	}
	if _, known := in.Level.Label(); in.Level != "" && !known {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown priority level %q", in.Level))
		return
	}
	rec, err := s.catalog.SavePriority(r.Context(), sess, id, in)
	if err != nil {
		s.writeRegistryError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeletePriority(w http.ResponseWriter, r *http.Request) {
	id, ok := objectID(w, r)
	if !ok {
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	if err := s.catalog.DeletePriority(r.Context(), sess, id); err != nil {
		s.writeRegistryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseQuery reads the filter criteria and the sort. Without a sort
// parameter the catalog's current sort applies.
func (s *Server) parseQuery(q url.Values) (domain.Criteria, domain.SortSpec, error) {
	criteria, err := domain.ParseCriteria(q)
	if err != nil {
		return domain.Criteria{}, domain.SortSpec{}, err
	}
	if q.Get(paramSort) == "" {
		return criteria, s.catalog.SortSpec(), nil
	}
	key, err := domain.ParseSortKey(q.Get(paramSort))
	if err != nil {
		return domain.Criteria{}, domain.SortSpec{}, err
	}
	spec := domain.SortSpec{Key: key, Direction: domain.Asc}
	switch dir := domain.Direction(q.Get(paramDir)); dir {
	case "", domain.Asc:
	case domain.Desc:
		spec.Direction = domain.Desc
	default:
		return domain.Criteria{}, domain.SortSpec{}, fmt.Errorf("invalid %s %q", paramDir, dir)
	}
	return criteria, spec, nil
}

func objectID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid object id %q", raw))
		return 0, false
	}
	return id, true
}

// requireSession builds the caller's session from the bearer token.
func requireSession(w http.ResponseWriter, r *http.Request) (session.Session, bool) {
	sess := session.FromAuthorization(r.Header.Get("Authorization"))
	if !sess.Authenticated() {
		writeError(w, http.StatusUnauthorized, registry.ErrAuthRequired.Error())
		return session.Session{}, false
	}
	return sess, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeRegistryError maps a registry failure onto a response status. Auth
// and client errors from the registry pass through; anything else is 502.
func (s *Server) writeRegistryError(w http.ResponseWriter, err error) {
	var statusErr *registry.StatusError
	switch {
	case errors.Is(err, registry.ErrAuthRequired):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &statusErr) && statusErr.StatusCode >= 400 && statusErr.StatusCode < 500:
		writeError(w, statusErr.StatusCode, err.Error())
	default:
		s.logger.Warn("registry request failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
	}
}
