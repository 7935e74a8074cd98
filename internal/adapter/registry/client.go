// Package registry is the REST client for the GidroAtlas registry backend.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/gidroatlas/atlas-service/internal/domain"
	"github.com/gidroatlas/atlas-service/internal/observability"
	"github.com/gidroatlas/atlas-service/internal/session"
)

// DefaultBaseURL is the deployed registry backend.
const DefaultBaseURL = "https://back.gidroatlas.info"

const (
	pathObjects       = "/atla/objects/"
	pathRegions       = "/atla/regions/"
	pathResourceTypes = "/atla/resource-types/"
	pathWaterTypes    = "/atla/water-types/"
	pathLogin         = "/user/login/"
	pathRegister      = "/user/register/"

	// maxErrorBody bounds how much of a failed response is kept in StatusError.
	maxErrorBody = 4 << 10
)

// Client talks to the registry API. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a registry client. A non-positive requestsPerSecond
// disables rate limiting.
func NewClient(baseURL string, timeout time.Duration, requestsPerSecond float64, logger *slog.Logger, metrics *observability.Metrics) *Client {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if requestsPerSecond > 0 {
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: limiter,
		metrics: metrics,
		logger:  logger,
	}
}

// ListObjects fetches the objects matching c. Filtering is applied
// server-side through query parameters.
func (c *Client) ListObjects(ctx context.Context, criteria domain.Criteria) ([]domain.RawObject, error) {
	var raws []domain.RawObject
	req := request{
		operation: "list_objects",
		method:    http.MethodGet,
		path:      pathObjects,
		query:     criteria.QueryParams(),
		out:       &raws,
	}
	if err := c.do(ctx, req); err != nil {
		return nil, err
	}
	return raws, nil
}

// GetObject fetches one object by id.
func (c *Client) GetObject(ctx context.Context, id int64) (domain.RawObject, error) {
	var raw domain.RawObject
	req := request{
		operation: "get_object",
		method:    http.MethodGet,
		path:      objectPath(id),
		out:       &raw,
	}
	if err := c.do(ctx, req); err != nil {
		return domain.RawObject{}, err
	}
	return raw, nil
}

// UpdateObject replaces an object and returns the stored version.
func (c *Client) UpdateObject(ctx context.Context, sess session.Session, id int64, update ObjectUpdate) (domain.RawObject, error) {
	if !sess.Authenticated() {
		return domain.RawObject{}, ErrAuthRequired
	}
	var raw domain.RawObject
	req := request{
		operation: "update_object",
		method:    http.MethodPut,
		path:      objectPath(id),
		session:   sess,
		body:      update,
		out:       &raw,
	}
	if err := c.do(ctx, req); err != nil {
		return domain.RawObject{}, err
	}
	return raw, nil
}

// DeleteObject removes an object. 204 No Content counts as success.
func (c *Client) DeleteObject(ctx context.Context, sess session.Session, id int64) error {
	if !sess.Authenticated() {
		return ErrAuthRequired
	}
	return c.do(ctx, request{
		operation: "delete_object",
		method:    http.MethodDelete,
		path:      objectPath(id),
		session:   sess,
	})
}

// GetPriority fetches the priority record of an object. A missing record
// yields an error matching ErrNotFound.
func (c *Client) GetPriority(ctx context.Context, objectID int64) (domain.PriorityRecord, error) {
	var rec domain.PriorityRecord
	req := request{
		operation: "get_priority",
		method:    http.MethodGet,
		path:      priorityPath(objectID),
		out:       &rec,
	}
	if err := c.do(ctx, req); err != nil {
		return domain.PriorityRecord{}, err
	}
	return rec, nil
}

// PutPriority creates or replaces the priority record of an object.
func (c *Client) PutPriority(ctx context.Context, sess session.Session, objectID int64, in PriorityInput) (domain.PriorityRecord, error) {
	if !sess.Authenticated() {
		return domain.PriorityRecord{}, ErrAuthRequired
	}
	var rec domain.PriorityRecord
	req := request{
		operation: "put_priority",
		method:    http.MethodPut,
		path:      priorityPath(objectID),
		session:   sess,
		body:      in.WithDefaults(),
		out:       &rec,
	}
	if err := c.do(ctx, req); err != nil {
		return domain.PriorityRecord{}, err
	}
	return rec, nil
}

// DeletePriority removes the priority record of an object.
func (c *Client) DeletePriority(ctx context.Context, sess session.Session, objectID int64) error {
	if !sess.Authenticated() {
		return ErrAuthRequired
	}
	return c.do(ctx, request{
		operation: "delete_priority",
		method:    http.MethodDelete,
		path:      priorityPath(objectID),
		session:   sess,
	})
}

// Dictionaries fetches and indexes the id-to-name lookups.
func (c *Client) Dictionaries(ctx context.Context) (domain.Dictionaries, error) {
	lists, err := c.DictionaryLists(ctx)
	if err != nil {
		return domain.Dictionaries{}, err
	}
	return lists.Index(), nil
}

// DictionaryLists fetches regions, resource types and water types
// concurrently. Any single failure fails the whole load.
func (c *Client) DictionaryLists(ctx context.Context) (domain.DictionaryLists, error) {
	var lists domain.DictionaryLists

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lists.Regions, err = c.listDictionary(gctx, "regions", pathRegions)
		return err
	})
	g.Go(func() error {
		var err error
		lists.ResourceTypes, err = c.listDictionary(gctx, "resource_types", pathResourceTypes)
		return err
	})
	g.Go(func() error {
		var err error
		lists.WaterTypes, err = c.listDictionary(gctx, "water_types", pathWaterTypes)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.DictionaryLists{}, err
	}
	return lists, nil
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, creds Credentials) (session.Session, error) {
	var sess session.Session
	req := request{
		operation: "login",
		method:    http.MethodPost,
		path:      pathLogin,
		body:      creds,
		out:       &sess,
	}
	if err := c.do(ctx, req); err != nil {
		return session.Session{}, err
	}
	return sess, nil
}

// Register creates an account. The caller logs in separately afterwards.
func (c *Client) Register(ctx context.Context, creds Credentials) error {
	return c.do(ctx, request{
		operation: "register",
		method:    http.MethodPost,
		path:      pathRegister,
		body:      creds,
	})
}

func (c *Client) listDictionary(ctx context.Context, name, path string) ([]domain.DictionaryEntry, error) {
	var entries []domain.DictionaryEntry
	req := request{
		operation: "list_" + name,
		method:    http.MethodGet,
		path:      path,
		out:       &entries,
	}
	if err := c.do(ctx, req); err != nil {
		return nil, err
	}
	return entries, nil
}

type request struct {
	operation string
	method    string
	path      string
	query     url.Values
	session   session.Session
	body      any
	out       any
}

func (c *Client) do(ctx context.Context, r request) error {
	start := time.Now()
	err := c.doRequest(ctx, r)

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.metrics.RegistryRequests.WithLabelValues(r.operation, outcome).Inc()
	c.metrics.RegistryAPIDuration.WithLabelValues(r.operation).Observe(time.Since(start).Seconds())
	return err
}

func (c *Client) doRequest(ctx context.Context, r request) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limit: %w", r.operation, err)
	}

	fullURL := c.baseURL + r.path
	if len(r.query) > 0 {
		fullURL += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", r.operation, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, fullURL, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := r.session.BearerToken(); token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", r.operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Debug("registry request failed",
			"operation", r.operation,
			"status", resp.StatusCode,
			"request_id", requestID,
		)
		return &StatusError{Operation: r.operation, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if r.out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(r.out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%s: decode response: %w", r.operation, err)
	}
	return nil
}

func objectPath(id int64) string {
	return pathObjects + strconv.FormatInt(id, 10) + "/"
}

func priorityPath(objectID int64) string {
	return "/atla/priority-scores/" + strconv.FormatInt(objectID, 10) + "/by-object/"
}
