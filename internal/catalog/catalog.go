// Package catalog owns the in-memory water object collection and the
// operations a user performs on it: refreshing with filter criteria,
// sorting, charting, and editing single objects through the registry.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/gidroatlas/atlas-service/internal/adapter/registry"
	"github.com/gidroatlas/atlas-service/internal/domain"
	"github.com/gidroatlas/atlas-service/internal/session"
)

// User-visible status messages.
const (
	MsgDictionariesFailed   = "Не удалось загрузить справочники"
	MsgObjectsFailed        = "Не удалось загрузить объекты"
	MsgObjectSaved          = "Объект сохранён"
	MsgObjectDeleted        = "Объект удалён"
	MsgSaveFailed           = "Не удалось сохранить объект"
	MsgDeleteFailed         = "Не удалось удалить объект"
	MsgPrioritySaved        = "Приоритет сохранён"
	MsgPriorityDeleted      = "Приоритет удалён"
	MsgPrioritySaveFailed   = "Не удалось сохранить приоритет"
	MsgPriorityDeleteFailed = "Не удалось удалить приоритет"
	MsgAuthFailed           = "Ошибка авторизации"
)

// ErrSuperseded is returned by Refresh when a newer refresh started before
// this one completed. The stale result is discarded.
var ErrSuperseded = errors.New("catalog: refresh superseded")

// Registry is the subset of the registry API the catalog uses.
type Registry interface {
	ListObjects(ctx context.Context, criteria domain.Criteria) ([]domain.RawObject, error)
	GetObject(ctx context.Context, id int64) (domain.RawObject, error)
	UpdateObject(ctx context.Context, sess session.Session, id int64, update registry.ObjectUpdate) (domain.RawObject, error)
	DeleteObject(ctx context.Context, sess session.Session, id int64) error
	GetPriority(ctx context.Context, objectID int64) (domain.PriorityRecord, error)
	PutPriority(ctx context.Context, sess session.Session, objectID int64, in registry.PriorityInput) (domain.PriorityRecord, error)
	DeletePriority(ctx context.Context, sess session.Session, objectID int64) error
	Dictionaries(ctx context.Context) (domain.Dictionaries, error)
	Login(ctx context.Context, creds registry.Credentials) (session.Session, error)
	Register(ctx context.Context, creds registry.Credentials) error
}

// View is the derived state rendered after each transition.
type View struct {
	Objects []domain.WaterObject `json:"objects"`
	Summary domain.Summary       `json:"summary"`
	Charts  domain.Charts        `json:"charts"`
	Sort    domain.SortSpec      `json:"sort"`
	Message string               `json:"message,omitempty"`
}

// Catalog holds the current collection. The collection is replaced
// wholesale on every change and never mutated in place, so slices handed
// out by Objects and View stay valid.
type Catalog struct {
	registry Registry
	sessions SessionStore
	logger   *slog.Logger

	mu         sync.RWMutex
	dicts      domain.Dictionaries
	criteria   domain.Criteria
	raws       []domain.RawObject
	objects    []domain.WaterObject
	sort       domain.SortSpec
	message    string
	generation uint64
	cancel     context.CancelFunc

	// mutate serializes edits so one mutation is in flight at a time.
	mutate sync.Mutex
}

// New creates an empty catalog. sessions may be nil when the caller
// manages sessions itself.
func New(reg Registry, sessions SessionStore, logger *slog.Logger) *Catalog {
	return &Catalog{
		registry: reg,
		sessions: sessions,
		logger:   logger,
		sort:     domain.DefaultSort,
	}
}

// LoadDictionaries fetches the id-to-name lookups and re-normalizes the
// current collection against them. On failure the previous lookups stay in
// place and names render as placeholders.
func (c *Catalog) LoadDictionaries(ctx context.Context) error {
	dicts, err := c.registry.Dictionaries(ctx)
	if err != nil {
		c.logger.Warn("failed to load dictionaries", "error", err)
		c.setMessage(MsgDictionariesFailed)
		return fmt.Errorf("load dictionaries: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.dicts = dicts
	c.objects = domain.NormalizeAll(c.raws, dicts)
	return nil
}

// Refresh replaces the collection with the objects matching criteria.
// Filtering happens server-side. Starting a refresh cancels any refresh
// still in flight; a superseded refresh returns ErrSuperseded and leaves
// state untouched. On failure the collection becomes empty.
func (c *Catalog) Refresh(ctx context.Context, criteria domain.Criteria) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.generation++
	gen := c.generation
	c.cancel = cancel
	c.criteria = criteria
	c.mu.Unlock()

	raws, err := c.registry.ListObjects(ctx, criteria)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return ErrSuperseded
	}
	c.cancel = nil

	if err != nil {
		c.logger.Warn("failed to load objects", "error", err)
		c.raws = nil
		c.objects = nil
		c.message = MsgObjectsFailed
		return fmt.Errorf("refresh objects: %w", err)
	}

	c.raws = raws
	c.objects = domain.NormalizeAll(raws, c.dicts)
	c.message = ""
	return nil
}

// Objects returns the current collection in fetch order.
func (c *Catalog) Objects() []domain.WaterObject {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.objects
}

// Object returns the collection entry with id.
func (c *Catalog) Object(id int64) (domain.WaterObject, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := slices.IndexFunc(c.objects, func(o domain.WaterObject) bool { return o.ID == id })
	if i < 0 {
		return domain.WaterObject{}, false
	}
	return c.objects[i], true
}

// Criteria returns the criteria of the last refresh.
func (c *Catalog) Criteria() domain.Criteria {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.criteria
}

// Dictionaries returns the loaded lookups.
func (c *Catalog) Dictionaries() domain.Dictionaries {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dicts
}

// Message returns the latest status message.
func (c *Catalog) Message() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.message
}

// SortSpec returns the current sort.
func (c *Catalog) SortSpec() domain.SortSpec {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sort
}

// ToggleSort applies a column selection to the current sort and returns it.
func (c *Catalog) ToggleSort(key domain.SortKey) domain.SortSpec {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sort = c.sort.Toggle(key)
	return c.sort
}

// View sorts the collection with spec and aggregates the result.
func (c *Catalog) View(spec domain.SortSpec) View {
	return c.Select(domain.Criteria{}, spec)
}

// Select filters the collection locally, sorts it and aggregates the result.
func (c *Catalog) Select(criteria domain.Criteria, spec domain.SortSpec) View {
	c.mu.RLock()
	objects, message := c.objects, c.message
	c.mu.RUnlock()

	sorted := domain.Apply(objects, criteria, spec)
	summary := domain.Aggregate(sorted)
	return View{
		Objects: sorted,
		Summary: summary,
		Charts:  summary.Charts(),
		Sort:    spec,
		Message: message,
	}
}

func (c *Catalog) setMessage(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.message = msg
}

// replace swaps in a copy of the raw collection with fn applied and
// re-normalizes it.
func (c *Catalog) replace(fn func([]domain.RawObject) []domain.RawObject) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.raws = fn(slices.Clone(c.raws))
	c.objects = domain.NormalizeAll(c.raws, c.dicts)
}
