package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/gidroatlas/atlas-service/internal/adapter/registry"
	"github.com/gidroatlas/atlas-service/internal/domain"
	"github.com/gidroatlas/atlas-service/internal/session"
)

// detailReloader is implemented by registries that cache object details.
type detailReloader interface {
	ReloadObject(ctx context.Context, id int64) (domain.RawObject, error)
}

// Open loads the detail and priority record of an object into a draft.
// Both are fetched concurrently. A failed detail fetch falls back to the
// collection entry; a missing priority record leaves Draft.Priority nil.
func (c *Catalog) Open(ctx context.Context, id int64) (*Draft, error) {
	return c.open(ctx, id, c.registry.GetObject, true)
}

// Edit is Open for a draft that will be saved. The detail is read past any
// cache and a failed read is an error, so a save never replaces the object
// with an outdated copy.
func (c *Catalog) Edit(ctx context.Context, id int64) (*Draft, error) {
	fetch := c.registry.GetObject
	if r, ok := c.registry.(detailReloader); ok {
		fetch = r.ReloadObject
	}
	return c.open(ctx, id, fetch, false)
}

func (c *Catalog) open(ctx context.Context, id int64, fetch func(context.Context, int64) (domain.RawObject, error), fallback bool) (*Draft, error) {
	var (
		raw       domain.RawObject
		detailErr error
		rec       domain.PriorityRecord
		recErr    error
	)

	var g errgroup.Group
	g.Go(func() error {
		raw, detailErr = fetch(ctx, id)
		return nil
	})
	g.Go(func() error {
		rec, recErr = c.registry.GetPriority(ctx, id)
		return nil
	})
	_ = g.Wait()

	draft := &Draft{}
	if detailErr == nil {
		draft.Object = domain.Normalize(raw, c.Dictionaries())
	} else {
		obj, ok := c.Object(id)
		if !fallback || !ok {
			return nil, fmt.Errorf("open object %d: %w", id, detailErr)
		}
		c.logger.Warn("failed to load object detail, using list entry", "id", id, "error", detailErr)
		draft.Object = obj
	}

	switch {
	case recErr == nil:
		draft.Priority = &rec
	case errors.Is(recErr, registry.ErrNotFound):
		// no record yet
	default:
		c.logger.Warn("failed to load priority record", "id", id, "error", recErr)
	}
	return draft, nil
}

// Save writes the draft back and replaces the collection entry with the
// stored version. On failure the collection is left unchanged.
func (c *Catalog) Save(ctx context.Context, sess session.Session, draft *Draft) (domain.WaterObject, error) {
	c.mutate.Lock()
	defer c.mutate.Unlock()

	id := draft.Object.ID
	raw, err := c.registry.UpdateObject(ctx, sess, id, registry.NewObjectUpdate(draft.Object))
	if err != nil {
		c.setMessage(MsgSaveFailed)
		return domain.WaterObject{}, fmt.Errorf("save object %d: %w", id, err)
	}

	c.replace(func(raws []domain.RawObject) []domain.RawObject {
		for i := range raws {
			if raws[i].ID == raw.ID {
				raws[i] = raw
			}
		}
		return raws
	})
	draft.Object = domain.Normalize(raw, c.Dictionaries())
	c.setMessage(MsgObjectSaved)
	c.logger.Info("object saved", "id", id, "email", sess.Email)
	return draft.Object, nil
}

// Delete removes an object and drops it from the collection.
func (c *Catalog) Delete(ctx context.Context, sess session.Session, id int64) error {
	c.mutate.Lock()
	defer c.mutate.Unlock()

	if err := c.registry.DeleteObject(ctx, sess, id); err != nil {
		c.setMessage(MsgDeleteFailed)
		return fmt.Errorf("delete object %d: %w", id, err)
	}

	c.replace(func(raws []domain.RawObject) []domain.RawObject {
		return slices.DeleteFunc(raws, func(r domain.RawObject) bool { return r.ID == id })
	})
	c.setMessage(MsgObjectDeleted)
	c.logger.Info("object deleted", "id", id, "email", sess.Email)
	return nil
}

// SavePriority stores a priority record. The object's score becomes the
// record's score and its label is reclassified from that score.
func (c *Catalog) SavePriority(ctx context.Context, sess session.Session, id int64, in registry.PriorityInput) (domain.PriorityRecord, error) {
	c.mutate.Lock()
	defer c.mutate.Unlock()

	rec, err := c.registry.PutPriority(ctx, sess, id, in)
	if err != nil {
		c.setMessage(MsgPrioritySaveFailed)
		return domain.PriorityRecord{}, fmt.Errorf("save priority %d: %w", id, err)
	}

	c.replace(func(raws []domain.RawObject) []domain.RawObject {
		for i := range raws {
			if raws[i].ID == id {
				raws[i].PriorityScore = domain.Float(rec.Score)
				raws[i].Priority = domain.LenientFloat{}
				raws[i].PriorityLevel = ""
			}
		}
		return raws
	})
	c.setMessage(MsgPrioritySaved)
	c.logger.Info("priority saved", "id", id, "score", rec.Score, "level", rec.Level)
	return rec, nil
}

// DeletePriority removes a priority record. The object's displayed score is
// left as it was.
func (c *Catalog) DeletePriority(ctx context.Context, sess session.Session, id int64) error {
	c.mutate.Lock()
	defer c.mutate.Unlock()

	if err := c.registry.DeletePriority(ctx, sess, id); err != nil {
		c.setMessage(MsgPriorityDeleteFailed)
		return fmt.Errorf("delete priority %d: %w", id, err)
	}
	c.setMessage(MsgPriorityDeleted)
	c.logger.Info("priority deleted", "id", id)
	return nil
}
