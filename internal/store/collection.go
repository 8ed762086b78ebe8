package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mmynk/planner/internal/metrics"
)

// Identity tells a Collection how to reach the identity fields of E.
type Identity[E any] struct {
	// ID returns a pointer to the entity's identifier field.
	ID func(*E) *string

	// Created stamps creation fields on Add. Nil when E has none.
	Created func(*E, time.Time)

	// Immutable copies the creation fields from src to dst after an update.
	// ID is always restored and does not need to be handled here.
	Immutable func(dst, src *E)

	// Touched is called after every update. Optional.
	Touched func(*E, time.Time)
}

// Collection is an ordered list of entities persisted under one key.
// Each collection writes only its own key.
type Collection[E any] struct {
	p     *Persister
	key   string
	ident Identity[E]
	items []E
}

// NewCollection creates an empty collection persisted under key.
func NewCollection[E any](p *Persister, key string, ident Identity[E]) *Collection[E] {
	return &Collection[E]{p: p, key: key, ident: ident, items: []E{}}
}

// Key returns the storage key of the collection.
func (c *Collection[E]) Key() string { return c.key }

// Len returns the number of entities.
func (c *Collection[E]) Len() int {
	c.p.mu.RLock()
	defer c.p.mu.RUnlock()
	return len(c.items)
}

// List returns a snapshot of the entities in insertion order.
func (c *Collection[E]) List() []E {
	c.p.mu.RLock()
	defer c.p.mu.RUnlock()
	out := make([]E, len(c.items))
	copy(out, c.items)
	return out
}

// Get returns the entity with the given id.
func (c *Collection[E]) Get(id string) (E, bool) {
	c.p.mu.RLock()
	defer c.p.mu.RUnlock()
	if i := c.index(id); i >= 0 {
		return c.items[i], true
	}
	var zero E
	return zero, false
}

// Add assigns a fresh id (and creation stamp) to e, appends it and
// persists the collection. Any id or creation stamp already set on e is
// overwritten.
func (c *Collection[E]) Add(ctx context.Context, e E) E {
	c.p.mu.Lock()
	*c.ident.ID(&e) = c.p.opts.NewID()
	if c.ident.Created != nil {
		c.ident.Created(&e, c.p.opts.Now())
	}
	c.items = append(c.items, e)
	failure := c.persist(ctx)
	c.p.mu.Unlock()

	c.p.report(failure)
	return e
}

// Update applies fn to the entity with the given id and persists the
// collection. The id and creation fields are restored after fn runs.
// It reports false, and does nothing, when id is absent.
func (c *Collection[E]) Update(ctx context.Context, id string, fn func(*E)) bool {
	c.p.mu.Lock()
	i := c.index(id)
	if i < 0 {
		c.p.mu.Unlock()
		return false
	}
	original := c.items[i]
	updated := original
	fn(&updated)
	c.restore(&updated, &original)
	c.items[i] = updated
	failure := c.persist(ctx)
	c.p.mu.Unlock()

	c.p.report(failure)
	return true
}

// Patch merges a partial JSON object into the entity with the given id.
// Fields absent from patch keep their value. An invalid patch changes
// nothing and returns an error.
func (c *Collection[E]) Patch(ctx context.Context, id string, patch []byte) (bool, error) {
	c.p.mu.Lock()
	i := c.index(id)
	if i < 0 {
		c.p.mu.Unlock()
		return false, nil
	}
	original := c.items[i]
	// Decoding into a shallow copy would write through shared slices,
	// maps and pointers, so start from a deep copy.
	var updated E
	if err := deepCopy(&updated, original); err != nil {
		c.p.mu.Unlock()
		return true, err
	}
	if err := json.Unmarshal(patch, &updated); err != nil {
		c.p.mu.Unlock()
		return true, fmt.Errorf("failed to apply patch to %s: %w", id, err)
	}
	c.restore(&updated, &original)
	c.items[i] = updated
	failure := c.persist(ctx)
	c.p.mu.Unlock()

	c.p.report(failure)
	return true, nil
}

// Delete removes the entity with the given id. Missing ids are a no-op.
func (c *Collection[E]) Delete(ctx context.Context, id string) bool {
	c.p.mu.Lock()
	i := c.index(id)
	if i < 0 {
		c.p.mu.Unlock()
		return false
	}
	c.items = append(c.items[:i:i], c.items[i+1:]...)
	failure := c.persist(ctx)
	c.p.mu.Unlock()

	c.p.report(failure)
	return true
}

// ListJSON encodes the collection.
func (c *Collection[E]) ListJSON() ([]byte, error) {
	return json.Marshal(c.List())
}

// GetJSON encodes a single entity.
func (c *Collection[E]) GetJSON(id string) ([]byte, bool, error) {
	e, ok := c.Get(id)
	if !ok {
		return nil, false, nil
	}
	data, err := json.Marshal(e)
	return data, true, err
}

// AddJSON decodes data into a new entity, adds it and returns it encoded.
func (c *Collection[E]) AddJSON(ctx context.Context, data []byte) ([]byte, error) {
	var e E
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to decode entity for %s: %w", c.key, err)
	}
	return json.Marshal(c.Add(ctx, e))
}

// load replaces the in-memory entities with the stored ones. Malformed or
// unreadable data leaves the collection empty. Callers hold p.mu.
func (c *Collection[E]) load(ctx context.Context) {
	var items []E
	ok, err := c.p.read(ctx, c.key, &items)
	if err == nil && ok {
		err = c.validate(items)
	}
	switch {
	case err != nil:
		c.p.loadFailed(c.key, err)
		c.items = []E{}
	case !ok || items == nil:
		c.items = []E{}
	default:
		c.items = items
	}
	metrics.SetCollectionSize(c.key, len(c.items))
}

// validate rejects data that decoded but does not look like entities.
func (c *Collection[E]) validate(items []E) error {
	seen := make(map[string]bool, len(items))
	for i := range items {
		id := *c.ident.ID(&items[i])
		if id == "" {
			return fmt.Errorf("entity %d in %s has no id", i, c.key)
		}
		if seen[id] {
			return fmt.Errorf("duplicate id %s in %s", id, c.key)
		}
		seen[id] = true
	}
	return nil
}

// reset empties the collection without writing. Callers hold p.mu.
func (c *Collection[E]) reset() {
	c.items = []E{}
	metrics.SetCollectionSize(c.key, 0)
}

func (c *Collection[E]) persist(ctx context.Context) *WriteFailure {
	metrics.SetCollectionSize(c.key, len(c.items))
	return c.p.write(ctx, c.key, c.items)
}

func (c *Collection[E]) restore(updated, original *E) {
	*c.ident.ID(updated) = *c.ident.ID(original)
	if c.ident.Immutable != nil {
		c.ident.Immutable(updated, original)
	}
	if c.ident.Touched != nil {
		c.ident.Touched(updated, c.p.opts.Now())
	}
}

func (c *Collection[E]) index(id string) int {
	for i := range c.items {
		if *c.ident.ID(&c.items[i]) == id {
			return i
		}
	}
	return -1
}

// Load reads the collection from storage and enables writes on its
// persister. It is meant for owners of a single collection; the Store
// loads all of its collections at once.
func (c *Collection[E]) Load(ctx context.Context) {
	c.p.mu.Lock()
	c.load(ctx)
	c.p.hydrated = true
	c.p.mu.Unlock()

	c.p.flushLoadFailures()
}

// Clear empties the collection and removes its key.
func (c *Collection[E]) Clear(ctx context.Context) {
	c.p.mu.Lock()
	c.reset()
	failure := c.p.remove(ctx, c.key)
	c.p.mu.Unlock()

	c.p.report(failure)
}

func deepCopy[E any](dst *E, src E) error {
	data, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("failed to copy entity: %w", err)
	}
	return json.Unmarshal(data, dst)
}
