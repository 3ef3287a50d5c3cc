package subdoc

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultRepairAttempts = 3

// Collection runs the append/patch/remove protocol for one kind of parent
// document on top of a Store.
type Collection struct {
	store          Store
	log            zerolog.Logger
	repairAttempts int
}

func NewCollection(store Store, log zerolog.Logger) *Collection {
	return &Collection{
		store:          store,
		log:            log.With().Str("kind", store.Layout().Kind).Logger(),
		repairAttempts: defaultRepairAttempts,
	}
}

func (c *Collection) Layout() Layout {
	return c.store.Layout()
}

// Append stores item under a freshly generated identifier, creating the
// owner's parent document if needed.
func (c *Collection) Append(ctx context.Context, owner primitive.ObjectID, item Item) (*Parent, error) {
	if err := checkFields(item); err != nil {
		return nil, err
	}
	item = cloneItem(item)
	delete(item, "id")
	item["_id"] = primitive.NewObjectID()

	return c.store.Append(ctx, owner, item)
}

func (c *Collection) Get(ctx context.Context, owner primitive.ObjectID) (*Parent, error) {
	return c.store.Find(ctx, owner)
}

// Patch applies the fields of partial that differ from the current state
// of item id. Identical values cause no write at all.
func (c *Collection) Patch(ctx context.Context, owner, id primitive.ObjectID, partial map[string]any) (*Parent, error) {
	if _, ok := partial["_id"]; ok {
		return nil, fmt.Errorf("%w: _id", ErrImmutableField)
	}
	if _, ok := partial["id"]; ok {
		return nil, fmt.Errorf("%w: id", ErrImmutableField)
	}
	if err := checkFields(partial); err != nil {
		return nil, err
	}

	parent, err := c.store.Find(ctx, owner)
	if err != nil {
		return nil, err
	}

	idx := parent.IndexOf(id)
	var current Item
	if idx >= 0 {
		current = parent.Items[idx]
	}

	set := Diff(current, partial)
	if len(set) == 0 {
		if idx < 0 {
			return nil, ErrItemNotFound
		}
		return parent, nil
	}

	matched, err := c.store.SetFields(ctx, owner, id, set)
	if err != nil {
		return nil, err
	}

	if !matched {
		// only an item visible in the snapshot is worth repairing
		if idx < 0 {
			return nil, ErrItemNotFound
		}
		if err := c.repair(ctx, parent, id); err != nil {
			return nil, err
		}
		matched, err = c.store.SetFields(ctx, owner, id, set)
		if err != nil {
			return nil, err
		}
		if !matched {
			return nil, ErrItemNotFound
		}
	}

	return c.store.Find(ctx, owner)
}

// Remove deletes item id from the owner's sequence.
func (c *Collection) Remove(ctx context.Context, owner, id primitive.ObjectID) (*Parent, error) {
	parent, err := c.store.Find(ctx, owner)
	if err != nil {
		return nil, err
	}

	matched, err := c.store.Remove(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	if !matched {
		if parent.IndexOf(id) < 0 {
			return nil, ErrItemNotFound
		}
		if err := c.repair(ctx, parent, id); err != nil {
			return nil, err
		}
		matched, err = c.store.Remove(ctx, owner, id)
		if err != nil {
			return nil, err
		}
		if !matched {
			return nil, ErrItemNotFound
		}
	}

	return c.store.Find(ctx, owner)
}

func (c *Collection) DeleteByOwner(ctx context.Context, owner primitive.ObjectID) error {
	return c.store.DeleteByOwner(ctx, owner)
}

// Repair normalizes the identifiers of the owner's sequence and returns how
// many items were rewritten.
func (c *Collection) Repair(ctx context.Context, owner primitive.ObjectID) (int, error) {
	parent, err := c.store.Find(ctx, owner)
	if err != nil {
		return 0, err
	}
	return c.normalize(ctx, parent)
}

func (c *Collection) Owners(ctx context.Context) ([]primitive.ObjectID, error) {
	return c.store.Owners(ctx)
}

func (c *Collection) repair(ctx context.Context, snapshot *Parent, id primitive.ObjectID) error {
	repaired, err := c.normalize(ctx, snapshot)
	if err != nil {
		return err
	}
	c.log.Warn().
		Str("owner", snapshot.Owner.Hex()).
		Str("item", id.Hex()).
		Int("repaired", repaired).
		Msg("targeted update missed a visible item, identifiers repaired")
	return nil
}

// normalize rewrites the sequence starting from snapshot. Any concurrent
// write to the parent makes the versioned write miss, in which case the
// repair is recomputed from a fresh read.
func (c *Collection) normalize(ctx context.Context, snapshot *Parent) (int, error) {
	parent := snapshot
	for attempt := 0; attempt < c.repairAttempts; attempt++ {
		if attempt > 0 {
			var err error
			parent, err = c.store.Find(ctx, snapshot.Owner)
			if err != nil {
				return 0, err
			}
		}

		items, repaired := NormalizeItems(parent.Items)
		if repaired == 0 {
			return 0, nil
		}

		ok, err := c.store.ReplaceItems(ctx, parent, items)
		if err != nil {
			return 0, err
		}
		if ok {
			return repaired, nil
		}
	}
	return 0, ErrConcurrentModification
}

// checkFields rejects names a document store would read as operators or paths.
func checkFields(fields map[string]any) error {
	for name := range fields {
		if name == "" || strings.HasPrefix(name, "$") || strings.Contains(name, ".") {
			return fmt.Errorf("%w: %q", ErrInvalidField, name)
		}
	}
	return nil
}
