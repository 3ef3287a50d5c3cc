package subdoc

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

func newTestCollection() (*Collection, *MemoryStore) {
	store := NewMemoryStore(MealPlans)
	return NewCollection(store, zerolog.Nop()), store
}

func titles(t *testing.T, parent *Parent) []string {
	t.Helper()
	out := make([]string, 0, len(parent.Items))
	for _, item := range parent.Items {
		title, _ := item["title"].(string)
		out = append(out, title)
	}
	return out
}

func mustID(t *testing.T, item Item) primitive.ObjectID {
	t.Helper()
	id, ok := item["_id"].(primitive.ObjectID)
	require.True(t, ok, "item has no typed _id: %v", item)
	return id
}

func TestAppend_CreatesParentOnFirstItem(t *testing.T) {
	c, store := newTestCollection()
	ctx := context.Background()
	owner := primitive.NewObjectID()

	parent, err := c.Append(ctx, owner, Item{"title": "A"})
	require.NoError(t, err)

	assert.Equal(t, owner, parent.Owner)
	assert.False(t, parent.ID.IsZero())
	require.Len(t, parent.Items, 1)
	assert.False(t, mustID(t, parent.Items[0]).IsZero())
	assert.Equal(t, int64(1), store.Writes())
}

func TestAppend_IgnoresClientIdentifiers(t *testing.T) {
	c, _ := newTestCollection()
	owner := primitive.NewObjectID()
	forged := primitive.NewObjectID()

	parent, err := c.Append(context.Background(), owner, Item{"_id": forged, "id": "x", "title": "A"})
	require.NoError(t, err)

	assert.NotEqual(t, forged, mustID(t, parent.Items[0]))
	assert.NotContains(t, parent.Items[0], "id")
}

func TestPatch_IdenticalValuesWriteNothing(t *testing.T) {
	c, store := newTestCollection()
	ctx := context.Background()
	owner := primitive.NewObjectID()

	created, err := c.Append(ctx, owner, Item{"title": "A"})
	require.NoError(t, err)
	id := mustID(t, created.Items[0])
	writes := store.Writes()

	patched, err := c.Patch(ctx, owner, id, map[string]any{"title": "A"})
	require.NoError(t, err)

	assert.Equal(t, writes, store.Writes())
	assert.Equal(t, created, patched)
}

func TestPatch_RepeatedPatchIsIdempotent(t *testing.T) {
	c, store := newTestCollection()
	ctx := context.Background()
	owner := primitive.NewObjectID()

	created, err := c.Append(ctx, owner, Item{"title": "A", "notes": "n"})
	require.NoError(t, err)
	id := mustID(t, created.Items[0])

	first, err := c.Patch(ctx, owner, id, map[string]any{"title": "B"})
	require.NoError(t, err)
	writes := store.Writes()

	second, err := c.Patch(ctx, owner, id, map[string]any{"title": "B"})
	require.NoError(t, err)

	assert.Equal(t, writes, store.Writes())
	assert.Equal(t, first, second)
}

func TestPatch_KeepsOrderAndSiblings(t *testing.T) {
	c, _ := newTestCollection()
	ctx := context.Background()
	owner := primitive.NewObjectID()

	_, err := c.Append(ctx, owner, Item{"title": "A", "notes": "first"})
	require.NoError(t, err)
	parent, err := c.Append(ctx, owner, Item{"title": "B", "notes": "second", "meals": []any{Item{"name": "lunch"}}})
	require.NoError(t, err)
	siblingBefore := parent.Items[1]

	_, err = c.Patch(ctx, owner, mustID(t, parent.Items[0]), map[string]any{"title": "A2"})
	require.NoError(t, err)

	listed, err := c.Get(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []string{"A2", "B"}, titles(t, listed))
	assert.Equal(t, "first", listed.Items[0]["notes"])
	assert.True(t, Equal(siblingBefore, listed.Items[1]))
}

func TestPatch_OnlyChangedFieldsAreWritten(t *testing.T) {
	store := &recordingStore{MemoryStore: NewMemoryStore(MealPlans)}
	c := NewCollection(store, zerolog.Nop())
	ctx := context.Background()
	owner := primitive.NewObjectID()

	created, err := c.Append(ctx, owner, Item{"title": "A", "description": "d"})
	require.NoError(t, err)

	_, err = c.Patch(ctx, owner, mustID(t, created.Items[0]), map[string]any{"title": "A", "description": "changed"})
	require.NoError(t, err)

	require.Len(t, store.sets, 1)
	assert.Equal(t, map[string]any{"description": "changed"}, store.sets[0])
}

func TestPatch_ComparesCompositeFieldsStructurally(t *testing.T) {
	c, store := newTestCollection()
	ctx := context.Background()
	owner := primitive.NewObjectID()

	created, err := c.Append(ctx, owner, Item{
		"title": "A",
		"meals": []map[string]any{
			{"name": "breakfast", "foods": []map[string]any{{"name": "oats", "quantity": 40}}},
		},
	})
	require.NoError(t, err)
	id := mustID(t, created.Items[0])
	writes := store.Writes()

	// same content, different Go types and number widths
	_, err = c.Patch(ctx, owner, id, map[string]any{
		"meals": []any{
			map[string]any{"name": "breakfast", "foods": []any{map[string]any{"name": "oats", "quantity": float64(40)}}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, writes, store.Writes())

	_, err = c.Patch(ctx, owner, id, map[string]any{
		"meals": []any{
			map[string]any{"name": "breakfast", "foods": []any{map[string]any{"name": "oats", "quantity": 50}}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, writes+1, store.Writes())
}

func TestPatch_UnknownItemIsNotFound(t *testing.T) {
	c, store := newTestCollection()
	ctx := context.Background()
	owner := primitive.NewObjectID()

	_, err := c.Append(ctx, owner, Item{"title": "A"})
	require.NoError(t, err)
	writes := store.Writes()

	_, err = c.Patch(ctx, owner, primitive.NewObjectID(), map[string]any{"title": "B"})
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.Equal(t, writes, store.Writes())

	_, err = c.Patch(ctx, owner, primitive.NewObjectID(), map[string]any{})
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestPatch_MissingParentIsNotFound(t *testing.T) {
	c, _ := newTestCollection()

	_, err := c.Patch(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), map[string]any{"title": "B"})
	assert.ErrorIs(t, err, ErrParentNotFound)
}

func TestPatch_RejectsIdentifierAndOperatorFields(t *testing.T) {
	c, _ := newTestCollection()
	ctx := context.Background()
	owner := primitive.NewObjectID()

	created, err := c.Append(ctx, owner, Item{"title": "A"})
	require.NoError(t, err)
	id := mustID(t, created.Items[0])

	_, err = c.Patch(ctx, owner, id, map[string]any{"_id": primitive.NewObjectID()})
	assert.ErrorIs(t, err, ErrImmutableField)

	_, err = c.Patch(ctx, owner, id, map[string]any{"id": "abc"})
	assert.ErrorIs(t, err, ErrImmutableField)

	_, err = c.Patch(ctx, owner, id, map[string]any{"$where": "1"})
	assert.ErrorIs(t, err, ErrInvalidField)

	_, err = c.Patch(ctx, owner, id, map[string]any{"meals.0.name": "x"})
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestPatch_RepairsLegacyIdentifiers(t *testing.T) {
	c, store := newTestCollection()
	ctx := context.Background()
	owner := primitive.NewObjectID()
	stringID := primitive.NewObjectID()
	legacyKeyID := primitive.NewObjectID()

	_, err := store.Seed(owner,
		Item{"_id": stringID.Hex(), "title": "string id"},
		Item{"id": legacyKeyID, "title": "id key"},
		Item{"title": "no id"},
	)
	require.NoError(t, err)

	parent, err := c.Patch(ctx, owner, stringID, map[string]any{"title": "patched"})
	require.NoError(t, err)

	// repair pass + retried targeted update
	assert.Equal(t, int64(2), store.Writes())
	assert.Equal(t, []string{"patched", "id key", "no id"}, titles(t, parent))
	assert.Equal(t, stringID, mustID(t, parent.Items[0]))
	assert.Equal(t, legacyKeyID, mustID(t, parent.Items[1]))
	assert.NotContains(t, parent.Items[1], "id")
	assert.False(t, mustID(t, parent.Items[2]).IsZero())

	// the former "id" item is now reachable through the common path
	_, err = c.Patch(ctx, owner, legacyKeyID, map[string]any{"title": "also patched"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), store.Writes())
}

func TestPatch_LegacyItemRemovedConcurrentlyIsNotFound(t *testing.T) {
	inner := NewMemoryStore(MealPlans)
	owner := primitive.NewObjectID()
	legacy := primitive.NewObjectID()
	_, err := inner.Seed(owner, Item{"_id": legacy.Hex(), "title": "old"})
	require.NoError(t, err)

	// the item disappears between the snapshot and the targeted update
	store := &vanishingStore{MemoryStore: inner}
	c := NewCollection(store, zerolog.Nop())

	_, err = c.Patch(context.Background(), owner, legacy, map[string]any{"title": "new"})
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestPatch_RepairKeepsConcurrentSiblingPatch(t *testing.T) {
	inner := NewMemoryStore(MealPlans)
	owner := primitive.NewObjectID()
	legacy := primitive.NewObjectID()
	sibling := primitive.NewObjectID()
	_, err := inner.Seed(owner,
		Item{"_id": legacy.Hex(), "title": "A"},
		Item{"_id": sibling, "title": "B"},
	)
	require.NoError(t, err)

	// the sibling is patched after the repair read its snapshot
	store := &interleavingStore{MemoryStore: inner, owner: owner, sibling: sibling}
	c := NewCollection(store, zerolog.Nop())

	parent, err := c.Patch(context.Background(), owner, legacy, map[string]any{"title": "A2"})
	require.NoError(t, err)

	assert.True(t, store.interleaved)
	assert.Equal(t, []string{"A2", "B2"}, titles(t, parent))
	assert.Equal(t, legacy, mustID(t, parent.Items[0]))
	assert.Equal(t, sibling, mustID(t, parent.Items[1]))
}

func TestRemove_DeletesOnlyTarget(t *testing.T) {
	c, _ := newTestCollection()
	ctx := context.Background()
	owner := primitive.NewObjectID()

	_, err := c.Append(ctx, owner, Item{"title": "A"})
	require.NoError(t, err)
	parent, err := c.Append(ctx, owner, Item{"title": "B"})
	require.NoError(t, err)
	target := mustID(t, parent.Items[0])

	parent, err = c.Remove(ctx, owner, target)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, titles(t, parent))

	_, err = c.Remove(ctx, owner, target)
	assert.ErrorIs(t, err, ErrItemNotFound)

	_, err = c.Remove(ctx, primitive.NewObjectID(), target)
	assert.ErrorIs(t, err, ErrParentNotFound)
}

func TestRemove_RepairsLegacyIdentifiers(t *testing.T) {
	c, store := newTestCollection()
	ctx := context.Background()
	owner := primitive.NewObjectID()
	legacy := primitive.NewObjectID()

	_, err := store.Seed(owner, Item{"_id": legacy.Hex(), "title": "old"}, Item{"title": "keep"})
	require.NoError(t, err)

	parent, err := c.Remove(ctx, owner, legacy)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, titles(t, parent))
}

func TestRepair_ReportsAndSettles(t *testing.T) {
	c, store := newTestCollection()
	ctx := context.Background()
	owner := primitive.NewObjectID()

	_, err := store.Seed(owner, Item{"_id": primitive.NewObjectID().Hex()}, Item{"title": "x"}, Item{"_id": primitive.NewObjectID()})
	require.NoError(t, err)

	repaired, err := c.Repair(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 2, repaired)

	repaired, err = c.Repair(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 0, repaired)
}

func TestAppend_ConcurrentFirstAppendsShareOneParent(t *testing.T) {
	defer goleak.VerifyNone(t)

	c, store := newTestCollection()
	owner := primitive.NewObjectID()
	const n = 50

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := c.Append(ctx, owner, Item{"n": i})
			return err
		})
	}
	require.NoError(t, g.Wait())

	owners, err := store.Owners(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{owner}, owners)

	parent, err := c.Get(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, parent.Items, n)

	ids := map[primitive.ObjectID]bool{}
	for _, item := range parent.Items {
		ids[mustID(t, item)] = true
	}
	assert.Len(t, ids, n)
}

// recordingStore keeps the set payloads sent to the store.
type recordingStore struct {
	*MemoryStore
	sets []map[string]any
}

func (s *recordingStore) SetFields(ctx context.Context, owner, id primitive.ObjectID, set map[string]any) (bool, error) {
	s.sets = append(s.sets, set)
	return s.MemoryStore.SetFields(ctx, owner, id, set)
}

// vanishingStore drops every item right before the first targeted update.
type vanishingStore struct {
	*MemoryStore
	dropped bool
}

func (s *vanishingStore) SetFields(ctx context.Context, owner, id primitive.ObjectID, set map[string]any) (bool, error) {
	if !s.dropped {
		s.dropped = true
		parent, err := s.MemoryStore.Find(ctx, owner)
		if err != nil {
			return false, err
		}
		if _, err := s.MemoryStore.ReplaceItems(ctx, parent, []Item{}); err != nil {
			return false, err
		}
	}
	return s.MemoryStore.SetFields(ctx, owner, id, set)
}

// interleavingStore patches a sibling right before the first sequence rewrite.
type interleavingStore struct {
	*MemoryStore
	owner       primitive.ObjectID
	sibling     primitive.ObjectID
	interleaved bool
}

func (s *interleavingStore) ReplaceItems(ctx context.Context, snapshot *Parent, items []Item) (bool, error) {
	if !s.interleaved {
		s.interleaved = true
		if _, err := s.MemoryStore.SetFields(ctx, s.owner, s.sibling, map[string]any{"title": "B2"}); err != nil {
			return false, err
		}
	}
	return s.MemoryStore.ReplaceItems(ctx, snapshot, items)
}
