package subdoc

import (
	"context"
	"sync"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memoryRecord struct {
	ID      primitive.ObjectID `bson:"_id"`
	Owner   primitive.ObjectID `bson:"owner"`
	Items   []Item             `bson:"items"`
	Version int64              `bson:"version"`
}

// MemoryStore keeps parent documents as encoded BSON in process memory.
// Values go through the same encoding as in MongoDB, and item matching
// uses the same typed "_id" predicate, so legacy shapes behave alike.
type MemoryStore struct {
	layout  Layout
	mu      sync.Mutex
	parents map[primitive.ObjectID][]byte
	writes  atomic.Int64
}

func NewMemoryStore(layout Layout) *MemoryStore {
	return &MemoryStore{
		layout:  layout,
		parents: make(map[primitive.ObjectID][]byte),
	}
}

func (s *MemoryStore) Layout() Layout {
	return s.layout
}

// Writes counts successful mutations since creation. Seed is not counted.
func (s *MemoryStore) Writes() int64 {
	return s.writes.Load()
}

// Seed stores items as given, without any identifier handling.
func (s *MemoryStore) Seed(owner primitive.ObjectID, items ...Item) (*Parent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &memoryRecord{ID: primitive.NewObjectID(), Owner: owner, Items: items}
	if err := s.save(rec); err != nil {
		return nil, err
	}
	return rec.parent(), nil
}

func (s *MemoryStore) Find(_ context.Context, owner primitive.ObjectID) (*Parent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load(owner)
	if err != nil {
		return nil, err
	}
	return rec.parent(), nil
}

func (s *MemoryStore) Append(_ context.Context, owner primitive.ObjectID, item Item) (*Parent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load(owner)
	if err == ErrParentNotFound {
		rec = &memoryRecord{ID: primitive.NewObjectID(), Owner: owner, Items: []Item{}}
	} else if err != nil {
		return nil, err
	}

	rec.Items = append(rec.Items, item)
	if err := s.save(rec); err != nil {
		return nil, err
	}
	s.writes.Add(1)

	// read back so callers see stored types
	saved, err := s.load(owner)
	if err != nil {
		return nil, err
	}
	return saved.parent(), nil
}

func (s *MemoryStore) SetFields(_ context.Context, owner, id primitive.ObjectID, set map[string]any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load(owner)
	if err == ErrParentNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	idx := typedIndex(rec.Items, id)
	if idx < 0 {
		return false, nil
	}
	for field, value := range set {
		rec.Items[idx][field] = value
	}
	if err := s.save(rec); err != nil {
		return false, err
	}
	s.writes.Add(1)
	return true, nil
}

func (s *MemoryStore) ReplaceItems(_ context.Context, snapshot *Parent, items []Item) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load(snapshot.Owner)
	if err == ErrParentNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if rec.Version != snapshot.Version {
		return false, nil
	}

	rec.Items = items
	if err := s.save(rec); err != nil {
		return false, err
	}
	s.writes.Add(1)
	return true, nil
}

func (s *MemoryStore) Remove(_ context.Context, owner, id primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load(owner)
	if err == ErrParentNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	idx := typedIndex(rec.Items, id)
	if idx < 0 {
		return false, nil
	}
	rec.Items = append(rec.Items[:idx], rec.Items[idx+1:]...)
	if err := s.save(rec); err != nil {
		return false, err
	}
	s.writes.Add(1)
	return true, nil
}

func (s *MemoryStore) DeleteByOwner(_ context.Context, owner primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.parents[owner]; ok {
		delete(s.parents, owner)
		s.writes.Add(1)
	}
	return nil
}

func (s *MemoryStore) Owners(_ context.Context) ([]primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owners := make([]primitive.ObjectID, 0, len(s.parents))
	for owner := range s.parents {
		owners = append(owners, owner)
	}
	return owners, nil
}

func (s *MemoryStore) load(owner primitive.ObjectID) (*memoryRecord, error) {
	data, ok := s.parents[owner]
	if !ok {
		return nil, ErrParentNotFound
	}
	var rec memoryRecord
	if err := bson.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if rec.Items == nil {
		rec.Items = []Item{}
	}
	return &rec, nil
}

// save stores rec under the next version.
func (s *MemoryStore) save(rec *memoryRecord) error {
	rec.Version++
	data, err := bson.Marshal(rec)
	if err != nil {
		return err
	}
	s.parents[rec.Owner] = data
	return nil
}

func (r *memoryRecord) parent() *Parent {
	return &Parent{ID: r.ID, Owner: r.Owner, Items: r.Items, Version: r.Version}
}

// typedIndex mirrors the {"items._id": id} predicate of MongoDB: only a
// typed ObjectID matches.
func typedIndex(items []Item, id primitive.ObjectID) int {
	for i, item := range items {
		if oid, ok := item["_id"].(primitive.ObjectID); ok && oid == id {
			return i
		}
	}
	return -1
}
