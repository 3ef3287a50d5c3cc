package patient

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryRepository keeps patients in process, for STORE_DRIVER=memory and tests
type MemoryRepository struct {
	mu       sync.RWMutex
	patients map[primitive.ObjectID]Patient
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{patients: map[primitive.ObjectID]Patient{}}
}

func (r *MemoryRepository) Create(_ context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.taken(p) {
		return ErrDuplicate
	}

	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	p.CreatedAt = now
	p.UpdatedAt = now
	r.patients[p.ID] = *p
	return nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id primitive.ObjectID) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

// ListByUser sorts like the Mongo repository: by name, then id.
func (r *MemoryRepository) ListByUser(_ context.Context, userID primitive.ObjectID, page, pageSize int) ([]Patient, int64, error) {
	r.mu.RLock()
	mine := []Patient{}
	for _, p := range r.patients {
		if p.UserID == userID {
			mine = append(mine, p)
		}
	}
	r.mu.RUnlock()

	sort.Slice(mine, func(i, j int) bool {
		if mine[i].Name != mine[j].Name {
			return mine[i].Name < mine[j].Name
		}
		return mine[i].ID.Hex() < mine[j].ID.Hex()
	})

	total := int64(len(mine))
	start := (page - 1) * pageSize
	if start >= len(mine) {
		return []Patient{}, total, nil
	}
	end := min(start+pageSize, len(mine))
	return mine[start:end], total, nil
}

func (r *MemoryRepository) Update(_ context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.patients[p.ID]; !ok {
		return ErrNotFound
	}
	if r.taken(p) {
		return ErrDuplicate
	}
	p.UpdatedAt = time.Now().UTC()
	r.patients[p.ID] = *p
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.patients[id]; !ok {
		return ErrNotFound
	}
	delete(r.patients, id)
	return nil
}

// taken mirrors the unique (user_id, email) index.
func (r *MemoryRepository) taken(p *Patient) bool {
	for _, other := range r.patients {
		if other.ID != p.ID && other.UserID == p.UserID && other.Email == p.Email {
			return true
		}
	}
	return false
}
