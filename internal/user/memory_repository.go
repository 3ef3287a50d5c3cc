package user

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryRepository keeps users in process, for STORE_DRIVER=memory and tests
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: map[primitive.ObjectID]User{}}
}

func (r *MemoryRepository) Create(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return ErrDuplicate
		}
	}

	now := time.Now().UTC()
	user.ID = primitive.NewObjectID()
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	stored.Password = ""
	r.users[user.ID] = stored
	return nil
}

func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) FindByID(_ context.Context, id primitive.ObjectID) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *MemoryRepository) IncrementTokenVersion(_ context.Context, id primitive.ObjectID) error {
	return r.update(id, func(u *User) { u.TokenVersion++ })
}

func (r *MemoryRepository) Deactivate(_ context.Context, id primitive.ObjectID) error {
	return r.update(id, func(u *User) { u.IsActive = false })
}

func (r *MemoryRepository) update(id primitive.ObjectID, fn func(*User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return nil
}
