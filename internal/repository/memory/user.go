package memory

import (
	"context"
	"sync"

	"github.com/mamadbah2/uniformstock/internal/domain/models"
	"github.com/mamadbah2/uniformstock/internal/repository"
)

// UserRepository holds accounts seeded by the caller.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

// NewUserRepository builds a repository pre-populated with users.
func NewUserRepository(users ...models.User) *UserRepository {
	r := &UserRepository{users: make(map[string]models.User, len(users))}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

// Put inserts or replaces a user.
func (r *UserRepository) Put(u models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}

// Remove deletes a user, leaving deliveries that reference it dangling.
func (r *UserRepository) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}

func (r *UserRepository) FindUserByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNoDocument
	}
	return &u, nil
}

func (r *UserRepository) FindUsersByIDs(_ context.Context, ids []string) (map[string]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	found := make(map[string]models.User, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			found[id] = u
		}
	}
	return found, nil
}
