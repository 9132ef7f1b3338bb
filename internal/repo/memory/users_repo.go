package memory

import (
	"context"
	"sync"

	"github.com/safalapp/classhub/internal/domain/user"
	"github.com/safalapp/classhub/internal/repo/postgres"
)

// UsersRepo is an in-memory stand-in for the postgres users repo, used by
// handler tests. It enforces the same uniqueness rules.
type UsersRepo struct {
	mu       sync.RWMutex
	byID     map[string]user.User
	byMobile map[string]string
	byEmail  map[string]string
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		byID:     make(map[string]user.User),
		byMobile: make(map[string]string),
		byEmail:  make(map[string]string),
	}
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byMobile[u.MobileNumber]; ok {
		return postgres.ErrMobileNumberTaken
	}

	if _, ok := r.byEmail[u.Email]; ok {
		return postgres.ErrEmailTaken
	}

	r.byID[u.ID] = u
	r.byMobile[u.MobileNumber] = u.ID
	r.byEmail[u.Email] = u.ID

	return nil
}

func (r *UsersRepo) GetByMobile(ctx context.Context, mobile string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byMobile[mobile]

	if !ok {
		return user.User{}, postgres.ErrUserNotFound
	}

	return r.byID[id], nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]

	if !ok {
		return user.User{}, postgres.ErrUserNotFound
	}

	return r.byID[id], nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]

	if !ok {
		return user.User{}, postgres.ErrUserNotFound
	}

	return u, nil
}

func (r *UsersRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]

	if !ok {
		return postgres.ErrUserNotFound
	}

	u.PasswordHash = passwordHash
	r.byID[id] = u

	return nil
}
