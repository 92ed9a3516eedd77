package memory

import (
	"context"
	"sync"

	"auction-engine/internal/domain"
	"auction-engine/internal/domain/repositories"

	"github.com/pkg/errors"
)

var _ repositories.UserDirectory = (*UserDirectory)(nil)

type UserDirectory struct {
	mutex sync.RWMutex
	users map[string]*domain.User
}

func NewUserDirectory(users ...*domain.User) *UserDirectory {
	d := &UserDirectory{users: make(map[string]*domain.User)}
	for _, u := range users {
		d.Put(u)
	}
	return d
}

func (d *UserDirectory) Put(user *domain.User) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	copied := *user
	d.users[user.ID] = &copied
}

func (d *UserDirectory) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	user, ok := d.users[userID]
	if !ok {
		return nil, errors.Wrapf(domain.ErrNotFound, "user %s", userID)
	}
	copied := *user
	return &copied, nil
}
