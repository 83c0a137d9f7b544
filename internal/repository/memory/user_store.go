// Package memory holds mutex-guarded map implementations of the stores, used
// for development and tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"intervi-api/internal/model"
)

type UserStore struct {
	mu      sync.RWMutex
	byID    map[string]model.User
	byEmail map[string]string
}

func NewUserStore() *UserStore {
	return &UserStore{
		byID:    map[string]model.User{},
		byEmail: map[string]string{},
	}
}

func (s *UserStore) FindByID(_ context.Context, id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[model.NormalizeEmail(email)]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return cloneUser(s.byID[id]), nil
}

// Create checks and inserts under one write lock, so of two concurrent
// registrations with the same email exactly one succeeds.
func (s *UserStore) Create(_ context.Context, u model.User) (model.User, error) {
	u.Email = model.NormalizeEmail(u.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[u.Email]; exists {
		return model.User{}, model.ErrDuplicateEmail
	}

	u = cloneUser(u)
	s.byID[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return cloneUser(u), nil
}

func (s *UserStore) UpdateStatistics(_ context.Context, id string, fn func(model.UserStatistics) model.UserStatistics) (model.UserStatistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return model.UserStatistics{}, model.ErrUserNotFound
	}

	u.Statistics = fn(u.Statistics)
	s.byID[id] = u
	return u.Statistics, nil
}

func cloneUser(u model.User) model.User {
	u.SocialProviders = slices.Clone(u.SocialProviders)
	if u.Statistics.LastSessionAt != nil {
		t := *u.Statistics.LastSessionAt
		u.Statistics.LastSessionAt = &t
	}
	return u
}
