// Package memstore is an in-memory stand-in for the PostgreSQL repository,
// used by service and handler tests. It applies the same ownership and
// filtering rules and returns the same sentinel errors.
package memstore

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/spendlog/spendlog/internal/model"
	"github.com/spendlog/spendlog/internal/repository"
)

// Store holds expenses, users and API keys in maps.
type Store struct {
	mu       sync.Mutex
	expenses map[string]model.Expense
	users    map[string]model.User
	keys     map[string]model.APIKey

	// ListErr, when set, is returned by ListExpenses.
	ListErr error
	// ListCalls counts ListExpenses invocations.
	ListCalls int
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		expenses: make(map[string]model.Expense),
		users:    make(map[string]model.User),
		keys:     make(map[string]model.APIKey),
	}
}

// Seed stores expenses as-is, bypassing validation.
func (s *Store) Seed(expenses ...*model.Expense) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range expenses {
		s.expenses[e.ID] = *e
	}
}

// Len returns the number of stored expenses across all owners.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expenses)
}

// InsertExpense stores e.
func (s *Store) InsertExpense(_ context.Context, e *model.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[e.ID]; ok {
		return repository.ErrDuplicate
	}
	s.expenses[e.ID] = *e
	return nil
}

// ListExpenses returns ownerID's expenses matching f, newest first.
func (s *Store) ListExpenses(_ context.Context, ownerID string, f repository.ExpenseFilter) ([]model.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ListCalls++
	if s.ListErr != nil {
		return nil, s.ListErr
	}

	result := make([]model.Expense, 0)
	for _, e := range s.expenses {
		if e.OwnerID != ownerID || !f.Range.Contains(e.CreatedAt) {
			continue
		}
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		result = append(result, e)
	}

	slices.SortFunc(result, func(a, b model.Expense) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return result, nil
}

// GetExpense returns ownerID's expense id.
func (s *Store) GetExpense(_ context.Context, ownerID, id string) (*model.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok || e.OwnerID != ownerID {
		return nil, repository.ErrExpenseNotFound
	}
	return &e, nil
}

// UpdateExpense applies fields to ownerID's expense id.
func (s *Store) UpdateExpense(_ context.Context, ownerID, id string, fields model.ExpenseFields) (*model.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok || e.OwnerID != ownerID {
		return nil, repository.ErrExpenseNotFound
	}
	fields.Apply(&e)
	s.expenses[id] = e
	return &e, nil
}

// DeleteExpense removes ownerID's expense id.
func (s *Store) DeleteExpense(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok || e.OwnerID != ownerID {
		return repository.ErrExpenseNotFound
	}
	delete(s.expenses, id)
	return nil
}

// CreateUser stores user; usernames are unique.
func (s *Store) CreateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == user.Username {
			return repository.ErrUsernameExists
		}
	}
	s.users[user.ID] = *user
	return nil
}

// GetUserByID returns the user with id.
func (s *Store) GetUserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

// GetUserByUsername returns the user named username.
func (s *Store) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

// CreateAPIKey stores key.
func (s *Store) CreateAPIKey(_ context.Context, key *model.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[key.UserID]; !ok {
		return repository.ErrUserNotFound
	}
	s.keys[key.ID] = *key
	return nil
}

// GetAPIKeysByPrefix returns active keys with prefix.
func (s *Store) GetAPIKeysByPrefix(_ context.Context, prefix string) ([]*model.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*model.APIKey
	for _, k := range s.keys {
		k := k
		if k.KeyPrefix == prefix && !k.IsRevoked() {
			result = append(result, &k)
		}
	}
	return result, nil
}

// ListAPIKeysByUserID returns userID's keys, newest first.
func (s *Store) ListAPIKeysByUserID(_ context.Context, userID string) ([]*model.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*model.APIKey
	for _, k := range s.keys {
		k := k
		if k.UserID == userID {
			result = append(result, &k)
		}
	}
	slices.SortFunc(result, func(a, b *model.APIKey) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return result, nil
}

// RevokeAPIKey revokes userID's active key id and returns its prefix.
func (s *Store) RevokeAPIKey(_ context.Context, userID, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[id]
	if !ok || k.UserID != userID || k.IsRevoked() {
		return "", repository.ErrAPIKeyNotFound
	}
	now := time.Now().UTC()
	k.RevokedAt = &now
	s.keys[id] = k
	return k.KeyPrefix, nil
}

// UpdateAPIKeyLastUsed stamps the key's last use.
func (s *Store) UpdateAPIKeyLastUsed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k, ok := s.keys[id]; ok {
		now := time.Now().UTC()
		k.LastUsedAt = &now
		s.keys[id] = k
	}
	return nil
}
