package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/velachio/habitsync/internal/cloud/domain"
	core "github.com/velachio/habitsync/internal/core/domain"
)

type InMemoryUserRepository struct {
	byID    map[string]*domain.User
	byEmail map[string]*domain.User

	mu sync.RWMutex
}

func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]*domain.User),
	}
}

func (r *InMemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return domain.ErrEmailAlreadyExists
	}

	r.byID[user.ID] = user
	r.byEmail[user.Email] = user
	return nil
}

func (r *InMemoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (r *InMemoryUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

type InMemoryHabitRepository struct {
	store map[string]map[string]core.Habit // userID -> serverID -> habit

	mu sync.RWMutex
}

func NewInMemoryHabitRepository() *InMemoryHabitRepository {
	return &InMemoryHabitRepository{
		store: make(map[string]map[string]core.Habit),
	}
}

func (r *InMemoryHabitRepository) ListByUser(ctx context.Context, userID string) ([]core.Habit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	habits := make([]core.Habit, 0, len(r.store[userID]))
	for _, h := range r.store[userID] {
		habits = append(habits, h)
	}

	sort.Slice(habits, func(i, j int) bool {
		return habits[i].ServerID < habits[j].ServerID
	})

	return habits, nil
}

func (r *InMemoryHabitRepository) Upsert(ctx context.Context, userID string, habit core.Habit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.store[userID] == nil {
		r.store[userID] = make(map[string]core.Habit)
	}
	r.store[userID][habit.ServerID] = habit
	return nil
}

func (r *InMemoryHabitRepository) Delete(ctx context.Context, userID, serverID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.store[userID], serverID)
	return nil
}

type InMemoryLogRepository struct {
	store map[string]map[string]core.HabitLog

	mu sync.RWMutex
}

func NewInMemoryLogRepository() *InMemoryLogRepository {
	return &InMemoryLogRepository{
		store: make(map[string]map[string]core.HabitLog),
	}
}

func (r *InMemoryLogRepository) ListByUser(ctx context.Context, userID string) ([]core.HabitLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	logs := make([]core.HabitLog, 0, len(r.store[userID]))
	for _, l := range r.store[userID] {
		logs = append(logs, l)
	}

	sort.Slice(logs, func(i, j int) bool {
		return logs[i].ServerID < logs[j].ServerID
	})

	return logs, nil
}

func (r *InMemoryLogRepository) Upsert(ctx context.Context, userID string, log core.HabitLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.store[userID] == nil {
		r.store[userID] = make(map[string]core.HabitLog)
	}
	r.store[userID][log.ServerID] = log
	return nil
}
