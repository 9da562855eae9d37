package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/velachio/habitsync/internal/core/domain"
)

const (
	habitsKey = "@habits"
	logsKey   = "@habit_logs"
	tokenKey  = "@jwt_token"
	emailKey  = "@user_email"
)

// Store is the device-local persistence layer: two JSON-serialized
// collections (habits, logs) plus the cached session credential, all living
// in an injectable key-value backend.
//
// Read failures degrade to empty collections so a corrupt or missing blob
// never takes the app down; write failures propagate to the caller.
type Store struct {
	kv KV
}

func New(kv KV) *Store {
	return &Store{kv: kv}
}

func loadCollection[T any](ctx context.Context, kv KV, key string) []T {
	raw, err := kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			log.Printf("Store: error reading %s, treating as empty: %v", key, err)
		}
		return nil
	}

	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		log.Printf("Store: error parsing %s, treating as empty: %v", key, err)
		return nil
	}
	return items
}

func saveCollection[T any](ctx context.Context, kv KV, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", key, err)
	}
	if err := kv.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}
	return nil
}

func (s *Store) LoadHabits(ctx context.Context) []domain.Habit {
	return loadCollection[domain.Habit](ctx, s.kv, habitsKey)
}

// SaveHabits atomically overwrites the full habits collection.
func (s *Store) SaveHabits(ctx context.Context, habits []domain.Habit) error {
	return saveCollection(ctx, s.kv, habitsKey, habits)
}

func (s *Store) LoadLogs(ctx context.Context) []domain.HabitLog {
	return loadCollection[domain.HabitLog](ctx, s.kv, logsKey)
}

func (s *Store) SaveLogs(ctx context.Context, logs []domain.HabitLog) error {
	return saveCollection(ctx, s.kv, logsKey, logs)
}

func (s *Store) AddHabit(ctx context.Context, habit domain.Habit) error {
	habits := s.LoadHabits(ctx)
	habits = append(habits, habit)
	return s.SaveHabits(ctx, habits)
}

// UpdateHabit applies mutate to the habit matching id by serverId-or-localId
// and persists the collection. Silently a no-op when id matches nothing.
func (s *Store) UpdateHabit(ctx context.Context, id string, mutate func(h *domain.Habit)) error {
	habits := s.LoadHabits(ctx)
	for i := range habits {
		if habits[i].Matches(id) {
			mutate(&habits[i])
			return s.SaveHabits(ctx, habits)
		}
	}
	return nil
}

// SoftDeleteHabit marks the matching habit deleted; it stays in storage (and
// is shipped to the server as a tombstone on the next sync) until a hard
// delete removes it.
func (s *Store) SoftDeleteHabit(ctx context.Context, id string) error {
	return s.UpdateHabit(ctx, id, func(h *domain.Habit) {
		h.Deleted = true
	})
}

func (s *Store) HardDeleteHabit(ctx context.Context, id string) error {
	habits := s.LoadHabits(ctx)
	kept := habits[:0]
	found := false
	for _, h := range habits {
		if h.Matches(id) {
			found = true
			continue
		}
		kept = append(kept, h)
	}
	if !found {
		return nil
	}
	return s.SaveHabits(ctx, kept)
}

// ClearAll wipes both collections. Session keys are left alone; use
// ClearSession for those.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := s.kv.Remove(ctx, habitsKey, logsKey); err != nil {
		return fmt.Errorf("failed to clear store: %w", err)
	}
	return nil
}

// Token returns the cached bearer credential, or "" when signed out.
func (s *Store) Token(ctx context.Context) string {
	tok, err := s.kv.Get(ctx, tokenKey)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			log.Printf("Store: error reading cached token: %v", err)
		}
		return ""
	}
	return tok
}

func (s *Store) SetToken(ctx context.Context, token string) error {
	return s.kv.Set(ctx, tokenKey, token)
}

func (s *Store) Email(ctx context.Context) string {
	email, err := s.kv.Get(ctx, emailKey)
	if err != nil {
		return ""
	}
	return email
}

func (s *Store) SetEmail(ctx context.Context, email string) error {
	return s.kv.Set(ctx, emailKey, email)
}

func (s *Store) ClearSession(ctx context.Context) error {
	return s.kv.Remove(ctx, tokenKey, emailKey)
}
