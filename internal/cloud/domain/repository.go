package domain

import (
	"context"
	"errors"

	core "github.com/velachio/habitsync/internal/core/domain"
)

var ErrHabitNotFound = errors.New("habit not found")

type UserRepository interface {
	// Create persists a new account. Implementations must surface
	// ErrEmailAlreadyExists on a duplicate email.
	Create(ctx context.Context, user *User) error

	GetByEmail(ctx context.Context, email string) (*User, error)

	GetByID(ctx context.Context, id string) (*User, error)
}

// HabitRepository holds each user's canonical habit collection. Records keep
// the client's LocalID so promotions can be correlated on the way back down.
type HabitRepository interface {
	ListByUser(ctx context.Context, userID string) ([]core.Habit, error)

	// Upsert inserts or replaces the habit identified by its ServerID.
	Upsert(ctx context.Context, userID string, habit core.Habit) error

	// Delete removes a habit from the canonical collection entirely; clients
	// observe this as a tombstone on their next sync.
	Delete(ctx context.Context, userID, serverID string) error
}

type LogRepository interface {
	ListByUser(ctx context.Context, userID string) ([]core.HabitLog, error)

	Upsert(ctx context.Context, userID string, log core.HabitLog) error
}
