package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velachio/habitsync/internal/core/domain"
)

func newTestStore() (*Store, *MemoryKV) {
	kv := NewMemoryKV()
	return New(kv), kv
}

func mustHabit(t *testing.T, name string) domain.Habit {
	t.Helper()
	h, err := domain.NewHabit(name, "misc", "#112233", domain.FrequencyDaily, time.Now(), nil, 1)
	require.NoError(t, err)
	return *h
}

func TestStoreHabits(t *testing.T) {
	ctx := context.Background()

	t.Run("load with empty store returns no habits", func(t *testing.T) {
		s, _ := newTestStore()
		assert.Empty(t, s.LoadHabits(ctx))
	})

	t.Run("corrupt blob degrades to empty collection", func(t *testing.T) {
		s, kv := newTestStore()
		require.NoError(t, kv.Set(ctx, "@habits", "{not json"))

		assert.Empty(t, s.LoadHabits(ctx))
	})

	t.Run("add then load round trips", func(t *testing.T) {
		s, _ := newTestStore()
		h := mustHabit(t, "Hydrate")

		require.NoError(t, s.AddHabit(ctx, h))

		habits := s.LoadHabits(ctx)
		require.Len(t, habits, 1)
		assert.Equal(t, "Hydrate", habits[0].Name)
		assert.Equal(t, h.LocalID, habits[0].LocalID)
	})

	t.Run("update matches by server id or local id", func(t *testing.T) {
		s, _ := newTestStore()
		h := mustHabit(t, "Run")
		h.ServerID = "srv-9"
		require.NoError(t, s.AddHabit(ctx, h))

		require.NoError(t, s.UpdateHabit(ctx, "srv-9", func(x *domain.Habit) { x.Streak = 4 }))
		require.NoError(t, s.UpdateHabit(ctx, h.LocalID, func(x *domain.Habit) { x.BestStreak = 7 }))

		got := s.LoadHabits(ctx)[0]
		assert.Equal(t, 4, got.Streak)
		assert.Equal(t, 7, got.BestStreak)
	})

	t.Run("update with unknown id is a silent no-op", func(t *testing.T) {
		s, _ := newTestStore()
		require.NoError(t, s.AddHabit(ctx, mustHabit(t, "Run")))

		called := false
		require.NoError(t, s.UpdateHabit(ctx, "ghost", func(x *domain.Habit) { called = true }))
		assert.False(t, called)
	})

	t.Run("soft delete flags, hard delete removes", func(t *testing.T) {
		s, _ := newTestStore()
		h := mustHabit(t, "Stretch")
		require.NoError(t, s.AddHabit(ctx, h))

		require.NoError(t, s.SoftDeleteHabit(ctx, h.LocalID))
		habits := s.LoadHabits(ctx)
		require.Len(t, habits, 1, "soft-deleted habit stays in storage")
		assert.True(t, habits[0].Deleted)

		require.NoError(t, s.HardDeleteHabit(ctx, h.LocalID))
		assert.Empty(t, s.LoadHabits(ctx))
	})

	t.Run("clear all removes both collections", func(t *testing.T) {
		s, _ := newTestStore()
		require.NoError(t, s.AddHabit(ctx, mustHabit(t, "Read")))
		require.NoError(t, s.SaveLogs(ctx, []domain.HabitLog{{LocalID: "l1"}}))

		require.NoError(t, s.ClearAll(ctx))

		assert.Empty(t, s.LoadHabits(ctx))
		assert.Empty(t, s.LoadLogs(ctx))
	})
}

func TestStoreSession(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	assert.Empty(t, s.Token(ctx))

	require.NoError(t, s.SetToken(ctx, "jwt-abc"))
	require.NoError(t, s.SetEmail(ctx, "me@example.com"))

	assert.Equal(t, "jwt-abc", s.Token(ctx))
	assert.Equal(t, "me@example.com", s.Email(ctx))

	require.NoError(t, s.ClearSession(ctx))
	assert.Empty(t, s.Token(ctx))
	assert.Empty(t, s.Email(ctx))
}

type brokenKV struct{}

var errBroken = errors.New("disk on fire")

func (brokenKV) Get(ctx context.Context, key string) (string, error) { return "", errBroken }
func (brokenKV) Set(ctx context.Context, key, value string) error    { return errBroken }
func (brokenKV) Remove(ctx context.Context, keys ...string) error    { return errBroken }

func TestStoreFailureSemantics(t *testing.T) {
	ctx := context.Background()
	s := New(brokenKV{})

	t.Run("reads degrade to empty", func(t *testing.T) {
		assert.Empty(t, s.LoadHabits(ctx))
		assert.Empty(t, s.LoadLogs(ctx))
		assert.Empty(t, s.Token(ctx))
	})

	t.Run("writes propagate the failure", func(t *testing.T) {
		assert.ErrorIs(t, s.SaveHabits(ctx, nil), errBroken)
		assert.ErrorIs(t, s.SaveLogs(ctx, nil), errBroken)
		assert.ErrorIs(t, s.ClearAll(ctx), errBroken)
	})
}
