package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velachio/habitsync/internal/cloud/repository"
	"github.com/velachio/habitsync/internal/cloud/services"
	core "github.com/velachio/habitsync/internal/core/domain"
)

func newSyncFixture() (*services.SyncService, *repository.InMemoryHabitRepository, *repository.InMemoryLogRepository) {
	habits := repository.NewInMemoryHabitRepository()
	logs := repository.NewInMemoryLogRepository()
	return services.NewSyncService(habits, logs), habits, logs
}

func at(offset int) time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func TestCloudSyncHabits(t *testing.T) {
	ctx := context.Background()
	const userID = "u-1"

	t.Run("assigns server ids to unseen habits and reports them", func(t *testing.T) {
		svc, _, _ := newSyncFixture()

		tempIDs, canonical, err := svc.SyncHabits(ctx, userID, []core.Habit{
			{LocalID: "abc", Name: "Run", UpdatedAt: at(0)},
		})

		require.NoError(t, err)
		require.Contains(t, tempIDs, "abc")
		require.Len(t, canonical, 1)
		assert.Equal(t, tempIDs["abc"], canonical[0].ServerID)
		assert.Equal(t, "abc", canonical[0].LocalID, "local id kept for correlation")
	})

	t.Run("resubmitted unpromoted habit reuses the assigned id", func(t *testing.T) {
		svc, _, _ := newSyncFixture()

		first, _, err := svc.SyncHabits(ctx, userID, []core.Habit{
			{LocalID: "abc", Name: "Run", UpdatedAt: at(0)},
		})
		require.NoError(t, err)

		// A client that never heard back about the promotion pushes again
		// without a server id.
		second, canonical, err := svc.SyncHabits(ctx, userID, []core.Habit{
			{LocalID: "abc", Name: "Run", UpdatedAt: at(0)},
		})
		require.NoError(t, err)

		assert.Equal(t, first["abc"], second["abc"], "no forked record on resubmission")
		assert.Len(t, canonical, 1)
	})

	t.Run("last writer wins on updatedAt, client newer", func(t *testing.T) {
		svc, habits, _ := newSyncFixture()
		require.NoError(t, habits.Upsert(ctx, userID, core.Habit{
			ServerID: "srv-1", LocalID: "abc", Name: "Server copy", UpdatedAt: at(-10),
		}))

		_, canonical, err := svc.SyncHabits(ctx, userID, []core.Habit{
			{ServerID: "srv-1", LocalID: "abc", Name: "Client copy", UpdatedAt: at(0)},
		})

		require.NoError(t, err)
		require.Len(t, canonical, 1)
		assert.Equal(t, "Client copy", canonical[0].Name)
	})

	t.Run("last writer wins on updatedAt, server newer", func(t *testing.T) {
		svc, habits, _ := newSyncFixture()
		require.NoError(t, habits.Upsert(ctx, userID, core.Habit{
			ServerID: "srv-1", LocalID: "abc", Name: "Server copy", UpdatedAt: at(0),
		}))

		_, canonical, err := svc.SyncHabits(ctx, userID, []core.Habit{
			{ServerID: "srv-1", LocalID: "abc", Name: "Stale client", UpdatedAt: at(-10)},
		})

		require.NoError(t, err)
		require.Len(t, canonical, 1)
		assert.Equal(t, "Server copy", canonical[0].Name)
	})

	t.Run("client tombstone removes the habit from the canonical set", func(t *testing.T) {
		svc, habits, _ := newSyncFixture()
		require.NoError(t, habits.Upsert(ctx, userID, core.Habit{
			ServerID: "srv-1", LocalID: "abc", Name: "Doomed", UpdatedAt: at(0),
		}))

		_, canonical, err := svc.SyncHabits(ctx, userID, []core.Habit{
			{ServerID: "srv-1", LocalID: "abc", Name: "Doomed", UpdatedAt: at(1), Deleted: true},
		})

		require.NoError(t, err)
		assert.Empty(t, canonical)
	})

	t.Run("tombstone for a never-promoted habit resolves by local id", func(t *testing.T) {
		svc, _, _ := newSyncFixture()

		_, _, err := svc.SyncHabits(ctx, userID, []core.Habit{
			{LocalID: "abc", Name: "Run", UpdatedAt: at(0)},
		})
		require.NoError(t, err)

		_, canonical, err := svc.SyncHabits(ctx, userID, []core.Habit{
			{LocalID: "abc", Name: "Run", UpdatedAt: at(1), Deleted: true},
		})
		require.NoError(t, err)
		assert.Empty(t, canonical)
	})

	t.Run("pushing a tombstoned habit back does not resurrect it", func(t *testing.T) {
		svc, habits, _ := newSyncFixture()
		require.NoError(t, habits.Upsert(ctx, userID, core.Habit{
			ServerID: "srv-1", LocalID: "abc", Name: "Doomed", UpdatedAt: at(0),
		}))
		require.NoError(t, habits.Delete(ctx, userID, "srv-1"))

		// Another device that never heard about the deletion pushes its copy.
		_, canonical, err := svc.SyncHabits(ctx, userID, []core.Habit{
			{ServerID: "srv-1", LocalID: "abc", Name: "Doomed", UpdatedAt: at(5)},
		})

		require.NoError(t, err)
		assert.Empty(t, canonical)
	})

	t.Run("users are isolated", func(t *testing.T) {
		svc, _, _ := newSyncFixture()

		_, _, err := svc.SyncHabits(ctx, "u-1", []core.Habit{{LocalID: "abc", UpdatedAt: at(0)}})
		require.NoError(t, err)

		_, canonical, err := svc.SyncHabits(ctx, "u-2", nil)
		require.NoError(t, err)
		assert.Empty(t, canonical)
	})
}

func TestCloudSyncLogs(t *testing.T) {
	ctx := context.Background()
	const userID = "u-1"

	t.Run("assigns server ids and returns the canonical collection", func(t *testing.T) {
		svc, _, _ := newSyncFixture()

		canonical, err := svc.SyncLogs(ctx, userID, []core.HabitLog{
			{LocalID: "l1", HabitID: "srv-1", Timestamp: at(0), CompletedCount: 2, Goal: 3},
		})

		require.NoError(t, err)
		require.Len(t, canonical, 1)
		assert.NotEmpty(t, canonical[0].ServerID)
		assert.Equal(t, "l1", canonical[0].LocalID)
	})

	t.Run("resubmitted log reuses its server id", func(t *testing.T) {
		svc, _, _ := newSyncFixture()

		first, err := svc.SyncLogs(ctx, userID, []core.HabitLog{
			{LocalID: "l1", HabitID: "srv-1", Timestamp: at(0), CompletedCount: 1, Goal: 3},
		})
		require.NoError(t, err)

		second, err := svc.SyncLogs(ctx, userID, []core.HabitLog{
			{LocalID: "l1", HabitID: "srv-1", Timestamp: at(0), CompletedCount: 2, Goal: 3},
		})
		require.NoError(t, err)

		require.Len(t, second, 1)
		assert.Equal(t, first[0].ServerID, second[0].ServerID)
		assert.Equal(t, 2, second[0].CompletedCount, "resubmission updates in place")
	})

	t.Run("canonical set accumulates across pushes", func(t *testing.T) {
		svc, _, _ := newSyncFixture()

		_, err := svc.SyncLogs(ctx, userID, []core.HabitLog{
			{LocalID: "l1", HabitID: "srv-1", Timestamp: at(0), CompletedCount: 1, Goal: 1},
		})
		require.NoError(t, err)

		canonical, err := svc.SyncLogs(ctx, userID, []core.HabitLog{
			{LocalID: "l2", HabitID: "srv-1", Timestamp: at(-1), CompletedCount: 1, Goal: 1},
		})
		require.NoError(t, err)

		assert.Len(t, canonical, 2)
	})
}
