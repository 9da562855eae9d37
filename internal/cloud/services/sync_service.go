package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/velachio/habitsync/internal/cloud/domain"
	core "github.com/velachio/habitsync/internal/core/domain"
)

// SyncService is the server half of the reconciliation protocol. It folds a
// client's pushed collections into the user's canonical state and reports the
// id promotions the client must apply.
type SyncService struct {
	habits domain.HabitRepository
	logs   domain.LogRepository
}

func NewSyncService(habits domain.HabitRepository, logs domain.LogRepository) *SyncService {
	return &SyncService{
		habits: habits,
		logs:   logs,
	}
}

// SyncHabits merges the client's full habit collection into the canonical
// one. Unseen habits get a server id (reported through tempIds), known habits
// follow last-writer-wins on updatedAt, and habits the client flagged deleted
// are removed for every device.
func (s *SyncService) SyncHabits(ctx context.Context, userID string, clientHabits []core.Habit) (map[string]string, []core.Habit, error) {
	existing, err := s.habits.ListByUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("sync service: failed to load habits: %w", err)
	}

	byServerID := make(map[string]core.Habit, len(existing))
	byLocalID := make(map[string]core.Habit, len(existing))
	for _, h := range existing {
		byServerID[h.ServerID] = h
		if h.LocalID != "" {
			byLocalID[h.LocalID] = h
		}
	}

	tempIDs := map[string]string{}

	for _, ch := range clientHabits {
		if ch.Deleted {
			sid := ch.ServerID
			if sid == "" {
				if prev, ok := byLocalID[ch.LocalID]; ok {
					sid = prev.ServerID
				}
			}
			if sid != "" {
				if err := s.habits.Delete(ctx, userID, sid); err != nil {
					return nil, nil, fmt.Errorf("sync service: failed to delete habit %s: %w", sid, err)
				}
			}
			continue
		}

		if ch.ServerID == "" {
			// A client can resubmit a habit it was never told the promotion
			// for (e.g. a sync that died between phases); reuse the id the
			// server already assigned instead of forking the record.
			if prev, ok := byLocalID[ch.LocalID]; ok {
				ch.ServerID = prev.ServerID
			} else {
				ch.ServerID = uuid.NewString()
			}
			tempIDs[ch.LocalID] = ch.ServerID
			if err := s.habits.Upsert(ctx, userID, ch); err != nil {
				return nil, nil, fmt.Errorf("sync service: failed to store habit %s: %w", ch.ServerID, err)
			}
			continue
		}

		// A promoted habit the server no longer carries was tombstoned by
		// another device; pushing it back must not resurrect it.
		prev, known := byServerID[ch.ServerID]
		if !known {
			continue
		}
		if prev.UpdatedAt.Before(ch.UpdatedAt) {
			if err := s.habits.Upsert(ctx, userID, ch); err != nil {
				return nil, nil, fmt.Errorf("sync service: failed to update habit %s: %w", ch.ServerID, err)
			}
		}
	}

	canonical, err := s.habits.ListByUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("sync service: failed to reload habits: %w", err)
	}

	return tempIDs, canonical, nil
}

// SyncLogs stores the client's never-synced logs (assigning server ids) and
// returns the user's canonical log collection.
func (s *SyncService) SyncLogs(ctx context.Context, userID string, clientLogs []core.HabitLog) ([]core.HabitLog, error) {
	existing, err := s.logs.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("sync service: failed to load logs: %w", err)
	}

	byLocalID := make(map[string]core.HabitLog, len(existing))
	for _, l := range existing {
		if l.LocalID != "" {
			byLocalID[l.LocalID] = l
		}
	}

	for _, cl := range clientLogs {
		if cl.ServerID == "" {
			if prev, ok := byLocalID[cl.LocalID]; ok {
				cl.ServerID = prev.ServerID
			} else {
				cl.ServerID = uuid.NewString()
			}
		}
		if err := s.logs.Upsert(ctx, userID, cl); err != nil {
			return nil, fmt.Errorf("sync service: failed to store log %s: %w", cl.ServerID, err)
		}
	}

	canonical, err := s.logs.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("sync service: failed to reload logs: %w", err)
	}
	return canonical, nil
}
