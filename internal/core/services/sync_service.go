package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/velachio/habitsync/internal/adapters/api"
	"github.com/velachio/habitsync/internal/core/domain"
	"github.com/velachio/habitsync/internal/store"
)

var ErrNotSignedIn = errors.New("sync requires a signed-in session")

// SyncAPI is the remote surface the sync engine talks to.
type SyncAPI interface {
	SyncHabits(ctx context.Context, token string, habits []domain.Habit) (*api.HabitSyncResult, error)
	SyncLogs(ctx context.Context, token string, logs []domain.HabitLog) (*api.LogSyncResult, error)
}

// SyncService reconciles the local habit/log collections with the remote in
// one best-effort pass. There is no rollback across the two phases: a failed
// log phase leaves promoted habit ids behind, and the next sync call picks up
// from there.
type SyncService struct {
	store  *store.Store
	client SyncAPI
}

func NewSyncService(st *store.Store, client SyncAPI) *SyncService {
	return &SyncService{
		store:  st,
		client: client,
	}
}

// Sync pushes local state, merges the server's canonical view back in, and
// persists the result. The server is authoritative for existence: local
// records absent from its canonical collections are removed.
func (s *SyncService) Sync(ctx context.Context, token string) error {
	if token == "" {
		return ErrNotSignedIn
	}

	habits := s.store.LoadHabits(ctx)
	logs := s.store.LoadLogs(ctx)

	res, err := s.client.SyncHabits(ctx, token, habits)
	if err != nil {
		return fmt.Errorf("habit sync failed: %w", err)
	}

	if err := s.mergeHabits(ctx, res); err != nil {
		return err
	}

	return s.syncLogs(ctx, token, logs, res.TempIDs)
}

func (s *SyncService) mergeHabits(ctx context.Context, res *api.HabitSyncResult) error {
	// Identifier promotion: attach the server-assigned id to every habit the
	// server saw for the first time.
	for localID, serverID := range res.TempIDs {
		sid := serverID
		if err := s.store.UpdateHabit(ctx, localID, func(h *domain.Habit) {
			h.ServerID = sid
		}); err != nil {
			return fmt.Errorf("failed to promote habit %s: %w", localID, err)
		}
	}

	// Re-read so the merge and tombstone passes see the promoted ids rather
	// than the pre-promotion snapshot.
	local := s.store.LoadHabits(ctx)

	for _, sh := range res.AllHabits {
		matched := false
		for _, lh := range local {
			if lh.LocalID != sh.LocalID {
				continue
			}
			matched = true
			if lh.UpdatedAt.Before(sh.UpdatedAt) {
				server := sh
				if err := s.store.UpdateHabit(ctx, lh.LocalID, func(h *domain.Habit) {
					*h = server
				}); err != nil {
					return fmt.Errorf("failed to merge habit %s: %w", sh.LocalID, err)
				}
			}
			break
		}
		if !matched {
			if err := s.store.AddHabit(ctx, sh); err != nil {
				return fmt.Errorf("failed to insert habit %s: %w", sh.CanonicalID(), err)
			}
		}
	}

	// Tombstoning: anything the server's canonical collection no longer
	// carries is gone everywhere.
	for _, lh := range local {
		present := false
		for _, sh := range res.AllHabits {
			if sh.LocalID == lh.LocalID && sh.ServerID == lh.ServerID {
				present = true
				break
			}
		}
		if !present {
			if err := s.store.HardDeleteHabit(ctx, lh.CanonicalID()); err != nil {
				return fmt.Errorf("failed to remove tombstoned habit %s: %w", lh.CanonicalID(), err)
			}
		}
	}

	return nil
}

func (s *SyncService) syncLogs(ctx context.Context, token string, snapshot []domain.HabitLog, tempIDs map[string]string) error {
	// Only never-synced logs go up, with habit references remapped to the
	// server ids assigned this round.
	var unsynced []domain.HabitLog
	for _, l := range snapshot {
		if l.ServerID != "" {
			continue
		}
		if sid, ok := tempIDs[l.HabitID]; ok {
			l.HabitID = sid
		}
		unsynced = append(unsynced, l)
	}

	res, err := s.client.SyncLogs(ctx, token, unsynced)
	if err != nil {
		return fmt.Errorf("log sync failed: %w", err)
	}
	if res == nil || res.AllLogs == nil {
		log.Println("Sync: server returned no canonical logs, skipping log merge")
		return nil
	}

	// The collection may have moved under us during the round trip; merge
	// against a fresh read.
	local := s.store.LoadLogs(ctx)

	for _, sl := range res.AllLogs {
		idx := findLog(local, sl)
		if idx >= 0 {
			local[idx] = sl
		} else {
			local = append(local, sl)
		}
	}

	kept := local[:0]
	for _, ll := range local {
		for _, sl := range res.AllLogs {
			if sameLog(ll, sl) {
				kept = append(kept, ll)
				break
			}
		}
	}

	return s.store.SaveLogs(ctx, kept)
}

func findLog(logs []domain.HabitLog, target domain.HabitLog) int {
	for i := range logs {
		if sameLog(logs[i], target) {
			return i
		}
	}
	return -1
}

// sameLog matches by serverId when both sides carry one, else by localId.
func sameLog(a, b domain.HabitLog) bool {
	if a.ServerID != "" && b.ServerID != "" {
		return a.ServerID == b.ServerID
	}
	return a.LocalID == b.LocalID
}
