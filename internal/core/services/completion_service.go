package services

import (
	"context"
	"time"

	"github.com/velachio/habitsync/internal/core/domain"
	"github.com/velachio/habitsync/internal/store"
)

// CompletionService records completion events against a habit's per-day log
// and keeps the habit's streak counters in step.
type CompletionService struct {
	store *store.Store

	// now is swappable for streak-boundary tests.
	now func() time.Time
}

func NewCompletionService(st *store.Store) *CompletionService {
	return &CompletionService{
		store: st,
		now:   time.Now,
	}
}

// RecordCompletion toggles one completion unit for the habit on the calendar
// day of timestamp.
//
// If that day's log is already fully completed, the call is an undo: the log
// is deleted outright and streaks are left untouched. One undo tap clears the
// whole day's progress, not a single unit.
func (s *CompletionService) RecordCompletion(ctx context.Context, habitID string, timestamp time.Time, goal int, notes string) error {
	logs := s.store.LoadLogs(ctx)

	idx := -1
	for i := range logs {
		if logs[i].CoversDay(habitID, timestamp) {
			idx = i
			break
		}
	}

	if idx >= 0 && logs[idx].Completed() {
		logs = append(logs[:idx], logs[idx+1:]...)
		return s.store.SaveLogs(ctx, logs)
	}

	var completed bool
	if idx >= 0 {
		l := &logs[idx]
		if l.CompletedCount < l.Goal {
			l.CompletedCount++
		}
		completed = l.Completed()
	} else {
		nl := domain.NewHabitLog(habitID, timestamp, goal, notes)
		logs = append(logs, *nl)
		completed = nl.Completed()
	}

	if err := s.store.SaveLogs(ctx, logs); err != nil {
		return err
	}

	if !completed {
		return nil
	}

	return s.store.UpdateHabit(ctx, habitID, func(h *domain.Habit) {
		s.advanceStreak(h, timestamp)
	})
}

// advanceStreak applies the streak transition for a day that just became
// fully completed: continue on a no-gap day, reset to 1 on any gap.
func (s *CompletionService) advanceStreak(h *domain.Habit, timestamp time.Time) {
	now := s.now()
	yesterday := domain.DayKey(now.AddDate(0, 0, -1))
	today := domain.DayKey(now)

	lastDay := ""
	if h.LastCompleted != nil {
		lastDay = domain.DayKey(*h.LastCompleted)
	}

	switch {
	case lastDay == "" || lastDay == yesterday:
		h.Streak++
		if h.Streak > h.BestStreak {
			h.BestStreak = h.Streak
		}
	case lastDay != today:
		h.Streak = 1
	}

	ts := timestamp.UTC()
	h.LastCompleted = &ts
	h.UpdatedAt = now.UTC()
}
