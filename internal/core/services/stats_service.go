package services

import (
	"context"
	"time"

	"github.com/velachio/habitsync/internal/core/domain"
	"github.com/velachio/habitsync/internal/store"
)

// WeeklyStats summarizes the trailing seven days of logging activity.
type WeeklyStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Streak    int `json:"streak"`
}

// StatsService answers read-only questions derived from the two local
// collections; nothing here is separately stored.
type StatsService struct {
	store *store.Store

	now func() time.Time
}

func NewStatsService(st *store.Store) *StatsService {
	return &StatsService{
		store: st,
		now:   time.Now,
	}
}

// TodaysLogs returns the logs whose calendar day is today.
func (s *StatsService) TodaysLogs(ctx context.Context) []domain.HabitLog {
	now := s.now()

	var out []domain.HabitLog
	for _, l := range s.store.LoadLogs(ctx) {
		if domain.SameDay(l.Timestamp, now) {
			out = append(out, l)
		}
	}
	return out
}

// HabitsDueOn returns the non-deleted habits whose frequency rule makes them
// due on the given date.
func (s *StatsService) HabitsDueOn(ctx context.Context, date time.Time) []domain.Habit {
	var out []domain.Habit
	for _, h := range s.store.LoadHabits(ctx) {
		if h.Deleted {
			continue
		}
		if h.DueOn(date) {
			out = append(out, h)
		}
	}
	return out
}

// GetWeeklyStats counts logs from the last 7 days, optionally filtered to one
// habit. The streak figure is only meaningful when a habitID is supplied.
func (s *StatsService) GetWeeklyStats(ctx context.Context, habitID string) WeeklyStats {
	weekAgo := s.now().AddDate(0, 0, -7)

	var stats WeeklyStats
	for _, l := range s.store.LoadLogs(ctx) {
		if !l.Timestamp.After(weekAgo) {
			continue
		}
		if habitID != "" && l.HabitID != habitID {
			continue
		}
		stats.Total++
		if l.Completed() {
			stats.Completed++
		}
	}

	if habitID != "" {
		for _, h := range s.store.LoadHabits(ctx) {
			if h.Matches(habitID) {
				stats.Streak = h.Streak
				break
			}
		}
	}

	return stats
}
