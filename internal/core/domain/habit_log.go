package domain

import (
	"errors"
	"time"
)

var ErrLogNotFound = errors.New("habit log not found")

// HabitLog is one record per (habit, calendar day) tracking progress toward
// that day's goal. Goal is a snapshot taken at log creation; a later change
// to the habit's goal does not resize existing logs.
type HabitLog struct {
	ServerID       string    `json:"_id,omitempty"`
	LocalID        string    `json:"tempId"`
	HabitID        string    `json:"habitId"`
	Timestamp      time.Time `json:"timestamp"`
	CompletedCount int       `json:"completedCount"`
	Goal           int       `json:"goal"`
	Notes          string    `json:"notes,omitempty"`
}

func NewHabitLog(habitID string, timestamp time.Time, goal int, notes string) *HabitLog {
	return &HabitLog{
		LocalID:        NewLocalID(),
		HabitID:        habitID,
		Timestamp:      timestamp.UTC(),
		CompletedCount: 1,
		Goal:           goal,
		Notes:          notes,
	}
}

// Completed reports whether the day's goal has been fully met.
func (l *HabitLog) Completed() bool {
	return l.CompletedCount == l.Goal
}

// CoversDay reports whether this log belongs to the given habit on the
// calendar day of t.
func (l *HabitLog) CoversDay(habitID string, t time.Time) bool {
	return l.HabitID == habitID && SameDay(l.Timestamp, t)
}
