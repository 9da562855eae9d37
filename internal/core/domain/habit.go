package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrHabitNameEmpty   = errors.New("habit name cannot be empty")
	ErrHabitNameTooLong = errors.New("habit name is too long (max 100 chars)")
	ErrInvalidColor     = errors.New("invalid color format (must be #RRGGBB)")
	ErrInvalidFrequency = errors.New("invalid frequency (must be daily, weekdays, weekends, or weekly)")
	ErrInvalidGoal      = errors.New("goal must be at least 1")
	ErrInvalidTime      = errors.New("invalid reminder time (must be HH:MM 24h)")
	ErrHabitNotFound    = errors.New("habit not found")
)

var colorRegex = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)
var timeRegex = regexp.MustCompile(`^([0-1][0-9]|2[0-3]):[0-5][0-9]$`)

const (
	FrequencyDaily    = "daily"
	FrequencyWeekdays = "weekdays"
	FrequencyWeekends = "weekends"
	FrequencyWeekly   = "weekly"

	MaxNameLen = 100
)

// Habit is a recurring task definition. Before the first successful sync a
// habit carries only a client-generated LocalID; the server assigns a ServerID
// on first contact and the LocalID is retained for correlation.
type Habit struct {
	ServerID        string     `json:"_id,omitempty"`
	LocalID         string     `json:"tempId"`
	Name            string     `json:"name"`
	Category        string     `json:"category"`
	Frequency       string     `json:"frequency"`
	StartDate       time.Time  `json:"startDate"`
	Times           []string   `json:"times"`
	Color           string     `json:"color"`
	ReminderEnabled bool       `json:"reminderEnabled"`
	Goal            int        `json:"goal"`
	Streak          int        `json:"streak"`
	BestStreak      int        `json:"bestStreak"`
	LastCompleted   *time.Time `json:"lastCompleted,omitempty"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	Deleted         bool       `json:"deleted,omitempty"`
}

func validateHabit(name, color, frequency string, times []string, goal int) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ErrHabitNameEmpty
	}
	if len(trimmed) > MaxNameLen {
		return ErrHabitNameTooLong
	}

	switch frequency {
	case FrequencyDaily, FrequencyWeekdays, FrequencyWeekends, FrequencyWeekly:
	default:
		return ErrInvalidFrequency
	}

	if goal < 1 {
		return ErrInvalidGoal
	}

	for _, tm := range times {
		if !timeRegex.MatchString(tm) {
			return ErrInvalidTime
		}
	}

	if color != "" && !colorRegex.MatchString(color) {
		return ErrInvalidColor
	}

	return nil
}

func NewHabit(name, category, color, frequency string, startDate time.Time, times []string, goal int) (*Habit, error) {
	if err := validateHabit(name, color, frequency, times, goal); err != nil {
		return nil, err
	}

	return &Habit{
		LocalID:   NewLocalID(),
		Name:      strings.TrimSpace(name),
		Category:  category,
		Color:     color,
		Frequency: frequency,
		StartDate: startDate.UTC(),
		Times:     times,
		Goal:      goal,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// NewLocalID returns a client-generated temporary identifier, stable for the
// entity's local lifetime until the server promotes it.
func NewLocalID() string {
	return uuid.NewString()
}

// CanonicalID is the single lookup identity: the server-assigned id once
// promoted, otherwise the temporary local id.
func (h *Habit) CanonicalID() string {
	if h.ServerID != "" {
		return h.ServerID
	}
	return h.LocalID
}

// Matches reports whether id refers to this habit by either identifier.
func (h *Habit) Matches(id string) bool {
	return (h.ServerID != "" && h.ServerID == id) || h.LocalID == id
}

// DueOn reports whether the habit's frequency rule makes it due on the given
// calendar day. Habits are never due before their start date.
func (h *Habit) DueOn(date time.Time) bool {
	if DayKey(date) < DayKey(h.StartDate) {
		return false
	}

	wd := date.Weekday()
	switch h.Frequency {
	case FrequencyDaily:
		return true
	case FrequencyWeekdays:
		return wd >= time.Monday && wd <= time.Friday
	case FrequencyWeekends:
		return wd == time.Saturday || wd == time.Sunday
	case FrequencyWeekly:
		return wd == time.Sunday
	}
	return false
}

// DayKey collapses a timestamp to its calendar day. All day-equality checks
// in the data layer go through this so matching stays consistent across the
// completion and sync paths.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// SameDay reports date-only equality between two timestamps.
func SameDay(a, b time.Time) bool {
	return DayKey(a) == DayKey(b)
}
