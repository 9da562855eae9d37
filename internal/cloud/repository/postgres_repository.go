package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/velachio/habitsync/internal/cloud/domain"
	core "github.com/velachio/habitsync/internal/core/domain"
)

type PostgresUserRepository struct {
	db *sqlx.DB
}

func NewPostgresUserRepository(db *sqlx.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	query := `
		INSERT INTO users (id, name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			if pqErr.Code == "23505" {
				return domain.ErrEmailAlreadyExists
			}
		}
		return fmt.Errorf("repository: create user failed: %w", err)
	}

	return nil
}

func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	query := `
		SELECT id, name, email, password_hash, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("repository: get user by email failed: %w", err)
	}

	return &user, nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	query := `
		SELECT id, name, email, password_hash, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("repository: get user by id failed: %w", err)
	}

	return &user, nil
}

// PostgresHabitRepository stores the canonical habit collections. The times
// array is serialized as JSONB.
type PostgresHabitRepository struct {
	db *sqlx.DB
}

func NewPostgresHabitRepository(db *sqlx.DB) *PostgresHabitRepository {
	return &PostgresHabitRepository{db: db}
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanHabit(row scannable) (core.Habit, error) {
	var h core.Habit
	var timesJSON []byte

	err := row.Scan(
		&h.ServerID, &h.LocalID, &h.Name, &h.Category, &h.Color,
		&h.Frequency, &h.StartDate, &timesJSON, &h.ReminderEnabled,
		&h.Goal, &h.Streak, &h.BestStreak, &h.LastCompleted, &h.UpdatedAt,
	)
	if err != nil {
		return core.Habit{}, err
	}

	if len(timesJSON) > 0 {
		if err := json.Unmarshal(timesJSON, &h.Times); err != nil {
			return core.Habit{}, fmt.Errorf("failed to unmarshal times: %w", err)
		}
	}

	return h, nil
}

func (r *PostgresHabitRepository) ListByUser(ctx context.Context, userID string) ([]core.Habit, error) {
	query := `
		SELECT server_id, local_id, name, category, color,
		       frequency, start_date, times, reminder_enabled,
		       goal, streak, best_streak, last_completed, updated_at
		FROM habits
		WHERE user_id = $1
		ORDER BY server_id
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: list habits failed: %w", err)
	}
	defer rows.Close()

	habits := []core.Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: habit scan failed: %w", err)
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

func (r *PostgresHabitRepository) Upsert(ctx context.Context, userID string, h core.Habit) error {
	timesJSON, err := json.Marshal(h.Times)
	if err != nil {
		return fmt.Errorf("failed to marshal times: %w", err)
	}

	query := `
		INSERT INTO habits (
			server_id, user_id, local_id, name, category, color,
			frequency, start_date, times, reminder_enabled,
			goal, streak, best_streak, last_completed, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14, $15
		)
		ON CONFLICT (server_id) DO UPDATE SET
			local_id = EXCLUDED.local_id,
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			color = EXCLUDED.color,
			frequency = EXCLUDED.frequency,
			start_date = EXCLUDED.start_date,
			times = EXCLUDED.times,
			reminder_enabled = EXCLUDED.reminder_enabled,
			goal = EXCLUDED.goal,
			streak = EXCLUDED.streak,
			best_streak = EXCLUDED.best_streak,
			last_completed = EXCLUDED.last_completed,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		h.ServerID, userID, h.LocalID, h.Name, h.Category, h.Color,
		h.Frequency, h.StartDate, timesJSON, h.ReminderEnabled,
		h.Goal, h.Streak, h.BestStreak, h.LastCompleted, h.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: upsert habit failed: %w", err)
	}
	return nil
}

func (r *PostgresHabitRepository) Delete(ctx context.Context, userID, serverID string) error {
	query := `DELETE FROM habits WHERE user_id = $1 AND server_id = $2`

	if _, err := r.db.ExecContext(ctx, query, userID, serverID); err != nil {
		return fmt.Errorf("repository: delete habit failed: %w", err)
	}
	return nil
}

type PostgresLogRepository struct {
	db *sqlx.DB
}

func NewPostgresLogRepository(db *sqlx.DB) *PostgresLogRepository {
	return &PostgresLogRepository{db: db}
}

func (r *PostgresLogRepository) ListByUser(ctx context.Context, userID string) ([]core.HabitLog, error) {
	query := `
		SELECT server_id, local_id, habit_id, timestamp, completed_count, goal, notes
		FROM habit_logs
		WHERE user_id = $1
		ORDER BY server_id
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: list logs failed: %w", err)
	}
	defer rows.Close()

	logs := []core.HabitLog{}
	for rows.Next() {
		var l core.HabitLog
		err := rows.Scan(
			&l.ServerID, &l.LocalID, &l.HabitID, &l.Timestamp,
			&l.CompletedCount, &l.Goal, &l.Notes,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: log scan failed: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (r *PostgresLogRepository) Upsert(ctx context.Context, userID string, l core.HabitLog) error {
	query := `
		INSERT INTO habit_logs (
			server_id, user_id, local_id, habit_id, timestamp, completed_count, goal, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (server_id) DO UPDATE SET
			local_id = EXCLUDED.local_id,
			habit_id = EXCLUDED.habit_id,
			timestamp = EXCLUDED.timestamp,
			completed_count = EXCLUDED.completed_count,
			goal = EXCLUDED.goal,
			notes = EXCLUDED.notes
	`

	_, err := r.db.ExecContext(ctx, query,
		l.ServerID, userID, l.LocalID, l.HabitID, l.Timestamp,
		l.CompletedCount, l.Goal, l.Notes,
	)
	if err != nil {
		return fmt.Errorf("repository: upsert log failed: %w", err)
	}
	return nil
}
