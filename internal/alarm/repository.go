package alarm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// Repository defines alarm persistence operations.
type Repository interface {
	All(ctx context.Context) ([]Alarm, error)
	Add(ctx context.Context, day, hour, minute int) (Alarm, error)
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) (int64, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed alarm repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// All returns every alarm ordered by day, hour and minute.
func (r *SQLiteRepository) All(ctx context.Context) ([]Alarm, error) {
	const query = `SELECT alarm_id, day, hour, minute FROM alarm ORDER BY day, hour, minute`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying alarms: %w", err)
	}
	defer rows.Close()

	alarms := make([]Alarm, 0)
	for rows.Next() {
		var a Alarm
		if err := rows.Scan(&a.ID, &a.Day, &a.Hour, &a.Minute); err != nil {
			return nil, fmt.Errorf("scanning alarm: %w", err)
		}
		alarms = append(alarms, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alarms: %w", err)
	}
	return alarms, nil
}

// Add validates and inserts a single alarm.
func (r *SQLiteRepository) Add(ctx context.Context, day, hour, minute int) (Alarm, error) {
	if err := Validate(day, hour, minute); err != nil {
		return Alarm{}, err
	}

	const query = `INSERT INTO alarm (day, hour, minute) VALUES (?, ?, ?)
		RETURNING alarm_id, day, hour, minute`
	var a Alarm
	err := r.db.QueryRowContext(ctx, query, day, hour, minute).Scan(&a.ID, &a.Day, &a.Hour, &a.Minute)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return Alarm{}, fmt.Errorf("%w: %d %02d:%02d", ErrDuplicate, day, hour, minute)
		}
		return Alarm{}, fmt.Errorf("inserting alarm: %w", err)
	}
	return a, nil
}

// Delete removes an alarm by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM alarm WHERE alarm_id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting alarm %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting alarm %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll removes every alarm and returns how many were deleted.
func (r *SQLiteRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM alarm`)
	if err != nil {
		return 0, fmt.Errorf("deleting alarms: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleting alarms: %w", err)
	}
	return n, nil
}
