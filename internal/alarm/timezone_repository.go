package alarm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// TimezoneRepository defines persistence for the single device timezone row.
type TimezoneRepository interface {
	Get(ctx context.Context) (Timezone, error)
	Update(ctx context.Context, name string) (Timezone, error)
}

// SQLiteTimezoneRepository implements TimezoneRepository using SQLite.
type SQLiteTimezoneRepository struct {
	db *sql.DB
}

// NewSQLiteTimezoneRepository creates a new SQLite-backed timezone repository.
func NewSQLiteTimezoneRepository(db *sql.DB) *SQLiteTimezoneRepository {
	return &SQLiteTimezoneRepository{db: db}
}

// Get returns the stored zone. The error wraps sql.ErrNoRows when the table
// is empty.
func (r *SQLiteTimezoneRepository) Get(ctx context.Context) (Timezone, error) {
	const query = `SELECT timezone_id, zone_name FROM timezone ORDER BY timezone_id LIMIT 1`
	var tz Timezone
	if err := r.db.QueryRowContext(ctx, query).Scan(&tz.ID, &tz.Name); err != nil {
		return Timezone{}, fmt.Errorf("querying timezone: %w", err)
	}
	return tz, nil
}

// Update validates name and stores it, inserting the row when absent.
func (r *SQLiteTimezoneRepository) Update(ctx context.Context, name string) (Timezone, error) {
	if err := ValidateZone(name); err != nil {
		return Timezone{}, err
	}

	const update = `UPDATE timezone SET zone_name = ?
		WHERE timezone_id = (SELECT timezone_id FROM timezone ORDER BY timezone_id LIMIT 1)
		RETURNING timezone_id, zone_name`
	var tz Timezone
	err := r.db.QueryRowContext(ctx, update, name).Scan(&tz.ID, &tz.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return r.insert(ctx, name)
	}
	if err != nil {
		return Timezone{}, fmt.Errorf("updating timezone: %w", err)
	}
	return tz, nil
}

// EnsureDefault inserts name when the table is empty and returns the stored zone.
func (r *SQLiteTimezoneRepository) EnsureDefault(ctx context.Context, name string) (Timezone, error) {
	tz, err := r.Get(ctx)
	if err == nil {
		return tz, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Timezone{}, err
	}
	if err := ValidateZone(name); err != nil {
		return Timezone{}, err
	}
	return r.insert(ctx, name)
}

func (r *SQLiteTimezoneRepository) insert(ctx context.Context, name string) (Timezone, error) {
	const query = `INSERT INTO timezone (zone_name) VALUES (?) RETURNING timezone_id, zone_name`
	var tz Timezone
	if err := r.db.QueryRowContext(ctx, query, name).Scan(&tz.ID, &tz.Name); err != nil {
		return Timezone{}, fmt.Errorf("inserting timezone: %w", err)
	}
	return tz, nil
}

// CurrentTimezone returns the stored zone or DefaultTimezone when it cannot be read.
func CurrentTimezone(ctx context.Context, repo TimezoneRepository) Timezone {
	tz, err := repo.Get(ctx)
	if err != nil {
		return DefaultTimezone()
	}
	return tz
}
