package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/wakelight/internal/alarm"
)

// Loader supplies the alarm set and zone a new loop is seeded with.
type Loader interface {
	Load(ctx context.Context) ([]alarm.Alarm, *time.Location, error)
}

// StoreLoader reads alarms and the timezone from the repositories.
type StoreLoader struct {
	Alarms alarm.Repository
	Zones  alarm.TimezoneRepository
}

// Load returns every stored alarm and the stored zone. An unreadable zone
// falls back to UTC; an unreadable alarm table is an error.
func (l StoreLoader) Load(ctx context.Context) ([]alarm.Alarm, *time.Location, error) {
	alarms, err := l.Alarms.All(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("loading alarms: %w", err)
	}
	tz := alarm.CurrentTimezone(ctx, l.Zones)
	return alarms, tz.Location(), nil
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) ([]alarm.Alarm, *time.Location, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context) ([]alarm.Alarm, *time.Location, error) {
	return f(ctx)
}
